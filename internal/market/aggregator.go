// Package market batches token market-data lookups, caches them with a short
// TTL, and normalizes the upstream pair schema into one Record per mint.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"solana-curve-trader/internal/ta"
)

// Batch and cache tuning.
const (
	MaxBatchSize       = 30
	DefaultCacheTTL    = 60 * time.Second
	DefaultMaxInFlight = 3
	DefaultHTTPTimeout = 10 * time.Second
)

// Native-curve venues, preferred when a token trades in several places.
var nativeVenues = map[string]bool{
	"pumpfun":  true,
	"pumpswap": true,
}

// IsNativeVenue reports whether a dex id is a bonding-curve venue. A token
// whose best pair sits elsewhere has migrated to a standard liquidity venue.
func IsNativeVenue(dexID string) bool {
	return nativeVenues[dexID]
}

// cacheEntry holds a cached record; a nil Record is an explicit negative
// entry so a missing token is not re-requested within the TTL.
type cacheEntry struct {
	rec *Record
	at  time.Time
}

// Aggregator fetches and caches market data for token mints.
type Aggregator struct {
	pairsURL    string // batched pairs endpoint, mint list appended
	candlesURL  string // candle endpoint, formatted with pool + timeframe
	client      *http.Client
	ttl         time.Duration
	maxInFlight int

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithCacheTTL overrides the cache TTL.
func WithCacheTTL(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.ttl = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) AggregatorOption {
	return func(a *Aggregator) {
		a.client = c
	}
}

// NewAggregator creates an aggregator for the given endpoints.
func NewAggregator(pairsURL, candlesURL string, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		pairsURL:    pairsURL,
		candlesURL:  candlesURL,
		client:      &http.Client{Timeout: DefaultHTTPTimeout},
		ttl:         DefaultCacheTTL,
		maxInFlight: DefaultMaxInFlight,
		cache:       make(map[string]cacheEntry),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchBatch returns market records for the given mints. Cached entries are
// served first; the rest are fetched in batches of at most MaxBatchSize with
// bounded fan-out. A failed batch degrades to "no data this cycle" for its
// mints (cached as negative), never an error for the whole call.
func (a *Aggregator) FetchBatch(ctx context.Context, mints []string) map[string]*Record {
	result := make(map[string]*Record)
	var missing []string

	a.mu.Lock()
	cutoff := a.now().Add(-a.ttl)
	seen := make(map[string]bool, len(mints))
	for _, mint := range mints {
		if mint == "" || seen[mint] {
			continue
		}
		seen[mint] = true
		if e, ok := a.cache[mint]; ok && e.at.After(cutoff) {
			if e.rec != nil {
				result[mint] = e.rec
			}
			continue
		}
		missing = append(missing, mint)
	}
	a.mu.Unlock()

	if len(missing) == 0 {
		return result
	}

	var batches [][]string
	for start := 0; start < len(missing); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batches = append(batches, missing[start:end])
	}

	// Bounded fan-out: data gathering only, joined before returning.
	sem := make(chan struct{}, a.maxInFlight)
	var wg sync.WaitGroup
	var resMu sync.Mutex

	for _, batch := range batches {
		wg.Add(1)
		go func(batch []string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records := a.fetchPairsBatch(ctx, batch)
			resMu.Lock()
			for mint, rec := range records {
				result[mint] = rec
			}
			resMu.Unlock()
		}(batch)
	}
	wg.Wait()

	return result
}

// fetchPairsBatch requests one batch and caches every outcome, including
// negatives for mints the endpoint did not return.
func (a *Aggregator) fetchPairsBatch(ctx context.Context, mints []string) map[string]*Record {
	url := a.pairsURL + strings.Join(mints, ",")

	best, err := a.requestPairs(ctx, url)
	if err != nil {
		log.Printf("market: batch of %d failed: %v", len(mints), err)
		best = nil // fall through to negative-cache every mint
	}

	found := make(map[string]*Record)
	a.mu.Lock()
	now := a.now()
	for _, mint := range mints {
		rec := best[mint]
		a.cache[mint] = cacheEntry{rec: rec, at: now}
		if rec != nil {
			found[mint] = rec
		}
	}
	a.mu.Unlock()
	return found
}

// requestPairs issues the HTTP call and selects the single best pair per
// mint: native-curve venue first, then highest USD liquidity.
func (a *Aggregator) requestPairs(ctx context.Context, url string) (map[string]*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed pairsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal pairs: %w", err)
	}

	best := make(map[string]*Record)
	for _, p := range parsed.Pairs {
		rec := p.toRecord()
		if rec.Mint == "" {
			continue
		}
		if prev, ok := best[rec.Mint]; ok && !betterPair(rec, prev) {
			continue
		}
		best[rec.Mint] = rec
	}
	return best, nil
}

// betterPair reports whether candidate should replace current.
func betterPair(candidate, current *Record) bool {
	candNative := nativeVenues[candidate.DexID]
	curNative := nativeVenues[current.DexID]
	if candNative != curNative {
		return candNative
	}
	return candidate.LiquidityUSD > current.LiquidityUSD
}

// FetchCandles returns the ordered OHLCV series for a pool and timeframe,
// oldest first.
func (a *Aggregator) FetchCandles(ctx context.Context, pool, timeframe string, limit int) ([]ta.Candle, error) {
	url := fmt.Sprintf(a.candlesURL, pool, timeframe)
	if limit > 0 {
		url += fmt.Sprintf("?limit=%d", limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unmarshal candles: %w", err)
	}

	list := parsed.Data.Attributes.OHLCVList
	candles := make([]ta.Candle, 0, len(list))
	for _, row := range list {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, ta.Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
			Volume:    row[5],
		})
	}

	// Oldest first for indicator math.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	return candles, nil
}
