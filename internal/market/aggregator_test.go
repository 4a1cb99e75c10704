package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func pairJSON(mint, dexID string, liquidity float64) string {
	return fmt.Sprintf(`{
		"chainId": "solana",
		"dexId": "%s",
		"pairAddress": "pool-%s-%s",
		"baseToken": {"address": "%s", "symbol": "TKN"},
		"quoteToken": {"address": "So11111111111111111111111111111111111111112", "symbol": "SOL"},
		"priceNative": "0.0000012",
		"priceUsd": "0.00021",
		"liquidity": {"usd": %f},
		"marketCap": 42000,
		"volume": {"h24": 9000, "h1": 800},
		"txns": {"h1": {"buys": 12, "sells": 7}},
		"priceChange": {"h24": 15.5},
		"pairCreatedAt": 1700000000000
	}`, dexID, dexID, mint, mint, liquidity)
}

func TestFetchBatch_NormalizesAndSelectsBestPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Raydium pair has deeper liquidity, but the native venue wins.
		fmt.Fprintf(w, `{"pairs": [%s, %s]}`,
			pairJSON("mintA", "raydium", 90000),
			pairJSON("mintA", "pumpswap", 5000))
	}))
	defer srv.Close()

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s")
	got := a.FetchBatch(context.Background(), []string{"mintA"})

	rec, ok := got["mintA"]
	if !ok {
		t.Fatal("expected record for mintA")
	}
	if rec.DexID != "pumpswap" {
		t.Errorf("expected native venue pair, got %s", rec.DexID)
	}
	if rec.PriceUSD != 0.00021 || rec.PriceNative != 0.0000012 {
		t.Errorf("string prices not parsed: %+v", rec)
	}
	if rec.MarketCap != 42000 || rec.BuysH1 != 12 {
		t.Errorf("fields not normalized: %+v", rec)
	}
}

func TestFetchBatch_TieBreaksOnLiquidity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"pairs": [%s, %s]}`,
			pairJSON("mintA", "raydium", 1000),
			pairJSON("mintA", "orca", 8000))
	}))
	defer srv.Close()

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s")
	rec := a.FetchBatch(context.Background(), []string{"mintA"})["mintA"]
	if rec == nil || rec.LiquidityUSD != 8000 {
		t.Errorf("expected the deeper pool among non-native venues, got %+v", rec)
	}
}

func TestFetchBatch_CachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"pairs": [%s]}`, pairJSON("mintA", "pumpfun", 100))
	}))
	defer srv.Close()

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s")
	a.FetchBatch(context.Background(), []string{"mintA"})
	a.FetchBatch(context.Background(), []string{"mintA"})

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestFetchBatch_NegativeCacheOnFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s")
	got := a.FetchBatch(context.Background(), []string{"mintA"})
	if len(got) != 0 {
		t.Errorf("failed batch must yield no records, got %v", got)
	}

	// Within the TTL the failure is not retried.
	a.FetchBatch(context.Background(), []string{"mintA"})
	if n := calls.Load(); n != 1 {
		t.Errorf("expected hot-loop protection, got %d calls", n)
	}
}

func TestFetchBatch_SplitsIntoBatches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mints := strings.Split(strings.TrimPrefix(r.URL.Path, "/pairs/"), ",")
		if len(mints) > MaxBatchSize {
			t.Errorf("batch of %d exceeds cap %d", len(mints), MaxBatchSize)
		}
		fmt.Fprint(w, `{"pairs": []}`)
	}))
	defer srv.Close()

	mints := make([]string, 0, 65)
	for i := 0; i < 65; i++ {
		mints = append(mints, fmt.Sprintf("mint%02d", i))
	}

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s")
	a.FetchBatch(context.Background(), mints)

	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 batches for 65 mints, got %d", n)
	}
}

func TestFetchBatch_TTLExpiry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"pairs": [%s]}`, pairJSON("mintA", "pumpfun", 100))
	}))
	defer srv.Close()

	a := NewAggregator(srv.URL+"/pairs/", "%s/%s", WithCacheTTL(time.Minute))
	base := time.Now()
	a.now = func() time.Time { return base }
	a.FetchBatch(context.Background(), []string{"mintA"})

	a.now = func() time.Time { return base.Add(2 * time.Minute) }
	a.FetchBatch(context.Background(), []string{"mintA"})

	if n := calls.Load(); n != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", n)
	}
}

func TestFetchCandles_OrderedOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Newest first, as the upstream returns them.
		fmt.Fprint(w, `{"data": {"attributes": {"ohlcv_list": [
			[3000, 1.2, 1.3, 1.1, 1.25, 500],
			[2000, 1.1, 1.2, 1.0, 1.2, 400],
			[1000, 1.0, 1.1, 0.9, 1.1, 300]
		]}}}`)
	}))
	defer srv.Close()

	a := NewAggregator("unused", srv.URL+"/ohlcv/%s/%s")
	candles, err := a.FetchCandles(context.Background(), "pool1", "1m", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp < candles[i-1].Timestamp {
			t.Fatal("candles not ordered oldest first")
		}
	}
	if candles[0].Close != 1.1 || candles[2].Volume != 500 {
		t.Errorf("OHLCV fields misread: %+v", candles)
	}
}
