// Package ledger keeps the durable record of every trade: an append-only
// rotated trade log, the derived position map, and daily/aggregate P&L.
// One Ledger value owns its file; all mutations funnel through its mutex and
// each one rewrites the file wholesale via a temp-file rename.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Trade actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// DefaultMaxTrades is how many trades the rotated log retains.
// LightMaxTrades is the lighter variant for constrained deployments.
const (
	DefaultMaxTrades = 500
	LightMaxTrades   = 100
)

// maxPlausibleAmount caps a single recorded native amount. A sell amount
// carrying a percentage artifact (a literal 100) lands far above this and is
// clamped so it can never corrupt totalProfit.
const maxPlausibleAmount = 50.0

// ErrUnknownAction is returned for an action other than buy or sell.
var ErrUnknownAction = errors.New("unknown trade action")

// Trade is one executed buy or sell.
type Trade struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Mint         string    `json:"mint"`
	NativeAmount float64   `json:"nativeAmount"`
	TokenAmount  *float64  `json:"tokenAmount,omitempty"`
	Profit       *float64  `json:"profit,omitempty"`
	CostBasis    *float64  `json:"costBasis,omitempty"`
}

// Position is the accumulated holding in one token.
type Position struct {
	TotalCost     float64   `json:"totalCost"`
	TotalUnits    *float64  `json:"totalUnits,omitempty"`
	BuyCount      int       `json:"buyCount"`
	FirstBoughtAt time.Time `json:"firstBoughtAt"`
	LastBoughtAt  time.Time `json:"lastBoughtAt"`
}

// DayPL is one day's realized results.
type DayPL struct {
	Profit float64 `json:"profit"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
}

// state is the persisted file schema.
type state struct {
	Trades         []Trade              `json:"trades"`
	BuyCountByMint map[string]int       `json:"buyCountByMint"`
	TotalProfit    float64              `json:"totalProfit"`
	Positions      map[string]*Position `json:"positions"`
	DailyPL        map[string]*DayPL    `json:"dailyPL"`
}

func emptyState() state {
	return state{
		BuyCountByMint: make(map[string]int),
		Positions:      make(map[string]*Position),
		DailyPL:        make(map[string]*DayPL),
	}
}

// Ledger owns the trade file. Safe for concurrent use within one process;
// the design assumes a single process per wallet.
type Ledger struct {
	mu        sync.Mutex
	path      string
	maxTrades int
	st        state
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxTrades overrides the rotation capacity.
func WithMaxTrades(n int) Option {
	return func(l *Ledger) {
		l.maxTrades = n
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Open loads the ledger file, creating the empty default when the file is
// absent or unreadable. A corrupt file is reset in memory and overwritten on
// the next write.
func Open(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path:      path,
		maxTrades: DefaultMaxTrades,
		st:        emptyState(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("ledger: read %s: %v, starting empty", path, err)
		}
		return l
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("ledger: corrupt file %s: %v, resetting to empty", path, err)
		return l
	}
	if st.BuyCountByMint == nil {
		st.BuyCountByMint = make(map[string]int)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]*Position)
	}
	if st.DailyPL == nil {
		st.DailyPL = make(map[string]*DayPL)
	}
	l.st = st
	return l
}

// save writes the whole state to a temp file then renames it into place, so a
// crash mid-write never leaves a half-written ledger.
func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("rename ledger: %w", err)
	}
	return nil
}

// clampAmount bounds implausible native amounts toward zero.
func clampAmount(amount float64, action, mint string) float64 {
	if amount < 0 {
		log.Printf("ledger: negative %s amount %.4f for %s clamped to 0", action, amount, mint)
		return 0
	}
	if amount > maxPlausibleAmount {
		log.Printf("ledger: implausible %s amount %.4f for %s clamped to %.4f", action, amount, mint, maxPlausibleAmount)
		return maxPlausibleAmount
	}
	return amount
}

// RecordTrade appends a trade and updates derived state. On a sell that
// closes a position with known cost, realized profit is stamped onto the
// trade, the position is deleted and the mint's buy count resets.
func (l *Ledger) RecordTrade(action, mint string, nativeAmount float64, tokenAmount *float64) (*Trade, error) {
	if action != ActionBuy && action != ActionSell {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	nativeAmount = clampAmount(nativeAmount, action, mint)

	trade := Trade{
		Timestamp:    now,
		Action:       action,
		Mint:         mint,
		NativeAmount: nativeAmount,
		TokenAmount:  tokenAmount,
	}

	switch action {
	case ActionBuy:
		l.st.BuyCountByMint[mint]++
		pos := l.st.Positions[mint]
		if pos == nil {
			pos = &Position{FirstBoughtAt: now}
			l.st.Positions[mint] = pos
		}
		pos.TotalCost += nativeAmount
		pos.BuyCount++
		pos.LastBoughtAt = now
		if tokenAmount != nil {
			units := *tokenAmount
			if pos.TotalUnits != nil {
				units += *pos.TotalUnits
			}
			pos.TotalUnits = &units
		}

	case ActionSell:
		pos := l.st.Positions[mint]
		if pos != nil && pos.TotalCost > 0 {
			profit := nativeAmount - pos.TotalCost
			cost := pos.TotalCost
			trade.Profit = &profit
			trade.CostBasis = &cost

			l.st.TotalProfit += profit
			l.bumpDaily(now, profit)

			delete(l.st.Positions, mint)
			delete(l.st.BuyCountByMint, mint) // permits re-entry later
		}
	}

	l.st.Trades = append(l.st.Trades, trade)
	if len(l.st.Trades) > l.maxTrades {
		l.st.Trades = l.st.Trades[len(l.st.Trades)-l.maxTrades:]
	}

	if err := l.save(); err != nil {
		return nil, err
	}
	return &trade, nil
}

// RecordUnknownProceedsSell appends a sell whose proceeds are not known
// (percent-denominated exits report no native amount). The position closes
// and the mint's buy count resets, but no profit is stamped: running an
// unknown amount through the profit math would book the cost basis as a loss.
func (l *Ledger) RecordUnknownProceedsSell(mint string) (*Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade := Trade{
		Timestamp:    l.now(),
		Action:       ActionSell,
		Mint:         mint,
		NativeAmount: 0,
	}

	delete(l.st.Positions, mint)
	delete(l.st.BuyCountByMint, mint)

	l.st.Trades = append(l.st.Trades, trade)
	if len(l.st.Trades) > l.maxTrades {
		l.st.Trades = l.st.Trades[len(l.st.Trades)-l.maxTrades:]
	}

	if err := l.save(); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (l *Ledger) bumpDaily(now time.Time, profit float64) {
	day := now.Format("2006-01-02")
	d := l.st.DailyPL[day]
	if d == nil {
		d = &DayPL{}
		l.st.DailyPL[day] = d
	}
	d.Profit += profit
	d.Trades++
	// Win/loss follows the sign of profit; a break-even close is neither.
	switch {
	case profit > 0:
		d.Wins++
	case profit < 0:
		d.Losses++
	}
}

// BuyCount returns how many times a mint has been bought since its last close.
func (l *Ledger) BuyCount(mint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.BuyCountByMint[mint]
}

// Position returns a copy of the position for a mint, or nil.
func (l *Ledger) Position(mint string) *Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.st.Positions[mint]
	if pos == nil {
		return nil
	}
	cp := *pos
	return &cp
}

// TotalProfit returns the aggregate realized profit.
func (l *Ledger) TotalProfit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.TotalProfit
}

// Trades returns a copy of the rotated trade log, oldest first.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Trade, len(l.st.Trades))
	copy(out, l.st.Trades)
	return out
}

// Status reports currently held positions: nonzero units, or unknown units
// with nonzero cost.
type Status struct {
	Positions   map[string]Position `json:"positions"`
	TotalProfit float64             `json:"totalProfit"`
	DailyPL     map[string]DayPL    `json:"dailyPL"`
	TradeCount  int                 `json:"tradeCount"`
}

// Status returns the held positions and aggregate counters.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := make(map[string]Position)
	for mint, pos := range l.st.Positions {
		if pos.TotalUnits != nil && *pos.TotalUnits <= 0 {
			continue
		}
		if pos.TotalUnits == nil && pos.TotalCost <= 0 {
			continue
		}
		held[mint] = *pos
	}

	daily := make(map[string]DayPL, len(l.st.DailyPL))
	for day, d := range l.st.DailyPL {
		daily[day] = *d
	}

	return Status{
		Positions:   held,
		TotalProfit: l.st.TotalProfit,
		DailyPL:     daily,
		TradeCount:  len(l.st.Trades),
	}
}

// ClearPositions removes every position and buy count, appending a synthetic
// liquidation sell (proceeds recorded as zero) for each mint in sold. Actual
// proceeds are not tracked back from the sell transactions, so totalProfit is
// understated after a liquidation.
func (l *Ledger) ClearPositions(sold []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, mint := range sold {
		l.st.Trades = append(l.st.Trades, Trade{
			Timestamp:    now,
			Action:       ActionSell,
			Mint:         mint,
			NativeAmount: 0,
		})
	}
	if len(l.st.Trades) > l.maxTrades {
		l.st.Trades = l.st.Trades[len(l.st.Trades)-l.maxTrades:]
	}

	l.st.Positions = make(map[string]*Position)
	l.st.BuyCountByMint = make(map[string]int)

	return l.save()
}

// Reset wipes the ledger back to the empty default.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st = emptyState()
	return l.save()
}
