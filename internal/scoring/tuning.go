// Package scoring converts technical and market signals into a bounded
// recommendation and retunes its own weights from realized trade outcomes.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"solana-curve-trader/internal/ta"
)

// Tuning bounds.
const (
	minOutcomesForTuning = 5
	minTradesForGlobal   = 10

	weightLowerMult = 0.5
	weightUpperMult = 2.0

	minBuyThresholdFloor = 65
	minBuyThresholdCap   = 85

	maxNudge = 2.0

	pendingEntryTTL = 24 * time.Hour
)

// ErrUnknownTrade is returned when an outcome references no pending entry.
var ErrUnknownTrade = errors.New("unknown trade id")

// Weight is one tunable contribution.
type Weight struct {
	Weight float64 `json:"weight"`
	Type   string  `json:"type"` // "bullish" | "bearish" | "neutral"
}

// RSIWeights are the banding contributions.
type RSIWeights struct {
	Oversold   float64 `json:"oversold"`
	Neutral    float64 `json:"neutral"`
	Overbought float64 `json:"overbought"`
}

// Config is the tunable decision configuration.
type Config struct {
	MinMarketCap          float64            `json:"minMarketCap"`
	MaxMarketCap          float64            `json:"maxMarketCap"`
	IdealRangeLow         float64            `json:"idealRangeLow"`
	IdealRangeHigh        float64            `json:"idealRangeHigh"`
	MinConfidenceForBuy   float64            `json:"minConfidenceForBuy"`
	MinConfidenceForWatch float64            `json:"minConfidenceForWatch"`
	PositionSizes         map[string]float64 `json:"positionSizes"` // tier -> SOL
	Targets               map[string]Target  `json:"targets"`       // volatility -> TP/SL
}

// Target is a take-profit/stop-loss pair in percent.
type Target struct {
	TakeProfitPct float64 `json:"takeProfitPct"`
	StopLossPct   float64 `json:"stopLossPct"`
}

// OutcomeStats accumulates realized results for one pattern or signal.
type OutcomeStats struct {
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPnlPct float64 `json:"totalPnlPct"`
}

// PendingEntry is a recorded analysis awaiting its outcome. Entries expire
// after pendingEntryTTL and are consumed exactly once.
type PendingEntry struct {
	Mint       string    `json:"mint"`
	Action     string    `json:"action"`
	EntryPrice float64   `json:"entryPrice"`
	Patterns   []string  `json:"patterns"`
	Signals    []string  `json:"signals"`
	CreatedAt  time.Time `json:"createdAt"`
}

// state is the persisted tuning file schema.
type state struct {
	Weights struct {
		Patterns map[string]*Weight `json:"patterns"`
		Signals  map[string]*Weight `json:"signals"`
		Trends   map[string]float64 `json:"trends"`
		RSI      RSIWeights         `json:"rsi"`
	} `json:"weights"`
	Config Config `json:"config"`
	Stats  struct {
		PerPattern  map[string]*OutcomeStats `json:"perPattern"`
		PerSignal   map[string]*OutcomeStats `json:"perSignal"`
		TotalTrades int                      `json:"totalTrades"`
		Wins        int                      `json:"wins"`
		Losses      int                      `json:"losses"`
	} `json:"stats"`
	Pending    map[string]*PendingEntry `json:"pending"`
	LastUpdate time.Time                `json:"lastUpdate"`
}

// defaultPatternWeights fixes the default contribution per pattern; tuned
// weights stay within [0.5x, 2x] of these.
var defaultPatternWeights = map[string]Weight{
	ta.PatternDoji:               {Weight: 1, Type: "neutral"},
	ta.PatternDragonflyDoji:      {Weight: 3, Type: "bullish"},
	ta.PatternGravestoneDoji:     {Weight: -3, Type: "bearish"},
	ta.PatternHammer:             {Weight: 6, Type: "bullish"},
	ta.PatternInvertedHammer:     {Weight: 4, Type: "bullish"},
	ta.PatternShootingStar:       {Weight: -6, Type: "bearish"},
	ta.PatternBullMarubozu:       {Weight: 5, Type: "bullish"},
	ta.PatternBearMarubozu:       {Weight: -5, Type: "bearish"},
	ta.PatternSpinningTop:        {Weight: -1, Type: "neutral"},
	ta.PatternBullEngulfing:      {Weight: 8, Type: "bullish"},
	ta.PatternBearEngulfing:      {Weight: -8, Type: "bearish"},
	ta.PatternBullHarami:         {Weight: 4, Type: "bullish"},
	ta.PatternBearHarami:         {Weight: -4, Type: "bearish"},
	ta.PatternPiercingLine:       {Weight: 5, Type: "bullish"},
	ta.PatternDarkCloudCover:     {Weight: -5, Type: "bearish"},
	ta.PatternTweezerTop:         {Weight: -4, Type: "bearish"},
	ta.PatternTweezerBottom:      {Weight: 4, Type: "bullish"},
	ta.PatternMorningStar:        {Weight: 9, Type: "bullish"},
	ta.PatternEveningStar:        {Weight: -9, Type: "bearish"},
	ta.PatternThreeWhiteSoldiers: {Weight: 10, Type: "bullish"},
	ta.PatternThreeBlackCrows:    {Weight: -10, Type: "bearish"},
	ta.PatternHigherHighs:        {Weight: 5, Type: "bullish"},
	ta.PatternHigherLows:         {Weight: 5, Type: "bullish"},
	ta.PatternLowerHighs:         {Weight: -5, Type: "bearish"},
	ta.PatternLowerLows:          {Weight: -5, Type: "bearish"},
	ta.PatternDoubleTop:          {Weight: -7, Type: "bearish"},
	ta.PatternDoubleBottom:       {Weight: 7, Type: "bullish"},
	ta.PatternVolumeSpike:        {Weight: 4, Type: "bullish"},
	ta.PatternVolumeClimax:       {Weight: -3, Type: "bearish"},
	ta.PatternVolumeBreakout:     {Weight: 7, Type: "bullish"},
	ta.PatternVolumeDryUp:        {Weight: -3, Type: "bearish"},
	ta.PatternNearSupport:        {Weight: 3, Type: "bullish"},
	ta.PatternSupportBounce:      {Weight: 6, Type: "bullish"},
	ta.PatternSupportBreakdown:   {Weight: -8, Type: "bearish"},
	ta.PatternNearResistance:     {Weight: -3, Type: "bearish"},
	ta.PatternResistanceReject:   {Weight: -6, Type: "bearish"},
	ta.PatternResistanceBreakout: {Weight: 8, Type: "bullish"},
	ta.PatternBandSqueeze:        {Weight: 2, Type: "neutral"},
}

// defaultSignalWeights covers the derived market-momentum signals.
var defaultSignalWeights = map[string]Weight{
	SignalVolumeSurge:    {Weight: 6, Type: "bullish"},
	SignalBuyPressure:    {Weight: 7, Type: "bullish"},
	SignalSellPressure:   {Weight: -7, Type: "bearish"},
	SignalStrongMomentum: {Weight: 5, Type: "bullish"},
	SignalNegMomentum:    {Weight: -5, Type: "bearish"},
	SignalDeepLiquidity:  {Weight: 4, Type: "bullish"},
	SignalThinLiquidity:  {Weight: -6, Type: "bearish"},
	SignalFreshPair:      {Weight: 3, Type: "bullish"},
}

func defaultState() state {
	var st state
	st.Weights.Patterns = make(map[string]*Weight, len(defaultPatternWeights))
	for name, w := range defaultPatternWeights {
		cp := w
		st.Weights.Patterns[name] = &cp
	}
	st.Weights.Signals = make(map[string]*Weight, len(defaultSignalWeights))
	for name, w := range defaultSignalWeights {
		cp := w
		st.Weights.Signals[name] = &cp
	}
	st.Weights.Trends = map[string]float64{
		ta.TrendStrongBullish: 15,
		ta.TrendBullish:       10,
		ta.TrendSideways:      0,
		ta.TrendBearish:       -10,
		ta.TrendStrongBearish: -15,
		ta.TrendUnknown:       0,
	}
	st.Weights.RSI = RSIWeights{Oversold: 8, Neutral: 2, Overbought: -8}

	st.Config = Config{
		MinMarketCap:          5000,
		MaxMarketCap:          500000,
		IdealRangeLow:         10000,
		IdealRangeHigh:        80000,
		MinConfidenceForBuy:   70,
		MinConfidenceForWatch: 55,
		PositionSizes: map[string]float64{
			"high":   0.05,
			"medium": 0.03,
			"low":    0.01,
		},
		Targets: map[string]Target{
			ta.VolatilityLow:    {TakeProfitPct: 25, StopLossPct: 10},
			ta.VolatilityMedium: {TakeProfitPct: 50, StopLossPct: 15},
			ta.VolatilityHigh:   {TakeProfitPct: 100, StopLossPct: 25},
		},
	}

	st.Stats.PerPattern = make(map[string]*OutcomeStats)
	st.Stats.PerSignal = make(map[string]*OutcomeStats)
	st.Pending = make(map[string]*PendingEntry)
	return st
}

// Tuner owns the tuning file. All mutations go through its mutex and are
// persisted immediately.
type Tuner struct {
	mu   sync.Mutex
	path string
	st   state
	now  func() time.Time
}

// OpenTuner loads tuning state from path, falling back to defaults when the
// file is absent or corrupt.
func OpenTuner(path string) *Tuner {
	t := &Tuner{path: path, st: defaultState(), now: time.Now}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("tuning: read %s: %v, using defaults", path, err)
		}
		return t
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("tuning: corrupt file %s: %v, resetting to defaults", path, err)
		return t
	}

	// Merge: new patterns/signals introduced since the file was written get
	// their defaults; stored weights are re-clamped against current bounds.
	merged := defaultState()
	for name, w := range st.Weights.Patterns {
		if def, ok := defaultPatternWeights[name]; ok {
			merged.Weights.Patterns[name] = &Weight{Weight: clampWeight(w.Weight, def.Weight), Type: def.Type}
		}
	}
	for name, w := range st.Weights.Signals {
		if def, ok := defaultSignalWeights[name]; ok {
			merged.Weights.Signals[name] = &Weight{Weight: clampWeight(w.Weight, def.Weight), Type: def.Type}
		}
	}
	if st.Config.MinConfidenceForBuy >= minBuyThresholdFloor && st.Config.MinConfidenceForBuy <= minBuyThresholdCap {
		merged.Config.MinConfidenceForBuy = st.Config.MinConfidenceForBuy
	}
	if st.Config.MinConfidenceForWatch > 0 {
		merged.Config.MinConfidenceForWatch = st.Config.MinConfidenceForWatch
	}
	if st.Stats.PerPattern != nil {
		merged.Stats.PerPattern = st.Stats.PerPattern
	}
	if st.Stats.PerSignal != nil {
		merged.Stats.PerSignal = st.Stats.PerSignal
	}
	merged.Stats.TotalTrades = st.Stats.TotalTrades
	merged.Stats.Wins = st.Stats.Wins
	merged.Stats.Losses = st.Stats.Losses
	if st.Pending != nil {
		merged.Pending = st.Pending
	}
	merged.LastUpdate = st.LastUpdate

	t.st = merged
	t.sweepPending()
	return t
}

// clampWeight bounds a tuned weight to [0.5x, 2x] of its default, handling
// negative defaults.
func clampWeight(w, def float64) float64 {
	lo := def * weightLowerMult
	hi := def * weightUpperMult
	if lo > hi {
		lo, hi = hi, lo
	}
	if w < lo {
		return lo
	}
	if w > hi {
		return hi
	}
	return w
}

func (t *Tuner) save() error {
	t.st.LastUpdate = t.now()
	data, err := json.MarshalIndent(t.st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tuning: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create tuning dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tuning: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("rename tuning: %w", err)
	}
	return nil
}

// sweepPending drops expired pending entries. Caller holds the lock or owns t.
func (t *Tuner) sweepPending() {
	cutoff := t.now().Add(-pendingEntryTTL)
	for id, p := range t.st.Pending {
		if p.CreatedAt.Before(cutoff) {
			delete(t.st.Pending, id)
		}
	}
}

// RecordEntry stores a pending analysis entry and returns its trade ID.
func (t *Tuner) RecordEntry(mint, action string, price float64, patterns, signals []string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepPending()
	id := fmt.Sprintf("%s-%d", mint, t.now().UnixMilli())
	t.st.Pending[id] = &PendingEntry{
		Mint:       mint,
		Action:     action,
		EntryPrice: price,
		Patterns:   patterns,
		Signals:    signals,
		CreatedAt:  t.now(),
	}
	if err := t.save(); err != nil {
		return "", err
	}
	return id, nil
}

// OutcomeResult summarizes one tuning update.
type OutcomeResult struct {
	TradeID         string   `json:"tradeId"`
	Win             bool     `json:"win"`
	PnlPct          float64  `json:"pnlPct"`
	AdjustedWeights []string `json:"adjustedWeights,omitempty"`
	BuyThreshold    float64  `json:"buyThreshold"`
}

// RecordOutcome consumes the pending entry for tradeID, updates per-pattern
// and per-signal stats, nudges qualifying weights within their bounds, and
// adjusts the global buy threshold. Every mutation is persisted before return.
func (t *Tuner) RecordOutcome(tradeID string, win bool, exitPrice float64) (*OutcomeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepPending()
	entry, ok := t.st.Pending[tradeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrade, tradeID)
	}
	delete(t.st.Pending, tradeID)

	pnlPct := 0.0
	if entry.EntryPrice > 0 {
		pnlPct = (exitPrice - entry.EntryPrice) / entry.EntryPrice * 100
	}

	t.st.Stats.TotalTrades++
	if win {
		t.st.Stats.Wins++
	} else {
		t.st.Stats.Losses++
	}

	var adjusted []string
	for _, name := range entry.Patterns {
		if t.updateOne(t.st.Stats.PerPattern, t.st.Weights.Patterns, defaultPatternWeights, name, win, pnlPct) {
			adjusted = append(adjusted, name)
		}
	}
	for _, name := range entry.Signals {
		if t.updateOne(t.st.Stats.PerSignal, t.st.Weights.Signals, defaultSignalWeights, name, win, pnlPct) {
			adjusted = append(adjusted, name)
		}
	}

	t.adjustBuyThreshold()

	if err := t.save(); err != nil {
		return nil, err
	}
	return &OutcomeResult{
		TradeID:         tradeID,
		Win:             win,
		PnlPct:          pnlPct,
		AdjustedWeights: adjusted,
		BuyThreshold:    t.st.Config.MinConfidenceForBuy,
	}, nil
}

// updateOne applies the per-name stat update and, once the name has enough
// outcomes, nudges its weight. Reports whether the weight moved.
func (t *Tuner) updateOne(stats map[string]*OutcomeStats, weights map[string]*Weight, defaults map[string]Weight, name string, win bool, pnlPct float64) bool {
	def, ok := defaults[name]
	if !ok {
		return false
	}

	s := stats[name]
	if s == nil {
		s = &OutcomeStats{}
		stats[name] = s
	}
	if win {
		s.Wins++
	} else {
		s.Losses++
	}
	s.TotalPnlPct += pnlPct

	total := s.Wins + s.Losses
	if total < minOutcomesForTuning {
		return false
	}

	winRate := float64(s.Wins) / float64(total)
	nudge := abs(pnlPct) / 10
	if nudge > maxNudge {
		nudge = maxNudge
	}

	w := weights[name]
	if w == nil {
		cp := def
		w = &cp
		weights[name] = w
	}

	// A performing weight is amplified away from zero, a failing one decays
	// toward it; direction follows the sign of the default.
	sign := 1.0
	if def.Weight < 0 {
		sign = -1.0
	}

	before := w.Weight
	switch {
	case winRate > 0.60:
		w.Weight = clampWeight(w.Weight+sign*nudge, def.Weight)
	case winRate < 0.40:
		w.Weight = clampWeight(w.Weight-sign*nudge, def.Weight)
	}
	return w.Weight != before
}

// adjustBuyThreshold moves the global buy gate by 1 within [65,85] once
// enough trades accumulated.
func (t *Tuner) adjustBuyThreshold() {
	if t.st.Stats.TotalTrades < minTradesForGlobal {
		return
	}
	winRate := float64(t.st.Stats.Wins) / float64(t.st.Stats.TotalTrades)
	switch {
	case winRate < 0.45:
		if t.st.Config.MinConfidenceForBuy < minBuyThresholdCap {
			t.st.Config.MinConfidenceForBuy++
		}
	case winRate > 0.65:
		if t.st.Config.MinConfidenceForBuy > minBuyThresholdFloor {
			t.st.Config.MinConfidenceForBuy--
		}
	}
}

// Stats is a read-only snapshot for reporting.
type Stats struct {
	TotalTrades int                      `json:"totalTrades"`
	Wins        int                      `json:"wins"`
	Losses      int                      `json:"losses"`
	WinRate     float64                  `json:"winRate"`
	PerPattern  map[string]OutcomeStats  `json:"perPattern"`
	PerSignal   map[string]OutcomeStats  `json:"perSignal"`
	Weights     map[string]float64       `json:"weights"`
	Config      Config                   `json:"config"`
	PendingIDs  []string                 `json:"pendingIds,omitempty"`
	LastUpdate  time.Time                `json:"lastUpdate"`
}

// Snapshot returns the current tuning statistics.
func (t *Tuner) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Stats{
		TotalTrades: t.st.Stats.TotalTrades,
		Wins:        t.st.Stats.Wins,
		Losses:      t.st.Stats.Losses,
		PerPattern:  make(map[string]OutcomeStats, len(t.st.Stats.PerPattern)),
		PerSignal:   make(map[string]OutcomeStats, len(t.st.Stats.PerSignal)),
		Weights:     make(map[string]float64),
		Config:      t.st.Config,
		LastUpdate:  t.st.LastUpdate,
	}
	if out.TotalTrades > 0 {
		out.WinRate = float64(out.Wins) / float64(out.TotalTrades)
	}
	for name, s := range t.st.Stats.PerPattern {
		out.PerPattern[name] = *s
	}
	for name, s := range t.st.Stats.PerSignal {
		out.PerSignal[name] = *s
	}
	for name, w := range t.st.Weights.Patterns {
		out.Weights[name] = w.Weight
	}
	for name, w := range t.st.Weights.Signals {
		out.Weights[name] = w.Weight
	}
	for id := range t.st.Pending {
		out.PendingIDs = append(out.PendingIDs, id)
	}
	return out
}

// Reset restores default weights, config, stats and pending entries.
func (t *Tuner) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st = defaultState()
	return t.save()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
