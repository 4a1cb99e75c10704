package scoring

import (
	"fmt"
	"time"

	"solana-curve-trader/internal/market"
	"solana-curve-trader/internal/ta"
)

// Recommendation actions.
const (
	ActionBuy   = "BUY"
	ActionWatch = "WATCH"
	ActionAvoid = "AVOID"
	ActionSkip  = "SKIP"
)

// Derived market-momentum signal names.
const (
	SignalVolumeSurge    = "volume_surge"
	SignalBuyPressure    = "buy_pressure"
	SignalSellPressure   = "sell_pressure"
	SignalStrongMomentum = "strong_momentum"
	SignalNegMomentum    = "negative_momentum"
	SignalDeepLiquidity  = "deep_liquidity"
	SignalThinLiquidity  = "thin_liquidity"
	SignalFreshPair      = "fresh_pair"
)

// Scoring constants.
const (
	baselineScore = 50.0

	// absoluteMinMarketCap disqualifies dust tokens outright.
	absoluteMinMarketCap = 2000.0

	skipConfidence = 90.0

	avoidThreshold = 40.0
)

// Input carries everything the scorer looks at for one token.
type Input struct {
	Mint      string
	Summary   ta.Summary
	Market    *market.Record
	Migrated  bool // fully off the bonding curve
	IsLive    bool
	Community float64 // engagement bonus, 0 when unknown
}

// Recommendation is the scored decision for one token.
type Recommendation struct {
	Mint          string   `json:"mint"`
	Action        string   `json:"action"`
	Confidence    float64  `json:"confidence"`
	Score         float64  `json:"score"`
	PositionSize  float64  `json:"positionSize"`
	TakeProfitPct float64  `json:"takeProfitPct"`
	StopLossPct   float64  `json:"stopLossPct"`
	Patterns      []string `json:"patterns,omitempty"`
	Signals       []string `json:"signals,omitempty"`
	Reasons       []string `json:"reasons"`
	Warnings      []string `json:"warnings,omitempty"`
}

// DeriveSignals extracts momentum signals from a market record.
func DeriveSignals(rec *market.Record) []string {
	if rec == nil {
		return nil
	}

	var signals []string
	if rec.VolumeH24 > 0 && rec.VolumeH1*24 > rec.VolumeH24*1.5 {
		signals = append(signals, SignalVolumeSurge)
	}
	if rec.BuysH1 > 0 && float64(rec.BuysH1) > float64(rec.SellsH1)*1.5 {
		signals = append(signals, SignalBuyPressure)
	}
	if rec.SellsH1 > 0 && float64(rec.SellsH1) > float64(rec.BuysH1)*1.5 {
		signals = append(signals, SignalSellPressure)
	}
	if rec.PriceChange > 20 {
		signals = append(signals, SignalStrongMomentum)
	}
	if rec.PriceChange < -20 {
		signals = append(signals, SignalNegMomentum)
	}
	if rec.LiquidityUSD >= 10000 {
		signals = append(signals, SignalDeepLiquidity)
	}
	if rec.LiquidityUSD > 0 && rec.LiquidityUSD < 1000 {
		signals = append(signals, SignalThinLiquidity)
	}
	if rec.CreatedAtMs > 0 && ageHours(rec.CreatedAtMs) < 24 {
		signals = append(signals, SignalFreshPair)
	}
	return signals
}

// Score produces a recommendation. Disqualifiers short-circuit to SKIP with
// fixed high confidence; otherwise contributions accumulate from the
// baseline and the clamped result picks the action.
func (t *Tuner) Score(in Input) Recommendation {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Recommendation{Mint: in.Mint, Patterns: in.Summary.Patterns}

	// Instant disqualifiers bypass weighted scoring entirely.
	switch {
	case in.Migrated:
		rec.Action = ActionSkip
		rec.Confidence = skipConfidence
		rec.Reasons = []string{"token migrated off the bonding curve"}
		return rec
	case !in.IsLive:
		rec.Action = ActionSkip
		rec.Confidence = skipConfidence
		rec.Reasons = []string{"token not currently live"}
		return rec
	case in.Market != nil && in.Market.MarketCap > 0 && in.Market.MarketCap < absoluteMinMarketCap:
		rec.Action = ActionSkip
		rec.Confidence = skipConfidence
		rec.Reasons = []string{fmt.Sprintf("market cap %.0f below absolute minimum %.0f", in.Market.MarketCap, absoluteMinMarketCap)}
		return rec
	}

	score := baselineScore
	var reasons, warnings []string

	// Market-cap banding.
	if in.Market != nil && in.Market.MarketCap > 0 {
		mcap := in.Market.MarketCap
		cfg := t.st.Config
		switch {
		case mcap >= cfg.IdealRangeLow && mcap <= cfg.IdealRangeHigh:
			score += 10
			reasons = append(reasons, fmt.Sprintf("market cap %.0f in ideal range", mcap))
		case mcap < cfg.MinMarketCap:
			score -= 10
			warnings = append(warnings, fmt.Sprintf("market cap %.0f below preferred minimum", mcap))
		case mcap > cfg.MaxMarketCap:
			score -= 5
			warnings = append(warnings, fmt.Sprintf("market cap %.0f above preferred maximum", mcap))
		}
	}

	// Trend contribution.
	if w, ok := t.st.Weights.Trends[in.Summary.Trend]; ok && w != 0 {
		score += w
		reasons = append(reasons, fmt.Sprintf("trend %s (%+.0f)", in.Summary.Trend, w))
	}

	// RSI banding.
	rsi := in.Summary.RSI
	switch {
	case rsi < 30:
		score += t.st.Weights.RSI.Oversold
		reasons = append(reasons, fmt.Sprintf("RSI %.0f oversold", rsi))
	case rsi > 70:
		score += t.st.Weights.RSI.Overbought
		warnings = append(warnings, fmt.Sprintf("RSI %.0f overbought", rsi))
	case rsi >= 40 && rsi <= 60:
		score += t.st.Weights.RSI.Neutral
	}

	// Pattern contributions.
	for _, name := range in.Summary.Patterns {
		if w := t.st.Weights.Patterns[name]; w != nil {
			score += w.Weight
			if w.Weight > 0 {
				reasons = append(reasons, fmt.Sprintf("pattern %s (%+.1f)", name, w.Weight))
			} else if w.Weight < 0 {
				warnings = append(warnings, fmt.Sprintf("pattern %s (%+.1f)", name, w.Weight))
			}
		}
	}

	// Derived market-momentum signals.
	signals := DeriveSignals(in.Market)
	rec.Signals = signals
	for _, name := range signals {
		if w := t.st.Weights.Signals[name]; w != nil {
			score += w.Weight
			if w.Weight > 0 {
				reasons = append(reasons, fmt.Sprintf("signal %s (%+.1f)", name, w.Weight))
			} else {
				warnings = append(warnings, fmt.Sprintf("signal %s (%+.1f)", name, w.Weight))
			}
		}
	}

	// Community/engagement bonus.
	if in.Community > 0 {
		bonus := in.Community
		if bonus > 10 {
			bonus = 10
		}
		score += bonus
		reasons = append(reasons, fmt.Sprintf("community bonus %+.1f", bonus))
	}

	rec.Score = score
	rec.Confidence = clamp(score, 0, 100)

	cfg := t.st.Config
	switch {
	case rec.Confidence >= cfg.MinConfidenceForBuy:
		rec.Action = ActionBuy
	case rec.Confidence >= cfg.MinConfidenceForWatch:
		rec.Action = ActionWatch
	case rec.Confidence < avoidThreshold:
		rec.Action = ActionAvoid
	default:
		rec.Action = ActionWatch
	}

	// Position size by confidence tier, targets by volatility category.
	tier := "low"
	switch {
	case rec.Confidence >= 80:
		tier = "high"
	case rec.Confidence >= cfg.MinConfidenceForBuy:
		tier = "medium"
	}
	rec.PositionSize = cfg.PositionSizes[tier]

	target, ok := cfg.Targets[in.Summary.Volatility]
	if !ok {
		target = cfg.Targets[ta.VolatilityMedium]
	}
	rec.TakeProfitPct = target.TakeProfitPct
	rec.StopLossPct = target.StopLossPct

	rec.Reasons = reasons
	rec.Warnings = warnings
	return rec
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ageHours(createdAtMs int64) float64 {
	return float64(time.Now().UnixMilli()-createdAtMs) / 3600000.0
}
