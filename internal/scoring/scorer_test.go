package scoring

import (
	"path/filepath"
	"testing"

	"solana-curve-trader/internal/market"
	"solana-curve-trader/internal/ta"
)

func newTuner(t *testing.T) *Tuner {
	t.Helper()
	return OpenTuner(filepath.Join(t.TempDir(), "tuning.json"))
}

func liveInput() Input {
	return Input{
		Mint:    "mintA",
		IsLive:  true,
		Summary: ta.Summary{Trend: ta.TrendSideways, RSI: 50, Volatility: ta.VolatilityMedium, Patterns: []string{}},
		Market:  &market.Record{MarketCap: 30000, LiquidityUSD: 5000},
	}
}

func TestScore_SkipWhenMigrated(t *testing.T) {
	tn := newTuner(t)
	in := liveInput()
	in.Migrated = true

	rec := tn.Score(in)
	if rec.Action != ActionSkip || rec.Confidence != skipConfidence {
		t.Errorf("migrated token: got %s/%.0f", rec.Action, rec.Confidence)
	}
}

func TestScore_SkipWhenNotLive(t *testing.T) {
	tn := newTuner(t)
	in := liveInput()
	in.IsLive = false

	if rec := tn.Score(in); rec.Action != ActionSkip {
		t.Errorf("dead token: got %s", rec.Action)
	}
}

func TestScore_SkipBelowAbsoluteMinCap(t *testing.T) {
	tn := newTuner(t)
	in := liveInput()
	in.Market.MarketCap = 500

	if rec := tn.Score(in); rec.Action != ActionSkip {
		t.Errorf("dust token: got %s", rec.Action)
	}
}

func TestScore_ConfidenceBounded(t *testing.T) {
	tn := newTuner(t)

	bull := liveInput()
	bull.Summary.Trend = ta.TrendStrongBullish
	bull.Summary.RSI = 25
	bull.Summary.Patterns = []string{
		ta.PatternThreeWhiteSoldiers, ta.PatternMorningStar, ta.PatternBullEngulfing,
		ta.PatternResistanceBreakout, ta.PatternVolumeBreakout, ta.PatternHigherHighs,
	}
	bull.Market.PriceChange = 50
	bull.Market.BuysH1 = 100
	bull.Market.SellsH1 = 10
	bull.Community = 100

	rec := tn.Score(bull)
	if rec.Confidence < 0 || rec.Confidence > 100 {
		t.Fatalf("confidence out of bounds: %f", rec.Confidence)
	}
	if rec.Action != ActionBuy {
		t.Errorf("stacked bullish input should BUY, got %s at %.0f", rec.Action, rec.Confidence)
	}
	if rec.PositionSize <= 0 || rec.TakeProfitPct <= 0 || rec.StopLossPct <= 0 {
		t.Errorf("targets not populated: %+v", rec)
	}
}

func TestScore_AvoidOnBearishStack(t *testing.T) {
	tn := newTuner(t)

	bear := liveInput()
	bear.Summary.Trend = ta.TrendStrongBearish
	bear.Summary.RSI = 85
	bear.Summary.Patterns = []string{
		ta.PatternThreeBlackCrows, ta.PatternEveningStar, ta.PatternBearEngulfing,
		ta.PatternSupportBreakdown, ta.PatternLowerLows,
	}
	bear.Market.PriceChange = -60
	bear.Market.SellsH1 = 100
	bear.Market.BuysH1 = 5

	rec := tn.Score(bear)
	if rec.Action != ActionAvoid {
		t.Errorf("stacked bearish input should AVOID, got %s at %.0f", rec.Action, rec.Confidence)
	}
	if len(rec.Warnings) == 0 {
		t.Error("bearish contributions should surface as warnings")
	}
}

func TestScore_NeutralIsWatch(t *testing.T) {
	tn := newTuner(t)

	rec := tn.Score(liveInput())
	if rec.Action == ActionBuy || rec.Action == ActionSkip {
		t.Errorf("neutral input should not %s", rec.Action)
	}
}

func TestDeriveSignals(t *testing.T) {
	rec := &market.Record{
		VolumeH24:    1000,
		VolumeH1:     200, // 200*24 >> 1000*1.5
		BuysH1:       30,
		SellsH1:      10,
		PriceChange:  35,
		LiquidityUSD: 20000,
	}

	signals := DeriveSignals(rec)
	want := map[string]bool{
		SignalVolumeSurge:    true,
		SignalBuyPressure:    true,
		SignalStrongMomentum: true,
		SignalDeepLiquidity:  true,
	}
	for name := range want {
		found := false
		for _, s := range signals {
			if s == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected signal %s in %v", name, signals)
		}
	}

	if got := DeriveSignals(nil); got != nil {
		t.Errorf("nil record should derive nothing, got %v", got)
	}
}

func TestScore_VolatilityTargets(t *testing.T) {
	tn := newTuner(t)

	high := liveInput()
	high.Summary.Volatility = ta.VolatilityHigh
	low := liveInput()
	low.Summary.Volatility = ta.VolatilityLow

	if tn.Score(high).TakeProfitPct <= tn.Score(low).TakeProfitPct {
		t.Error("high volatility should target a larger take-profit")
	}
	if tn.Score(high).StopLossPct <= tn.Score(low).StopLossPct {
		t.Error("high volatility should allow a wider stop")
	}
}
