package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-curve-trader/internal/ta"
)

func tempTuner(t *testing.T) *Tuner {
	t.Helper()
	return OpenTuner(filepath.Join(t.TempDir(), "tuning.json"))
}

// winStreak records n winning outcomes for the same pattern set.
func winStreak(t *testing.T, tn *Tuner, n int, patterns []string, pnlPct float64) {
	t.Helper()
	exit := 1 + pnlPct/100
	for i := 0; i < n; i++ {
		id, err := tn.RecordEntry("mint", "buy", 1.0, patterns, nil)
		require.NoError(t, err)
		_, err = tn.RecordOutcome(id, true, exit)
		require.NoError(t, err)
	}
}

func lossStreak(t *testing.T, tn *Tuner, n int, patterns []string, pnlPct float64) {
	t.Helper()
	exit := 1 - pnlPct/100
	for i := 0; i < n; i++ {
		id, err := tn.RecordEntry("mint", "buy", 1.0, patterns, nil)
		require.NoError(t, err)
		_, err = tn.RecordOutcome(id, false, exit)
		require.NoError(t, err)
	}
}

func TestRecordOutcome_UnknownTrade(t *testing.T) {
	tn := tempTuner(t)
	_, err := tn.RecordOutcome("nope", true, 2.0)
	require.ErrorIs(t, err, ErrUnknownTrade)
}

func TestRecordOutcome_ConsumeOnce(t *testing.T) {
	tn := tempTuner(t)
	id, err := tn.RecordEntry("mint", "buy", 1.0, nil, nil)
	require.NoError(t, err)

	_, err = tn.RecordOutcome(id, true, 1.5)
	require.NoError(t, err)
	_, err = tn.RecordOutcome(id, true, 1.5)
	require.ErrorIs(t, err, ErrUnknownTrade)
}

func TestRecordOutcome_WeightRisesOnWins(t *testing.T) {
	tn := tempTuner(t)
	def := defaultPatternWeights[ta.PatternHammer].Weight

	winStreak(t, tn, 8, []string{ta.PatternHammer}, 30)

	got := tn.Snapshot().Weights[ta.PatternHammer]
	require.Greater(t, got, def, "winning pattern weight should rise")
	require.LessOrEqual(t, got, def*weightUpperMult)
}

func TestRecordOutcome_WeightBoundedAtDouble(t *testing.T) {
	tn := tempTuner(t)
	def := defaultPatternWeights[ta.PatternHammer].Weight

	winStreak(t, tn, 40, []string{ta.PatternHammer}, 100)

	got := tn.Snapshot().Weights[ta.PatternHammer]
	require.InDelta(t, def*weightUpperMult, got, 1e-9, "weight must cap at 2x default")
}

func TestRecordOutcome_WeightFloorsAtHalf(t *testing.T) {
	tn := tempTuner(t)
	def := defaultPatternWeights[ta.PatternHammer].Weight

	lossStreak(t, tn, 40, []string{ta.PatternHammer}, 50)

	got := tn.Snapshot().Weights[ta.PatternHammer]
	require.InDelta(t, def*weightLowerMult, got, 1e-9, "weight must floor at 0.5x default")
}

func TestRecordOutcome_NegativeDefaultBounds(t *testing.T) {
	tn := tempTuner(t)
	def := defaultPatternWeights[ta.PatternShootingStar].Weight
	require.Negative(t, def)

	winStreak(t, tn, 40, []string{ta.PatternShootingStar}, 100)

	got := tn.Snapshot().Weights[ta.PatternShootingStar]
	lo, hi := def*weightUpperMult, def*weightLowerMult
	require.GreaterOrEqual(t, got, lo)
	require.LessOrEqual(t, got, hi)
}

func TestRecordOutcome_NoNudgeBeforeFiveOutcomes(t *testing.T) {
	tn := tempTuner(t)
	def := defaultPatternWeights[ta.PatternHammer].Weight

	winStreak(t, tn, 4, []string{ta.PatternHammer}, 50)

	got := tn.Snapshot().Weights[ta.PatternHammer]
	require.Equal(t, def, got, "no tuning before 5 outcomes")
}

func TestBuyThreshold_RaisesOnLosing(t *testing.T) {
	tn := tempTuner(t)
	start := tn.Snapshot().Config.MinConfidenceForBuy

	lossStreak(t, tn, 12, nil, 20)

	got := tn.Snapshot().Config.MinConfidenceForBuy
	require.Greater(t, got, start)
	require.LessOrEqual(t, got, float64(minBuyThresholdCap))
}

func TestBuyThreshold_LowersOnWinningAndFloors(t *testing.T) {
	tn := tempTuner(t)

	winStreak(t, tn, 60, nil, 20)

	got := tn.Snapshot().Config.MinConfidenceForBuy
	require.GreaterOrEqual(t, got, float64(minBuyThresholdFloor))
	require.Less(t, got, 70.0, "threshold should fall on a winning record")
}

func TestTuner_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	tn := OpenTuner(path)

	id, err := tn.RecordEntry("mint", "buy", 1.0, []string{ta.PatternHammer}, nil)
	require.NoError(t, err)
	_, err = tn.RecordOutcome(id, true, 1.3)
	require.NoError(t, err)

	reopened := OpenTuner(path)
	snap := reopened.Snapshot()
	require.Equal(t, 1, snap.TotalTrades)
	require.Equal(t, 1, snap.PerPattern[ta.PatternHammer].Wins)
}

func TestOpenTuner_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	tn := OpenTuner(path)
	snap := tn.Snapshot()
	require.Equal(t, 0, snap.TotalTrades)
	require.Equal(t, 70.0, snap.Config.MinConfidenceForBuy)
}

func TestReset_RestoresDefaults(t *testing.T) {
	tn := tempTuner(t)
	winStreak(t, tn, 12, []string{ta.PatternHammer}, 50)

	require.NoError(t, tn.Reset())
	snap := tn.Snapshot()
	require.Equal(t, 0, snap.TotalTrades)
	require.Equal(t, defaultPatternWeights[ta.PatternHammer].Weight, snap.Weights[ta.PatternHammer])
}
