package ta

import (
	"math"
	"sort"
)

// Trend classifications.
const (
	TrendStrongBullish = "strong_bullish"
	TrendBullish       = "bullish"
	TrendSideways      = "sideways"
	TrendBearish       = "bearish"
	TrendStrongBearish = "strong_bearish"
	TrendUnknown       = "unknown"
)

// NeutralRSI is returned when there is not enough history for RSI.
const NeutralRSI = 50.0

// SMA returns the simple moving average of the last period values,
// or 0 when the series is too short.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average over the whole series with the
// standard 2/(period+1) smoothing, seeded with the first value.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI computes the Relative Strength Index over the last period changes,
// clamped to [0,100]. Returns NeutralRSI when history is insufficient.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return NeutralRSI
	}

	var gains, losses float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI
		}
		return 100
	}

	rsi := 100 - 100/(1+avgGain/avgLoss)
	return clamp(rsi, 0, 100)
}

// Bands holds Bollinger band values for the latest close.
type Bands struct {
	Upper   float64 `json:"upper"`
	Middle  float64 `json:"middle"`
	Lower   float64 `json:"lower"`
	Squeeze bool    `json:"squeeze"`
}

// Bollinger computes mean ± k·stddev over the last period closes. A band
// width under 10% of the mean flags a squeeze. Returns zero bands for a
// short series.
func Bollinger(closes []float64, period int, k float64) Bands {
	if period <= 1 || len(closes) < period {
		return Bands{}
	}

	window := closes[len(closes)-period:]
	mean := SMA(window, period)

	var sumSq float64
	for _, v := range window {
		d := v - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(period))

	b := Bands{
		Upper:  mean + k*std,
		Middle: mean,
		Lower:  mean - k*std,
	}
	if mean > 0 && (b.Upper-b.Lower)/mean < 0.10 {
		b.Squeeze = true
	}
	return b
}

// ClassifyTrend compares the current price against the SMA ladder.
func ClassifyTrend(closes []float64) string {
	if len(closes) < 20 {
		return TrendUnknown
	}

	price := closes[len(closes)-1]
	sma5 := SMA(closes, 5)
	sma10 := SMA(closes, 10)
	sma20 := SMA(closes, 20)

	switch {
	case price > sma5 && sma5 > sma10 && sma10 > sma20:
		return TrendStrongBullish
	case price > sma10 && sma10 > sma20:
		return TrendBullish
	case price < sma5 && sma5 < sma10 && sma10 < sma20:
		return TrendStrongBearish
	case price < sma10 && sma10 < sma20:
		return TrendBearish
	default:
		return TrendSideways
	}
}

// srClusterTolerance groups levels whose sorted values sit within 2%.
const srClusterTolerance = 0.02

// maxSRLevels caps reported support/resistance levels per side.
const maxSRLevels = 3

// SupportResistance clusters recent lows and highs into up to three levels
// each side, strongest (most-touched) first.
func SupportResistance(candles []Candle) (support, resistance []float64) {
	if len(candles) < 5 {
		return nil, nil
	}

	lows := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
		highs[i] = c.High
	}

	return clusterLevels(lows), clusterLevels(highs)
}

// clusterLevels merges consecutive sorted values within tolerance and
// returns the cluster means ordered by touch count.
func clusterLevels(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	type cluster struct {
		sum   float64
		count int
	}
	var clusters []cluster

	for _, v := range sorted {
		if v <= 0 {
			continue
		}
		if n := len(clusters); n > 0 {
			mean := clusters[n-1].sum / float64(clusters[n-1].count)
			if (v-mean)/mean <= srClusterTolerance {
				clusters[n-1].sum += v
				clusters[n-1].count++
				continue
			}
		}
		clusters = append(clusters, cluster{sum: v, count: 1})
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].count > clusters[j].count
	})

	var levels []float64
	for i := 0; i < len(clusters) && i < maxSRLevels; i++ {
		levels = append(levels, clusters[i].sum/float64(clusters[i].count))
	}
	return levels
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

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
