package ta

// Summary is the full technical picture for one candle series.
type Summary struct {
	Trend      string   `json:"trend"`
	RSI        float64  `json:"rsi"`
	SMA5       float64  `json:"sma5"`
	SMA10      float64  `json:"sma10"`
	SMA20      float64  `json:"sma20"`
	EMA12      float64  `json:"ema12"`
	EMA26      float64  `json:"ema26"`
	MACDDiff   float64  `json:"macdDiff"`
	Bands      Bands    `json:"bands"`
	Support    []float64 `json:"support,omitempty"`
	Resistance []float64 `json:"resistance,omitempty"`
	Patterns   []string `json:"patterns"`
	Volatility string   `json:"volatility"`
}

// Volatility categories derived from band width.
const (
	VolatilityLow    = "low"
	VolatilityMedium = "medium"
	VolatilityHigh   = "high"
)

// Analyze computes every indicator and pattern for the series. A series
// shorter than 5 candles yields trend "unknown" and no patterns.
func Analyze(candles []Candle) Summary {
	if len(candles) < 5 {
		return Summary{
			Trend:      TrendUnknown,
			RSI:        NeutralRSI,
			Patterns:   []string{},
			Volatility: VolatilityMedium,
		}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)
	bands := Bollinger(closes, 20, 2)
	support, resistance := SupportResistance(candles)

	patterns := DetectPatterns(candles)
	if patterns == nil {
		patterns = []string{}
	}

	return Summary{
		Trend:      ClassifyTrend(closes),
		RSI:        RSI(closes, 14),
		SMA5:       SMA(closes, 5),
		SMA10:      SMA(closes, 10),
		SMA20:      SMA(closes, 20),
		EMA12:      ema12,
		EMA26:      ema26,
		MACDDiff:   ema12 - ema26,
		Bands:      bands,
		Support:    support,
		Resistance: resistance,
		Patterns:   patterns,
		Volatility: volatilityCategory(bands),
	}
}

// volatilityCategory buckets band width relative to the mean.
func volatilityCategory(b Bands) string {
	if b.Middle <= 0 {
		return VolatilityMedium
	}
	width := (b.Upper - b.Lower) / b.Middle
	switch {
	case width < 0.10:
		return VolatilityLow
	case width > 0.40:
		return VolatilityHigh
	default:
		return VolatilityMedium
	}
}
