// Package ta computes technical indicators and detects candlestick, trend,
// volume and support/resistance patterns over an ordered candle series.
// All functions are pure and tolerate short series by returning neutral
// values instead of failing.
package ta

// Candle is one OHLCV bar. Series passed to this package are ordered
// oldest to newest.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// candleParts decomposes a candle into body/wick fractions of its range.
type candleParts struct {
	Body, Upper, Lower, Range   float64
	BodyPct, UpperPct, LowerPct float64
	IsBull, IsBear, IsDoji      bool
}

const dojiMaxBodyPct = 0.10

func split(c Candle) candleParts {
	tr := c.High - c.Low
	if tr <= 0 {
		tr = 1e-9 // degenerate bar
	}
	body := abs(c.Close - c.Open)
	upper := c.High - max(c.Close, c.Open)
	lower := min(c.Close, c.Open) - c.Low

	cp := candleParts{
		Body: body, Upper: upper, Lower: lower, Range: tr,
		BodyPct:  body / tr,
		UpperPct: upper / tr,
		LowerPct: lower / tr,
		IsBull:   c.Close > c.Open,
		IsBear:   c.Open > c.Close,
	}
	cp.IsDoji = cp.BodyPct <= dojiMaxBodyPct
	return cp
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
