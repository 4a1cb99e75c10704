package ta

// Pattern names emitted by DetectPatterns. A detection run appends every
// matching name; patterns are never mutually exclusive.
const (
	// Single candle
	PatternDoji           = "doji"
	PatternDragonflyDoji  = "dragonfly_doji"
	PatternGravestoneDoji = "gravestone_doji"
	PatternHammer         = "hammer"
	PatternInvertedHammer = "inverted_hammer"
	PatternShootingStar   = "shooting_star"
	PatternBullMarubozu   = "bullish_marubozu"
	PatternBearMarubozu   = "bearish_marubozu"
	PatternSpinningTop    = "spinning_top"

	// Double candle
	PatternBullEngulfing  = "bullish_engulfing"
	PatternBearEngulfing  = "bearish_engulfing"
	PatternBullHarami     = "bullish_harami"
	PatternBearHarami     = "bearish_harami"
	PatternPiercingLine   = "piercing_line"
	PatternDarkCloudCover = "dark_cloud_cover"
	PatternTweezerTop     = "tweezer_top"
	PatternTweezerBottom  = "tweezer_bottom"

	// Triple candle
	PatternMorningStar        = "morning_star"
	PatternEveningStar        = "evening_star"
	PatternThreeWhiteSoldiers = "three_white_soldiers"
	PatternThreeBlackCrows    = "three_black_crows"

	// Trend structure
	PatternHigherHighs  = "higher_highs"
	PatternHigherLows   = "higher_lows"
	PatternLowerHighs   = "lower_highs"
	PatternLowerLows    = "lower_lows"
	PatternDoubleTop    = "double_top"
	PatternDoubleBottom = "double_bottom"

	// Volume
	PatternVolumeSpike    = "volume_spike"
	PatternVolumeClimax   = "volume_climax"
	PatternVolumeBreakout = "volume_breakout"
	PatternVolumeDryUp    = "volume_dry_up"

	// Support/resistance interaction
	PatternNearSupport        = "near_support"
	PatternSupportBounce      = "support_bounce"
	PatternSupportBreakdown   = "support_breakdown"
	PatternNearResistance     = "near_resistance"
	PatternResistanceReject   = "resistance_reject"
	PatternResistanceBreakout = "resistance_breakout"

	// Bollinger
	PatternBandSqueeze = "band_squeeze"
)

// Detector thresholds.
const (
	longWickMin  = 0.60
	smallWickMax = 0.15
	smallBodyMin = 0.15

	marubozuBodyMin = 0.80
	marubozuWickMax = 0.10

	spinBodyMax = 0.35
	spinWickMin = 0.20

	tweezerTolerance = 0.003 // matching highs/lows within 0.3%
	srTolerance      = 0.02  // "near" a level means within 2%

	volumeSpikeMult = 2.0
	volumeClimaxMult = 3.5
	volumeDryMult   = 0.3
)

// DetectPatterns runs every detector over the series tail and returns all
// matching pattern names. Fewer than 5 candles yields an empty list.
func DetectPatterns(candles []Candle) []string {
	if len(candles) < 5 {
		return nil
	}

	var found []string
	add := func(name string, ok bool) {
		if ok {
			found = append(found, name)
		}
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	cp := split(last)
	pp := split(prev)

	// Single candle.
	add(PatternDoji, cp.IsDoji)
	add(PatternDragonflyDoji, cp.IsDoji && cp.LowerPct >= longWickMin && cp.UpperPct <= smallWickMax)
	add(PatternGravestoneDoji, cp.IsDoji && cp.UpperPct >= longWickMin && cp.LowerPct <= smallWickMax)
	add(PatternHammer, !cp.IsDoji && cp.BodyPct >= smallBodyMin && cp.LowerPct >= longWickMin && cp.UpperPct <= smallWickMax && isDowntrend(candles))
	add(PatternInvertedHammer, !cp.IsDoji && cp.BodyPct >= smallBodyMin && cp.UpperPct >= longWickMin && cp.LowerPct <= smallWickMax && isDowntrend(candles))
	add(PatternShootingStar, !cp.IsDoji && cp.BodyPct >= smallBodyMin && cp.UpperPct >= longWickMin && cp.LowerPct <= smallWickMax && isUptrend(candles))
	add(PatternBullMarubozu, cp.IsBull && cp.BodyPct >= marubozuBodyMin && cp.UpperPct <= marubozuWickMax && cp.LowerPct <= marubozuWickMax)
	add(PatternBearMarubozu, cp.IsBear && cp.BodyPct >= marubozuBodyMin && cp.UpperPct <= marubozuWickMax && cp.LowerPct <= marubozuWickMax)
	add(PatternSpinningTop, !cp.IsDoji && cp.BodyPct <= spinBodyMax && cp.UpperPct >= spinWickMin && cp.LowerPct >= spinWickMin)

	// Double candle.
	add(PatternBullEngulfing, cp.IsBull && pp.IsBear && last.Close > prev.Open && last.Open < prev.Close)
	add(PatternBearEngulfing, cp.IsBear && pp.IsBull && last.Open > prev.Close && last.Close < prev.Open)
	add(PatternBullHarami, cp.IsBull && pp.IsBear && last.Open > prev.Close && last.Close < prev.Open)
	add(PatternBearHarami, cp.IsBear && pp.IsBull && last.Open < prev.Close && last.Close > prev.Open)
	add(PatternPiercingLine, cp.IsBull && pp.IsBear && last.Open < prev.Low && last.Close > midpoint(prev) && last.Close < prev.Open)
	add(PatternDarkCloudCover, cp.IsBear && pp.IsBull && last.Open > prev.High && last.Close < midpoint(prev) && last.Close > prev.Open)
	add(PatternTweezerTop, isUptrend(candles) && within(last.High, prev.High, tweezerTolerance) && pp.IsBull && cp.IsBear)
	add(PatternTweezerBottom, isDowntrend(candles) && within(last.Low, prev.Low, tweezerTolerance) && pp.IsBear && cp.IsBull)

	// Triple candle.
	if len(candles) >= 3 {
		third := candles[len(candles)-3]
		tp := split(third)
		mid := split(prev)

		add(PatternMorningStar, tp.IsBear && mid.BodyPct <= spinBodyMax && cp.IsBull && last.Close > midpoint(third))
		add(PatternEveningStar, tp.IsBull && mid.BodyPct <= spinBodyMax && cp.IsBear && last.Close < midpoint(third))
		add(PatternThreeWhiteSoldiers, tp.IsBull && mid.IsBull && cp.IsBull &&
			prev.Close > third.Close && last.Close > prev.Close &&
			tp.BodyPct >= smallBodyMin && mid.BodyPct >= smallBodyMin && cp.BodyPct >= smallBodyMin)
		add(PatternThreeBlackCrows, tp.IsBear && mid.IsBear && cp.IsBear &&
			prev.Close < third.Close && last.Close < prev.Close &&
			tp.BodyPct >= smallBodyMin && mid.BodyPct >= smallBodyMin && cp.BodyPct >= smallBodyMin)
	}

	// Trend structure over the last four candles.
	if len(candles) >= 4 {
		w := candles[len(candles)-4:]
		add(PatternHigherHighs, w[1].High > w[0].High && w[2].High > w[1].High && w[3].High > w[2].High)
		add(PatternHigherLows, w[1].Low > w[0].Low && w[2].Low > w[1].Low && w[3].Low > w[2].Low)
		add(PatternLowerHighs, w[1].High < w[0].High && w[2].High < w[1].High && w[3].High < w[2].High)
		add(PatternLowerLows, w[1].Low < w[0].Low && w[2].Low < w[1].Low && w[3].Low < w[2].Low)
	}
	add(PatternDoubleTop, isDoubleTop(candles))
	add(PatternDoubleBottom, isDoubleBottom(candles))

	// Volume relative to the local average (excluding the last candle).
	avgVol := averageVolume(candles[:len(candles)-1])
	if avgVol > 0 {
		ratio := last.Volume / avgVol
		add(PatternVolumeSpike, ratio >= volumeSpikeMult)
		add(PatternVolumeClimax, ratio >= volumeClimaxMult && cp.BodyPct >= marubozuBodyMin)
		add(PatternVolumeBreakout, ratio >= volumeSpikeMult && cp.IsBull && last.Close > recentHigh(candles[:len(candles)-1]))
		add(PatternVolumeDryUp, ratio <= volumeDryMult)
	}

	// Support/resistance interaction.
	support, resistance := SupportResistance(candles[:len(candles)-1])
	for _, level := range support {
		if within(last.Close, level, srTolerance) {
			add(PatternNearSupport, true)
		}
		if last.Low <= level*(1+tweezerTolerance) && last.Close > level && cp.IsBull {
			add(PatternSupportBounce, true)
		}
		if last.Close < level*(1-srTolerance) && cp.IsBear {
			add(PatternSupportBreakdown, true)
		}
	}
	for _, level := range resistance {
		if within(last.Close, level, srTolerance) {
			add(PatternNearResistance, true)
		}
		if last.High >= level*(1-tweezerTolerance) && last.Close < level && cp.IsBear {
			add(PatternResistanceReject, true)
		}
		if last.Close > level*(1+srTolerance) && cp.IsBull {
			add(PatternResistanceBreakout, true)
		}
	}

	// Bollinger squeeze.
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	add(PatternBandSqueeze, Bollinger(closes, 20, 2).Squeeze)

	return dedupe(found)
}

// isUptrend reports whether the closes leading into the last candle rise.
func isUptrend(candles []Candle) bool {
	n := len(candles)
	if n < 4 {
		return false
	}
	return candles[n-2].Close > candles[n-4].Close
}

func isDowntrend(candles []Candle) bool {
	n := len(candles)
	if n < 4 {
		return false
	}
	return candles[n-2].Close < candles[n-4].Close
}

func midpoint(c Candle) float64 {
	return (c.Open + c.Close) / 2
}

func within(a, b, tolerance float64) bool {
	if b == 0 {
		return false
	}
	return abs(a-b)/b <= tolerance
}

func averageVolume(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	window := candles
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	var sum float64
	for _, c := range window {
		sum += c.Volume
	}
	return sum / float64(len(window))
}

func recentHigh(candles []Candle) float64 {
	window := candles
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	var high float64
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
	}
	return high
}

// isDoubleTop looks for two peaks within 2% of each other separated by a
// trough at least 3% below them, ending near the second peak.
func isDoubleTop(candles []Candle) bool {
	if len(candles) < 8 {
		return false
	}
	w := candles[len(candles)-8:]

	firstPeak, trough, secondPeak := w[1].High, w[3].Low, w[6].High
	for i := 0; i < 3; i++ {
		if w[i].High > firstPeak {
			firstPeak = w[i].High
		}
	}
	for i := 2; i < 6; i++ {
		if w[i].Low < trough {
			trough = w[i].Low
		}
	}
	for i := 5; i < 8; i++ {
		if w[i].High > secondPeak {
			secondPeak = w[i].High
		}
	}

	if !within(firstPeak, secondPeak, srTolerance) {
		return false
	}
	return trough < min(firstPeak, secondPeak)*0.97
}

func isDoubleBottom(candles []Candle) bool {
	if len(candles) < 8 {
		return false
	}
	w := candles[len(candles)-8:]

	firstLow, peak, secondLow := w[1].Low, w[3].High, w[6].Low
	for i := 0; i < 3; i++ {
		if w[i].Low < firstLow {
			firstLow = w[i].Low
		}
	}
	for i := 2; i < 6; i++ {
		if w[i].High > peak {
			peak = w[i].High
		}
	}
	for i := 5; i < 8; i++ {
		if w[i].Low < secondLow {
			secondLow = w[i].Low
		}
	}

	if !within(firstLow, secondLow, srTolerance) {
		return false
	}
	return peak > max(firstLow, secondLow)*1.03
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
