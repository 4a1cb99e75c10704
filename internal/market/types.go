package market

import "strconv"

// Record is the normalized per-token market snapshot the engine works with.
type Record struct {
	Mint         string  `json:"mint"`
	PairAddress  string  `json:"pairAddress"`
	DexID        string  `json:"dexId"`
	PriceNative  float64 `json:"priceNative"`
	PriceUSD     float64 `json:"priceUsd"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	MarketCap    float64 `json:"marketCap"`
	VolumeH24    float64 `json:"volumeH24"`
	VolumeH1     float64 `json:"volumeH1"`
	BuysH1       int     `json:"buysH1"`
	SellsH1      int     `json:"sellsH1"`
	PriceChange  float64 `json:"priceChangeH24"`
	CreatedAtMs  int64   `json:"pairCreatedAt"`
}

// pairsResponse is the upstream batched-pairs schema, validated at the
// boundary. Numeric fields arrive as strings for price values.
type pairsResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"quoteToken"`
	PriceNative string `json:"priceNative"`
	PriceUsd    string `json:"priceUsd"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	Volume    struct {
		H24 float64 `json:"h24"`
		H1  float64 `json:"h1"`
	} `json:"volume"`
	Txns struct {
		H1 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h1"`
	} `json:"txns"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

// toRecord normalizes an upstream pair into the engine schema.
func (p pair) toRecord() *Record {
	mcap := p.MarketCap
	if mcap == 0 {
		mcap = p.FDV
	}
	return &Record{
		Mint:         p.BaseToken.Address,
		PairAddress:  p.PairAddress,
		DexID:        p.DexID,
		PriceNative:  parseFloat(p.PriceNative),
		PriceUSD:     parseFloat(p.PriceUsd),
		LiquidityUSD: p.Liquidity.USD,
		MarketCap:    mcap,
		VolumeH24:    p.Volume.H24,
		VolumeH1:     p.Volume.H1,
		BuysH1:       p.Txns.H1.Buys,
		SellsH1:      p.Txns.H1.Sells,
		PriceChange:  p.PriceChange.H24,
		CreatedAtMs:  p.PairCreatedAt,
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// candlesResponse is the upstream OHLCV schema: each entry is
// [timestamp, open, high, low, close, volume].
type candlesResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]float64 `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}
