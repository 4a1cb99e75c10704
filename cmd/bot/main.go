// Command bot is the trading CLI: one invocation per operation, one JSON
// document on stdout, diagnostics on stderr. A runtime failure is reported
// inside the JSON document; only usage errors exit non-zero.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"solana-curve-trader/internal/config"
	"solana-curve-trader/internal/ledger"
	"solana-curve-trader/internal/market"
	"solana-curve-trader/internal/scoring"
	"solana-curve-trader/internal/solana"
	"solana-curve-trader/internal/ta"
	"solana-curve-trader/internal/trader"
)

// Default upstream endpoints, overridable through configuration.
const (
	defaultPairsURL   = "https://api.dexscreener.com/latest/dex/tokens/"
	defaultCandlesURL = "https://api.geckoterminal.com/api/v2/networks/solana/pools/%s/ohlcv/%s"

	candleTimeframe = "minute"
	candleLimit     = 100

	defaultScanLimit = 10
)

const usageText = `usage:
  bot trade <buy|sell> <mint> <amount|N%> [slippagePct]
  bot create <name> <symbol> <description> <imagePath> <devBuyAmount>
  bot track <record|check|status|reset> [args]
  bot analyze <mint> [--quick]
  bot analyze scan [limit]
  bot analyze record <mint> <action> <price>
  bot analyze outcome <tradeId> <win|loss> <exitPrice>
  bot analyze stats
  bot analyze reset-tuning
  bot liquidate <destination>
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	os.Exit(2)
}

// emit prints the single JSON document every invocation ends with.
func emit(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encode output: %v", err)
	}
}

func emitError(err error) {
	emit(map[string]interface{}{"success": false, "error": err.Error()})
}

// app bundles the shared dependencies each command draws from.
type app struct {
	cfg    *config.Config
	rpc    solana.RPCClient
	ledger *ledger.Ledger
	tuner  *scoring.Tuner
	agg    *market.Aggregator
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	pairsURL := cfg.PairsURL
	if pairsURL == "" {
		pairsURL = defaultPairsURL
	}
	candlesURL := cfg.CandlesURL
	if candlesURL == "" {
		candlesURL = defaultCandlesURL
	}

	return &app{
		cfg:    cfg,
		rpc:    solana.NewHTTPClient(cfg.RPCEndpoint),
		ledger: ledger.Open(filepath.Join(cfg.DataDir, "trades.json")),
		tuner:  scoring.OpenTuner(filepath.Join(cfg.DataDir, "tuning.json")),
		agg:    market.NewAggregator(pairsURL, candlesURL),
	}, nil
}

func (a *app) engine() *trader.Engine {
	opts := []trader.Option{trader.WithLimits(a.cfg.Limits)}
	if a.cfg.BuildURL != "" {
		opts = append(opts, trader.WithBuildEndpoint(a.cfg.BuildURL))
	}
	if a.cfg.WSEndpoint != "" {
		opts = append(opts, trader.WithConfirmer(solana.NewWSConfirmer(a.cfg.WSEndpoint)))
	}
	return trader.New(a.rpc, a.cfg.Wallet, a.ledger, opts...)
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)

	configPath := flag.String("config", os.Getenv("BOT_CONFIG"), "path to JSON config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(*configPath)
	if err != nil {
		emitError(err)
		return
	}

	switch args[0] {
	case "trade":
		cmdTrade(ctx, a, args[1:])
	case "create":
		cmdCreate(ctx, a, args[1:])
	case "track":
		cmdTrack(a, args[1:])
	case "analyze":
		cmdAnalyze(ctx, a, args[1:])
	case "liquidate":
		cmdLiquidate(ctx, a, args[1:])
	default:
		usage()
	}
}

func cmdTrade(ctx context.Context, a *app, args []string) {
	if len(args) < 3 || len(args) > 4 {
		usage()
	}
	action, mint := args[0], args[1]
	if action != "buy" && action != "sell" {
		usage()
	}

	amountArg := args[2]
	isPercent := strings.HasSuffix(amountArg, "%")
	amount, err := strconv.ParseFloat(strings.TrimSuffix(amountArg, "%"), 64)
	if err != nil || amount <= 0 {
		usage()
	}
	if isPercent && action == "buy" {
		emitError(fmt.Errorf("percent amounts only apply to sells"))
		return
	}

	var slippage float64
	if len(args) == 4 {
		if slippage, err = strconv.ParseFloat(args[3], 64); err != nil || slippage < 0 {
			usage()
		}
	}

	emit(a.engine().Trade(ctx, trader.TradeRequest{
		Action:      action,
		Mint:        mint,
		Amount:      amount,
		IsPercent:   isPercent,
		SlippagePct: slippage,
	}))
}

func cmdCreate(ctx context.Context, a *app, args []string) {
	if len(args) != 5 {
		usage()
	}
	devBuy, err := strconv.ParseFloat(args[4], 64)
	if err != nil || devBuy < 0 {
		usage()
	}

	emit(a.engine().Create(ctx, trader.CreateRequest{
		Name:        args[0],
		Symbol:      args[1],
		Description: args[2],
		ImagePath:   args[3],
		DevBuy:      devBuy,
	}))
}

func cmdLiquidate(ctx context.Context, a *app, args []string) {
	if len(args) != 1 {
		usage()
	}
	emit(a.engine().Liquidate(ctx, args[0]))
}

func cmdTrack(a *app, args []string) {
	if len(args) == 0 {
		usage()
	}

	switch args[0] {
	case "record":
		if len(args) < 4 || len(args) > 5 {
			usage()
		}
		amount, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			usage()
		}
		var tokenAmount *float64
		if len(args) == 5 {
			v, err := strconv.ParseFloat(args[4], 64)
			if err != nil {
				usage()
			}
			tokenAmount = &v
		}
		trade, err := a.ledger.RecordTrade(args[1], args[2], amount, tokenAmount)
		if err != nil {
			emitError(err)
			return
		}
		emit(map[string]interface{}{"success": true, "trade": trade, "totalProfit": a.ledger.TotalProfit()})

	case "check":
		if len(args) != 2 {
			usage()
		}
		mint := args[1]
		out := map[string]interface{}{
			"success":  true,
			"mint":     mint,
			"buyCount": a.ledger.BuyCount(mint),
		}
		if pos := a.ledger.Position(mint); pos != nil {
			out["position"] = pos
		}
		emit(out)

	case "status":
		emit(map[string]interface{}{"success": true, "status": a.ledger.Status()})

	case "reset":
		if err := a.ledger.Reset(); err != nil {
			emitError(err)
			return
		}
		emit(map[string]interface{}{"success": true, "message": "trade history reset"})

	default:
		usage()
	}
}

func cmdAnalyze(ctx context.Context, a *app, args []string) {
	if len(args) == 0 {
		usage()
	}

	switch args[0] {
	case "scan":
		limit := defaultScanLimit
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				usage()
			}
			limit = n
		}
		cmdScan(ctx, a, limit)

	case "record":
		if len(args) != 4 {
			usage()
		}
		price, err := strconv.ParseFloat(args[3], 64)
		if err != nil || price <= 0 {
			usage()
		}
		cmdRecordEntry(ctx, a, args[1], args[2], price)

	case "outcome":
		if len(args) != 4 {
			usage()
		}
		if args[2] != "win" && args[2] != "loss" {
			usage()
		}
		exitPrice, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			usage()
		}
		res, err := a.tuner.RecordOutcome(args[1], args[2] == "win", exitPrice)
		if err != nil {
			emitError(err)
			return
		}
		emit(map[string]interface{}{"success": true, "outcome": res})

	case "stats":
		emit(map[string]interface{}{"success": true, "stats": a.tuner.Snapshot()})

	case "reset-tuning":
		if err := a.tuner.Reset(); err != nil {
			emitError(err)
			return
		}
		emit(map[string]interface{}{"success": true, "message": "tuning state reset"})

	default:
		if strings.HasPrefix(args[0], "-") {
			usage()
		}
		quick := len(args) == 2 && args[1] == "--quick"
		if len(args) > 1 && !quick {
			usage()
		}
		cmdAnalyzeMint(ctx, a, args[0], quick)
	}
}

// cmdAnalyzeMint scores one token: market record, candle analysis (skipped in
// quick mode), and the tuned recommendation.
func cmdAnalyzeMint(ctx context.Context, a *app, mint string, quick bool) {
	rec := a.agg.FetchBatch(ctx, []string{mint})[mint]
	summary, poolUsed := analyzeToken(ctx, a, rec, quick)

	recommendation := a.tuner.Score(scoringInput(mint, rec, summary))

	out := map[string]interface{}{
		"success":        true,
		"mint":           mint,
		"recommendation": recommendation,
	}
	if rec != nil {
		out["market"] = rec
	} else {
		out["warning"] = "no market data for this mint"
	}
	if poolUsed {
		out["analysis"] = summary
	}
	emit(out)
}

// cmdScan scores every held token position and reports the best first.
func cmdScan(ctx context.Context, a *app, limit int) {
	mints := heldMints(ctx, a)
	if len(mints) == 0 {
		emit(map[string]interface{}{"success": true, "recommendations": []scoring.Recommendation{}})
		return
	}

	records := a.agg.FetchBatch(ctx, mints)

	recommendations := make([]scoring.Recommendation, 0, len(mints))
	for _, mint := range mints {
		rec := records[mint]
		summary, _ := analyzeToken(ctx, a, rec, false)
		recommendations = append(recommendations, a.tuner.Score(scoringInput(mint, rec, summary)))
	}

	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].Confidence > recommendations[j].Confidence
	})
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	emit(map[string]interface{}{
		"success":         true,
		"scanned":         len(mints),
		"recommendations": recommendations,
	})
}

// cmdRecordEntry registers a scored entry with the tuner so a later outcome
// can feed the weights. Patterns and signals are captured at entry time.
func cmdRecordEntry(ctx context.Context, a *app, mint, action string, price float64) {
	rec := a.agg.FetchBatch(ctx, []string{mint})[mint]
	summary, _ := analyzeToken(ctx, a, rec, false)

	id, err := a.tuner.RecordEntry(mint, action, price, summary.Patterns, scoring.DeriveSignals(rec))
	if err != nil {
		emitError(err)
		return
	}
	emit(map[string]interface{}{"success": true, "tradeId": id})
}

// analyzeToken runs the candle analysis for a token's best pool. Without a
// pool, or in quick mode, it degrades to an empty series.
func analyzeToken(ctx context.Context, a *app, rec *market.Record, quick bool) (ta.Summary, bool) {
	if quick || rec == nil || rec.PairAddress == "" {
		return ta.Analyze(nil), false
	}
	candles, err := a.agg.FetchCandles(ctx, rec.PairAddress, candleTimeframe, candleLimit)
	if err != nil {
		log.Printf("candles for %s: %v", rec.Mint, err)
		return ta.Analyze(nil), false
	}
	return ta.Analyze(candles), true
}

func scoringInput(mint string, rec *market.Record, summary ta.Summary) scoring.Input {
	return scoring.Input{
		Mint:     mint,
		Summary:  summary,
		Market:   rec,
		Migrated: rec != nil && rec.DexID != "" && !market.IsNativeVenue(rec.DexID),
		IsLive:   rec != nil,
	}
}

// heldMints merges on-chain token holdings with ledger positions.
func heldMints(ctx context.Context, a *app) []string {
	seen := make(map[string]bool)
	var mints []string

	holdings, err := a.rpc.GetTokenAccountsByOwner(ctx, a.cfg.Wallet.PublicKey)
	if err != nil {
		log.Printf("on-chain holdings: %v", err)
	}
	for _, h := range holdings {
		if h.UIAmount > 0 && !seen[h.Mint] {
			seen[h.Mint] = true
			mints = append(mints, h.Mint)
		}
	}

	for mint := range a.ledger.Status().Positions {
		if !seen[mint] {
			seen[mint] = true
			mints = append(mints, mint)
		}
	}

	sort.Strings(mints)
	return mints
}
