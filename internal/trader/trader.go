// Package trader wires the guardrails, the transaction-build endpoint, the
// local signer, and the RPC layer into the buy/sell/create/liquidate flows.
package trader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"solana-curve-trader/internal/codec"
	"solana-curve-trader/internal/guard"
	"solana-curve-trader/internal/ledger"
	"solana-curve-trader/internal/solana"
	"solana-curve-trader/internal/wire"
)

const (
	// LamportsPerSOL converts native lamport balances to SOL.
	LamportsPerSOL = 1_000_000_000

	// DefaultSlippagePct protects routine trades.
	DefaultSlippagePct = 10.0

	// LiquidationSlippagePct is elevated so exit sells land even on thin curves.
	LiquidationSlippagePct = 25.0

	// DefaultPriorityFee is the tip attached to build requests, in SOL.
	DefaultPriorityFee = 0.0005

	defaultBuildEndpoint = "https://pumpportal.fun/api/trade-local"
	defaultMetaEndpoint  = "https://pump.fun/api/ipfs"
)

// ErrTransactionFailed marks a transaction that landed on chain with an error.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// Wallet holds the signing identity for every flow.
type Wallet struct {
	PublicKey  string
	PrivateKey []byte
}

// Confirmer is the push-based confirmation path (WebSocket). When unset the
// engine falls back to status polling.
type Confirmer interface {
	WaitForSignature(ctx context.Context, signature string) (bool, error)
}

// Engine executes trades for a single wallet. It is a single logical actor:
// callers must not run two Engine operations for the same wallet concurrently.
type Engine struct {
	rpc       solana.RPCClient
	wallet    Wallet
	ledger    *ledger.Ledger
	pending   *ledger.PendingStore
	limits    guard.Limits
	client    *http.Client
	buildURL  string
	metaURL   string
	confirmer Confirmer

	pollInterval time.Duration
	pollTimeout  time.Duration
	sellDelay    time.Duration
	settleDelay  time.Duration
	sleep        func(time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the guardrail thresholds.
func WithLimits(l guard.Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithBuildEndpoint points the engine at a different transaction-build service.
func WithBuildEndpoint(url string) Option {
	return func(e *Engine) { e.buildURL = url }
}

// WithMetadataEndpoint points token creation at a different metadata service.
func WithMetadataEndpoint(url string) Option {
	return func(e *Engine) { e.metaURL = url }
}

// WithHTTPClient overrides the client used for build and metadata requests.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) { e.client = client }
}

// WithConfirmer installs a push-based confirmation path.
func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) { e.confirmer = c }
}

// WithConfirmPolicy overrides the status-poll cadence and deadline.
func WithConfirmPolicy(interval, timeout time.Duration) Option {
	return func(e *Engine) {
		e.pollInterval = interval
		e.pollTimeout = timeout
	}
}

// WithDelays overrides the inter-sell and settlement pauses used by Liquidate.
func WithDelays(sell, settle time.Duration) Option {
	return func(e *Engine) {
		e.sellDelay = sell
		e.settleDelay = settle
	}
}

// WithSleep replaces the pause function, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(e *Engine) { e.sleep = fn }
}

// New builds an Engine around an RPC client, a wallet, and a ledger.
func New(rpc solana.RPCClient, wallet Wallet, led *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		rpc:          rpc,
		wallet:       wallet,
		ledger:       led,
		pending:      ledger.NewPendingStore(0),
		limits:       guard.DefaultLimits(),
		client:       &http.Client{Timeout: 30 * time.Second},
		buildURL:     defaultBuildEndpoint,
		metaURL:      defaultMetaEndpoint,
		pollInterval: 2 * time.Second,
		pollTimeout:  60 * time.Second,
		sellDelay:    2 * time.Second,
		settleDelay:  8 * time.Second,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TradeRequest describes one buy or sell.
type TradeRequest struct {
	Action      string  // "buy" or "sell"
	Mint        string
	Amount      float64 // SOL for buys; SOL or percent for sells
	IsPercent   bool    // Amount is a percentage of the held balance
	SlippagePct float64 // 0 means DefaultSlippagePct
}

// TradeResult is the outcome of one trade attempt.
type TradeResult struct {
	Success   bool          `json:"success"`
	Action    string        `json:"action"`
	Mint      string        `json:"mint"`
	Amount    float64       `json:"amount"`
	Signature string        `json:"signature,omitempty"`
	Confirmed bool          `json:"confirmed"`
	Blocked   *guard.Result `json:"blocked,omitempty"`
	Warning   string        `json:"warning,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// buildRequest is the intent sent to the transaction-build endpoint.
// Amount is a number for SOL-denominated trades and a string like "100%"
// for percent sells.
type buildRequest struct {
	PublicKey        string         `json:"publicKey"`
	Action           string         `json:"action"`
	Mint             string         `json:"mint"`
	Amount           interface{}    `json:"amount"`
	DenominatedInSol string         `json:"denominatedInSol"`
	Slippage         float64        `json:"slippage"`
	PriorityFee      float64        `json:"priorityFee"`
	Pool             string         `json:"pool"`
	TokenMetadata    *tokenMetadata `json:"tokenMetadata,omitempty"`
}

type tokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// Trade runs the full execution path: guardrails, unsigned transaction from
// the build endpoint, local signing, submission, confirmation, ledger record.
func (e *Engine) Trade(ctx context.Context, req TradeRequest) *TradeResult {
	res := &TradeResult{Action: req.Action, Mint: req.Mint, Amount: req.Amount}

	if req.Action != "buy" && req.Action != "sell" {
		res.Error = fmt.Sprintf("unknown action %q", req.Action)
		return res
	}
	if req.SlippagePct == 0 {
		req.SlippagePct = DefaultSlippagePct
	}

	if req.Action == "buy" {
		greq := guard.BuyRequest{
			Mint:     req.Mint,
			Amount:   req.Amount,
			BuyCount: e.ledger.BuyCount(req.Mint),
		}

		// Caps first: a capped buy must block before any network traffic.
		if check := guard.CheckBuyLocal(greq, e.limits); !check.Allowed {
			res.Blocked = &check
			res.Error = check.Message
			return res
		}

		lamports, err := e.rpc.GetBalance(ctx, e.wallet.PublicKey)
		if err != nil {
			res.Error = fmt.Sprintf("balance check: %v", err)
			return res
		}
		greq.Balance = float64(lamports) / LamportsPerSOL

		if check := guard.CheckBuy(greq, e.limits); !check.Allowed {
			res.Blocked = &check
			res.Error = check.Message
			return res
		}
	}

	breq := buildRequest{
		PublicKey:        e.wallet.PublicKey,
		Action:           req.Action,
		Mint:             req.Mint,
		Amount:           req.Amount,
		DenominatedInSol: "true",
		Slippage:         req.SlippagePct,
		PriorityFee:      DefaultPriorityFee,
		Pool:             "auto",
	}
	if req.IsPercent {
		breq.Amount = fmt.Sprintf("%g%%", req.Amount)
		breq.DenominatedInSol = "false"
	}

	// Track the trade as in flight until its outcome is known; the note is
	// consumed exactly once, by whichever path resolves it.
	native := req.Amount
	if req.IsPercent {
		native = 0 // proceeds unknown until settlement
	}
	e.pending.Put(req.Mint, ledger.PendingTrade{
		Mint:       req.Mint,
		Action:     req.Action,
		EntryPrice: native,
	})

	sig, confirmed, err := e.execute(ctx, breq, []wire.Signer{{
		PublicKey:  e.wallet.PublicKey,
		PrivateKey: e.wallet.PrivateKey,
	}})
	res.Signature = sig
	res.Confirmed = confirmed
	if err != nil {
		e.pending.Consume(req.Mint)
		res.Error = err.Error()
		return res
	}

	if !confirmed {
		res.Warning = "transaction submitted but unconfirmed after deadline"
	}

	if note, ok := e.pending.Consume(req.Mint); ok {
		var recErr error
		if req.Action == "sell" && req.IsPercent {
			_, recErr = e.ledger.RecordUnknownProceedsSell(note.Mint)
		} else {
			_, recErr = e.ledger.RecordTrade(note.Action, note.Mint, note.EntryPrice, nil)
		}
		if recErr != nil {
			log.Printf("ledger record after %s of %s: %v", note.Action, note.Mint, recErr)
		}
	}

	res.Success = true
	return res
}

// execute requests an unsigned transaction, signs it, submits it, and waits
// for confirmation. The returned error is nil on timeout; confirmed reports
// whether the transaction reached confirmed commitment.
func (e *Engine) execute(ctx context.Context, breq buildRequest, signers []wire.Signer) (sig string, confirmed bool, err error) {
	unsigned, err := e.fetchUnsigned(ctx, breq)
	if err != nil {
		return "", false, err
	}

	parsed, err := wire.Parse(unsigned)
	if err != nil {
		return "", false, fmt.Errorf("parse transaction: %w", err)
	}
	signed, err := wire.AssembleSigned(unsigned, parsed, signers)
	if err != nil {
		return "", false, err
	}

	sig, err = e.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return "", false, fmt.Errorf("submit transaction: %w", err)
	}

	confirmed, err = e.awaitConfirmation(ctx, sig)
	if err != nil {
		return sig, false, err
	}
	return sig, confirmed, nil
}

// fetchUnsigned posts the trade intent and returns the raw unsigned
// transaction bytes from the response body.
func (e *Engine) fetchUnsigned(ctx context.Context, breq buildRequest) ([]byte, error) {
	body, err := json.Marshal(breq)
	if err != nil {
		return nil, fmt.Errorf("encode build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.buildURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("build endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("build endpoint read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("build endpoint status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if len(raw) == 0 {
		return nil, errors.New("build endpoint returned empty transaction")
	}
	return raw, nil
}

// ParseWalletKey decodes a configured private key and returns the wallet,
// verifying the derived public key matches the configured one when given.
func ParseWalletKey(privateKey, publicKey string) (Wallet, error) {
	priv, err := codec.ParsePrivateKey(privateKey)
	if err != nil {
		return Wallet{}, err
	}
	pub, err := codec.DerivePublicKey(priv)
	if err != nil {
		return Wallet{}, err
	}
	derived := codec.EncodeBase58(pub)
	if publicKey != "" && publicKey != derived {
		return Wallet{}, fmt.Errorf("public key %s does not match key material (derived %s)", publicKey, derived)
	}
	return Wallet{PublicKey: derived, PrivateKey: priv}, nil
}
