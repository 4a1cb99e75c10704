package trader

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"solana-curve-trader/internal/wire"
)

// FallbackTransferFee is charged for a simple transfer when the fee query
// fails, in lamports.
const FallbackTransferFee = 5000

// SellOutcome is the per-token result of a liquidation sell.
type SellOutcome struct {
	Mint      string  `json:"mint"`
	Balance   float64 `json:"balance"`
	Success   bool    `json:"success"`
	Signature string  `json:"signature,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// LiquidationResult reports every step of a liquidation, including the ones
// that failed.
type LiquidationResult struct {
	Success        bool          `json:"success"`
	TokensSold     int           `json:"tokensSold"`
	TokensFailed   int           `json:"tokensFailed"`
	Sells          []SellOutcome `json:"sells"`
	SweptLamports  uint64        `json:"sweptLamports"`
	SweepSignature string        `json:"sweepSignature,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Liquidate sells every held token position, waits for settlement, then sweeps
// the remaining native balance minus the exact transfer fee to dest. Sells run
// sequentially with a pause between them; a failed sell never aborts the rest.
// Success requires every sell and the sweep to succeed.
func (e *Engine) Liquidate(ctx context.Context, dest string) *LiquidationResult {
	res := &LiquidationResult{}

	holdings, err := e.rpc.GetTokenAccountsByOwner(ctx, e.wallet.PublicKey)
	if err != nil {
		res.Error = fmt.Sprintf("enumerate holdings: %v", err)
		return res
	}

	for i, h := range holdings {
		if h.UIAmount <= 0 {
			continue
		}
		if len(res.Sells) > 0 {
			e.sleep(e.sellDelay)
		}

		outcome := SellOutcome{Mint: h.Mint, Balance: h.UIAmount}
		sig, confirmed, sellErr := e.execute(ctx, buildRequest{
			PublicKey:        e.wallet.PublicKey,
			Action:           "sell",
			Mint:             h.Mint,
			Amount:           "100%",
			DenominatedInSol: "false",
			Slippage:         LiquidationSlippagePct,
			PriorityFee:      DefaultPriorityFee,
			Pool:             "auto",
		}, []wire.Signer{{PublicKey: e.wallet.PublicKey, PrivateKey: e.wallet.PrivateKey}})

		outcome.Signature = sig
		switch {
		case sellErr != nil:
			outcome.Error = sellErr.Error()
			log.Printf("liquidation sell %d/%d (%s) failed: %v", i+1, len(holdings), h.Mint, sellErr)
		case !confirmed:
			outcome.Success = true
			log.Printf("liquidation sell %s submitted but unconfirmed", h.Mint)
		default:
			outcome.Success = true
		}
		res.Sells = append(res.Sells, outcome)
	}

	for _, s := range res.Sells {
		if s.Success {
			res.TokensSold++
		} else {
			res.TokensFailed++
		}
	}

	if len(res.Sells) > 0 {
		e.sleep(e.settleDelay)
	}

	sweepOK := e.sweep(ctx, dest, res)

	sold := make([]string, 0, res.TokensSold)
	for _, s := range res.Sells {
		if s.Success {
			sold = append(sold, s.Mint)
		}
	}
	if err := e.ledger.ClearPositions(sold); err != nil {
		log.Printf("clear ledger positions: %v", err)
	}

	res.Success = res.TokensFailed == 0 && sweepOK
	return res
}

// sweep drains the wallet to dest, leaving exactly zero after the network fee.
func (e *Engine) sweep(ctx context.Context, dest string, res *LiquidationResult) bool {
	balance, err := e.rpc.GetBalance(ctx, e.wallet.PublicKey)
	if err != nil {
		res.Error = fmt.Sprintf("sweep balance: %v", err)
		return false
	}

	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		res.Error = fmt.Sprintf("sweep blockhash: %v", err)
		return false
	}

	// Estimate the fee against the real transfer message; the amount does not
	// change the fee, so a placeholder of the full balance works.
	probe, err := wire.BuildTransfer(e.wallet.PublicKey, dest, blockhash, balance)
	if err != nil {
		res.Error = fmt.Sprintf("sweep transfer: %v", err)
		return false
	}
	msg, err := wire.MessageOf(probe)
	if err != nil {
		res.Error = fmt.Sprintf("sweep transfer: %v", err)
		return false
	}

	fee, err := e.rpc.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(msg))
	if err != nil {
		log.Printf("fee query failed (%v), using fallback %d lamports", err, FallbackTransferFee)
		fee = FallbackTransferFee
	}

	if balance <= fee {
		res.Error = fmt.Sprintf("insufficient balance: %d lamports cannot cover %d lamport fee", balance, fee)
		return false
	}
	amount := balance - fee

	unsigned, err := wire.BuildTransfer(e.wallet.PublicKey, dest, blockhash, amount)
	if err != nil {
		res.Error = fmt.Sprintf("sweep transfer: %v", err)
		return false
	}
	parsed, err := wire.Parse(unsigned)
	if err != nil {
		res.Error = fmt.Sprintf("sweep transfer: %v", err)
		return false
	}
	signed, err := wire.AssembleSigned(unsigned, parsed, []wire.Signer{{
		PublicKey:  e.wallet.PublicKey,
		PrivateKey: e.wallet.PrivateKey,
	}})
	if err != nil {
		res.Error = fmt.Sprintf("sign sweep: %v", err)
		return false
	}

	sig, err := e.rpc.SendTransaction(ctx, signed)
	if err != nil {
		res.Error = fmt.Sprintf("submit sweep: %v", err)
		return false
	}
	res.SweepSignature = sig
	res.SweptLamports = amount

	confirmed, err := e.awaitConfirmation(ctx, sig)
	if err != nil {
		res.Error = fmt.Sprintf("sweep: %v", err)
		return false
	}
	if !confirmed {
		log.Printf("sweep %s submitted but unconfirmed", sig)
	}
	return true
}
