// Package guard implements the pre-trade checks that run before any market
// data is consulted. A failed check is a normal negative result, not an error.
package guard

import "fmt"

// Reason codes for blocked buys.
const (
	ReasonMaxBuysReached    = "MAX_BUYS_REACHED"
	ReasonAmountTooLarge    = "AMOUNT_TOO_LARGE"
	ReasonLowBalance        = "LOW_BALANCE"
	ReasonWouldDrainBalance = "WOULD_DRAIN_BALANCE"
)

// Default limits, SOL denominated.
const (
	DefaultMaxBuysPerToken      = 2
	DefaultMaxBuyAmount         = 0.1
	DefaultMinBalanceForTrading = 0.01
	DefaultFeeReserve           = 0.005
	DefaultReserveFloor         = 0.002
)

// Limits configures the guardrail thresholds.
type Limits struct {
	MaxBuysPerToken      int     `json:"maxBuysPerToken"`
	MaxBuyAmount         float64 `json:"maxBuyAmount"`
	MinBalanceForTrading float64 `json:"minBalanceForTrading"`
	FeeReserve           float64 `json:"feeReserve"`
	ReserveFloor         float64 `json:"reserveFloor"`
}

// DefaultLimits returns the stock guardrail configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxBuysPerToken:      DefaultMaxBuysPerToken,
		MaxBuyAmount:         DefaultMaxBuyAmount,
		MinBalanceForTrading: DefaultMinBalanceForTrading,
		FeeReserve:           DefaultFeeReserve,
		ReserveFloor:         DefaultReserveFloor,
	}
}

// BuyRequest describes a buy about to be attempted.
type BuyRequest struct {
	Mint     string  `json:"mint"`
	Amount   float64 `json:"amount"`   // requested SOL
	Balance  float64 `json:"balance"`  // current wallet balance, SOL
	BuyCount int     `json:"buyCount"` // prior buys of this mint
}

// Result is the outcome of the guardrail chain.
type Result struct {
	Allowed bool    `json:"allowed"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Balance float64 `json:"balance,omitempty"`
	Limit   float64 `json:"limit,omitempty"`
}

// CheckBuyLocal evaluates the checks that need no balance lookup, in order:
// the per-mint buy cap, then the absolute amount cap. Callers run this before
// touching the network so a capped buy never causes an RPC call.
func CheckBuyLocal(req BuyRequest, limits Limits) Result {
	if req.BuyCount >= limits.MaxBuysPerToken {
		return Result{
			Reason:  ReasonMaxBuysReached,
			Message: fmt.Sprintf("already bought %s %d times (max %d)", req.Mint, req.BuyCount, limits.MaxBuysPerToken),
			Limit:   float64(limits.MaxBuysPerToken),
		}
	}

	if req.Amount > limits.MaxBuyAmount {
		return Result{
			Reason:  ReasonAmountTooLarge,
			Message: fmt.Sprintf("buy of %.4f SOL exceeds cap %.4f SOL", req.Amount, limits.MaxBuyAmount),
			Amount:  req.Amount,
			Limit:   limits.MaxBuyAmount,
		}
	}

	return Result{Allowed: true}
}

// CheckBuy evaluates the full chain strictly in order and returns the first block.
func CheckBuy(req BuyRequest, limits Limits) Result {
	if local := CheckBuyLocal(req, limits); !local.Allowed {
		return local
	}

	if req.Balance < limits.MinBalanceForTrading {
		return Result{
			Reason:  ReasonLowBalance,
			Message: fmt.Sprintf("balance %.4f SOL below trading floor %.4f SOL", req.Balance, limits.MinBalanceForTrading),
			Balance: req.Balance,
			Limit:   limits.MinBalanceForTrading,
		}
	}

	remaining := req.Balance - req.Amount - limits.FeeReserve
	if remaining < limits.ReserveFloor {
		return Result{
			Reason:  ReasonWouldDrainBalance,
			Message: fmt.Sprintf("post-trade balance %.4f SOL would fall below reserve %.4f SOL", remaining, limits.ReserveFloor),
			Amount:  req.Amount,
			Balance: req.Balance,
			Limit:   limits.ReserveFloor,
		}
	}

	return Result{Allowed: true}
}
