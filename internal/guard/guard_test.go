package guard

import "testing"

func TestCheckBuy_Allowed(t *testing.T) {
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 0.02, Balance: 0.1}, DefaultLimits())
	if !res.Allowed {
		t.Fatalf("expected allowed, blocked with %s: %s", res.Reason, res.Message)
	}
}

func TestCheckBuy_MaxBuysReached(t *testing.T) {
	// Max buys wins regardless of amount or balance.
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 99, Balance: 0, BuyCount: 2}, DefaultLimits())
	if res.Allowed || res.Reason != ReasonMaxBuysReached {
		t.Errorf("expected %s, got %+v", ReasonMaxBuysReached, res)
	}
}

func TestCheckBuy_AmountTooLarge(t *testing.T) {
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 0.5, Balance: 10}, DefaultLimits())
	if res.Allowed || res.Reason != ReasonAmountTooLarge {
		t.Errorf("expected %s, got %+v", ReasonAmountTooLarge, res)
	}
}

func TestCheckBuy_LowBalance(t *testing.T) {
	// Balance 0.004 with floor 0.01: even a tiny buy is blocked.
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 0.002, Balance: 0.004}, DefaultLimits())
	if res.Allowed || res.Reason != ReasonLowBalance {
		t.Errorf("expected %s, got %+v", ReasonLowBalance, res)
	}
}

func TestCheckBuy_WouldDrainBalance(t *testing.T) {
	limits := DefaultLimits()
	// 0.02 - 0.015 - 0.005 = 0 < 0.002 reserve floor.
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 0.015, Balance: 0.02}, limits)
	if res.Allowed || res.Reason != ReasonWouldDrainBalance {
		t.Errorf("expected %s, got %+v", ReasonWouldDrainBalance, res)
	}
}

func TestCheckBuyLocal_CapsOnly(t *testing.T) {
	// Local checks ignore balance entirely: a zero balance passes.
	res := CheckBuyLocal(BuyRequest{Mint: "m", Amount: 0.02, Balance: 0}, DefaultLimits())
	if !res.Allowed {
		t.Errorf("expected allowed, got %+v", res)
	}

	res = CheckBuyLocal(BuyRequest{Mint: "m", Amount: 0.02, BuyCount: 2}, DefaultLimits())
	if res.Allowed || res.Reason != ReasonMaxBuysReached {
		t.Errorf("expected %s, got %+v", ReasonMaxBuysReached, res)
	}

	res = CheckBuyLocal(BuyRequest{Mint: "m", Amount: 0.5}, DefaultLimits())
	if res.Allowed || res.Reason != ReasonAmountTooLarge {
		t.Errorf("expected %s, got %+v", ReasonAmountTooLarge, res)
	}
}

func TestCheckBuy_OrderOfChecks(t *testing.T) {
	// Amount too large AND low balance: amount check fires first.
	res := CheckBuy(BuyRequest{Mint: "m", Amount: 5, Balance: 0.001}, DefaultLimits())
	if res.Reason != ReasonAmountTooLarge {
		t.Errorf("amount check should precede balance check, got %s", res.Reason)
	}
}
