package cdp

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/fixedpoint"
)

func TestLiquidateHappyPath(t *testing.T) {
	e, wethLedger, dsc, price, state := newWethEngine(4000)
	user := makeAddr(0x01)
	liquidator := makeAddr(0x02)

	collateral := tokenAmount(10)
	wethLedger.credit(user, collateral)
	if err := e.DepositCollateral(user, "WETH", collateral); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.MintDsc(user, tokenAmount(20000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	price.setWhole(3999)
	dsc.credit(liquidator, tokenAmount(20000))

	debtToCoverUsd := tokenAmount(20000)
	if err := e.Liquidate(liquidator, "WETH", user, debtToCoverUsd); err != nil {
		t.Fatalf("liquidate failed: %v", err)
	}

	wethPrice, err := price.PriceUSD()
	if err != nil {
		t.Fatalf("price read failed: %v", err)
	}
	base, err := fixedpoint.TokenAmountFromUsd(wethPrice, debtToCoverUsd)
	if err != nil {
		t.Fatalf("base computation failed: %v", err)
	}
	bonus, err := fixedpoint.MulDiv(base, uint256.NewInt(LiquidationBonus), uint256.NewInt(LiquidationPrecision))
	if err != nil {
		t.Fatalf("bonus computation failed: %v", err)
	}
	wantSeized := new(uint256.Int).Add(base, bonus)

	if bal := wethLedger.balance(liquidator); bal.Cmp(wantSeized) != 0 {
		t.Fatalf("expected liquidator WETH balance %s, got %s", wantSeized, bal)
	}
	if bal := dsc.balance(liquidator); !bal.IsZero() {
		t.Fatalf("expected liquidator DSC balance drained to 0, got %s", bal)
	}

	pos, err := state.GetPosition("default", user)
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if pos.Debt.Sign() != 0 {
		t.Fatalf("expected user debt fully repaid, got %s", pos.Debt)
	}
	wantResidual := new(uint256.Int).Sub(collateral, wantSeized)
	if got := pos.collateralOf("WETH"); got.Cmp(wantResidual) != 0 {
		t.Fatalf("expected residual collateral %s, got %s", wantResidual, got)
	}
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	e, wethLedger, dsc, _, _ := newWethEngine(4000)
	user := makeAddr(0x01)
	liquidator := makeAddr(0x02)

	collateral := tokenAmount(10)
	wethLedger.credit(user, collateral)
	if err := e.DepositCollateral(user, "WETH", collateral); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := e.MintDsc(user, tokenAmount(10000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	dsc.credit(liquidator, tokenAmount(10000))

	err := e.Liquidate(liquidator, "WETH", user, tokenAmount(1000))
	if !errors.Is(err, ErrPositionNotLiquidatable) {
		t.Fatalf("expected ErrPositionNotLiquidatable, got %v", err)
	}
}

// TestLiquidateMustImproveRejectsDeeplyUnderwaterPosition exercises the case
// where E/D < LIQUIDATION_BONUS-adjusted breakeven (0.55 at these
// constants): a partial liquidation's bonus payout reduces effective
// collateral faster than it reduces debt, so the health factor would fall
// further rather than recover. The engine must refuse rather than let a
// liquidator farm bonus off a position it cannot actually rescue.
func TestLiquidateMustImproveRejectsDeeplyUnderwaterPosition(t *testing.T) {
	e, wethLedger, dsc, _, state := newWethEngine(4000)
	user := makeAddr(0x01)
	liquidator := makeAddr(0x02)

	// Directly seed a deeply underwater position (10 WETH, 100000 DSC debt)
	// rather than reaching it through mint, since mint's own health check
	// would refuse to create it; a real position could reach this state via
	// a severe price crash after a healthy mint.
	pos := newUserPosition()
	pos.Collateral["WETH"] = tokenAmount(10)
	pos.Debt = tokenAmount(100000)
	if err := state.PutPosition("default", user, pos); err != nil {
		t.Fatalf("seed position failed: %v", err)
	}
	wethLedger.credit(engineSelf, tokenAmount(10))
	dsc.credit(liquidator, tokenAmount(1000))

	hfBefore, err := e.HealthFactor(user)
	if err != nil {
		t.Fatalf("health factor query failed: %v", err)
	}
	if !isLiquidatable(hfBefore) {
		t.Fatalf("expected seeded position to be liquidatable, hf=%s", hfBefore)
	}

	err = e.Liquidate(liquidator, "WETH", user, tokenAmount(1000))
	if !errors.Is(err, ErrLiquidationDidNotImprove) {
		t.Fatalf("expected ErrLiquidationDidNotImprove, got %v", err)
	}

	postPos, err := state.GetPosition("default", user)
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if postPos.Debt.Cmp(tokenAmount(100000)) != 0 {
		t.Fatalf("expected debt unchanged at 100000 after rejected liquidation, got %s", postPos.Debt)
	}
	if bal := dsc.balance(liquidator); bal.Cmp(tokenAmount(1000)) != 0 {
		t.Fatalf("expected liquidator DSC balance untouched, got %s", bal)
	}
}

func TestLiquidateInsufficientCollateralFails(t *testing.T) {
	e, wethLedger, dsc, _, state := newWethEngine(4000)
	user := makeAddr(0x01)
	liquidator := makeAddr(0x02)

	pos := newUserPosition()
	pos.Collateral["WETH"] = tokenAmount(1)
	pos.Debt = tokenAmount(100000)
	if err := state.PutPosition("default", user, pos); err != nil {
		t.Fatalf("seed position failed: %v", err)
	}
	wethLedger.credit(engineSelf, tokenAmount(1))
	dsc.credit(liquidator, tokenAmount(30000))

	err := e.Liquidate(liquidator, "WETH", user, tokenAmount(30000))
	if !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}
