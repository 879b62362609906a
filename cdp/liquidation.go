package cdp

import (
	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/events"
	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/fixedpoint"
)

// Liquidate seizes collateral from an underwater position and repays part
// of its debt on the liquidator's behalf, paying the liquidator a fixed
// bonus (spec §4.4). The operation is all-or-nothing: any failure after the
// initial checks leaves both the user's and the liquidator's positions
// exactly as they were.
func (e *Engine) Liquidate(liquidator types.Address, asset types.AssetSymbol, user types.Address, debtToCoverUsd *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.liquidateLocked(liquidator, asset, user, debtToCoverUsd)
	if err == nil && e.telemetry != nil {
		e.telemetry.Liquidations.WithLabelValues(string(asset)).Inc()
	}
	return e.recordOutcome("liquidate", err)
}

func (e *Engine) liquidateLocked(liquidator types.Address, asset types.AssetSymbol, user types.Address, debtToCoverUsd *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if debtToCoverUsd == nil || debtToCoverUsd.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requirePermitted(asset); err != nil {
		return err
	}

	userPos, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	hfBefore, err := e.healthFactorOf(userPos)
	if err != nil {
		return err
	}
	if !isLiquidatable(hfBefore) {
		return ErrPositionNotLiquidatable
	}

	price, err := e.priceUSD(asset)
	if err != nil {
		return err
	}
	base, err := fixedpoint.TokenAmountFromUsd(price, debtToCoverUsd)
	if err != nil {
		return err
	}
	bonus, err := fixedpoint.MulDiv(base, uint256.NewInt(LiquidationBonus), uint256.NewInt(LiquidationPrecision))
	if err != nil {
		return err
	}
	seized, err := addOverflowChecked(base, bonus)
	if err != nil {
		return err
	}

	userWorking := userPos.clone()
	currentColl := userWorking.collateralOf(asset)
	if currentColl.Lt(seized) {
		return ErrInsufficientCollateral
	}
	userWorking.Collateral[asset] = new(uint256.Int).Sub(currentColl, seized)

	if userWorking.Debt.Lt(debtToCoverUsd) {
		return ErrInsufficientDebt
	}
	userWorking.Debt = new(uint256.Int).Sub(userWorking.Debt, debtToCoverUsd)

	hfAfter, err := e.healthFactorOf(userWorking)
	if err != nil {
		return err
	}
	if !hfAfter.Gt(hfBefore) {
		return ErrLiquidationDidNotImprove
	}

	liquidatorPos, err := e.loadPosition(liquidator)
	if err != nil {
		return err
	}
	liquidatorWorking := liquidatorPos.clone()
	if liquidator == user {
		// Liquidator is liquidating their own position: their post-state is
		// the user's post-liquidation position.
		liquidatorWorking = userWorking
	}

	liquidatorHf, err := e.healthFactorOf(liquidatorWorking)
	if err != nil {
		return err
	}
	if liquidatorHf.Lt(fixedpoint.TokenPrecision) {
		return &HealthFactorTooLowError{HealthFactor: liquidatorHf}
	}

	ledger := e.ledgers[asset]
	ok, err := ledger.Transfer(liquidator, seized)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}

	ok, err = e.debtToken.TransferFrom(liquidator, e.self, debtToCoverUsd)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}
	if err := e.debtToken.Burn(debtToCoverUsd); err != nil {
		return err
	}

	if err := e.state.PutPosition(e.poolID, user, userWorking); err != nil {
		return err
	}
	if liquidator != user {
		if err := e.state.PutPosition(e.poolID, liquidator, liquidatorWorking); err != nil {
			return err
		}
	}
	if err := e.bumpTotalDsc(debtToCoverUsd, false); err != nil {
		return err
	}

	e.events.Emit(events.CollateralRedeemed{From: user, To: liquidator, Asset: asset, Amount: seized.String()})
	e.events.Emit(events.PositionLiquidated{
		Liquidator:       liquidator,
		User:             user,
		Asset:            asset,
		DebtRepaidUsd:    debtToCoverUsd.String(),
		CollateralSeized: seized.String(),
	})
	return nil
}
