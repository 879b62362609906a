package cdp

import (
	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/fixedpoint"
)

// CdpInfo reports a user's current debt and aggregate collateral USD value
// (spec §4.5).
func (e *Engine) CdpInfo(user types.Address) (debt, collateralUsd *uint256.Int, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err = e.requireState(); err != nil {
		return nil, nil, err
	}
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, nil, err
	}
	collateralUsd, err = e.collateralUsd(pos)
	if err != nil {
		return nil, nil, err
	}
	return new(uint256.Int).Set(pos.Debt), collateralUsd, nil
}

// UsdValueOf is the public wrapper over fixedpoint.UsdValueOf for a
// permitted asset's current oracle price (spec §4.5).
func (e *Engine) UsdValueOf(asset types.AssetSymbol, amount *uint256.Int) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requirePermitted(asset); err != nil {
		return nil, err
	}
	price, err := e.priceUSD(asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.UsdValueOf(price, amount)
}

// TokenAmountFromUsd is the public wrapper over fixedpoint.TokenAmountFromUsd
// for a permitted asset's current oracle price (spec §4.5).
func (e *Engine) TokenAmountFromUsd(asset types.AssetSymbol, usd *uint256.Int) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requirePermitted(asset); err != nil {
		return nil, err
	}
	price, err := e.priceUSD(asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.TokenAmountFromUsd(price, usd)
}

// CollateralOf reports a user's balance of one permitted asset (spec §4.5).
func (e *Engine) CollateralOf(user types.Address, asset types.AssetSymbol) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requirePermitted(asset); err != nil {
		return nil, err
	}
	if err := e.requireState(); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(pos.collateralOf(asset)), nil
}

// PermittedCollateralList returns the permitted asset set in construction
// (insertion) order (spec §4.5).
func (e *Engine) PermittedCollateralList() []types.AssetSymbol {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.AssetSymbol, len(e.collaterals))
	copy(out, e.collaterals)
	return out
}

// LiquidationBonusPercentage returns the fixed liquidation bonus, expressed
// as a percent of LiquidationPrecision (spec §4.5).
func (e *Engine) LiquidationBonusPercentage() int {
	return LiquidationBonus
}

// IsLiquidatable reports whether a user's current health factor is below
// 1.0 (spec §4.4 step 2), an expansion convenience so callers don't need to
// duplicate the comparison against fixedpoint.TokenPrecision.
func (e *Engine) IsLiquidatable(user types.Address) (bool, error) {
	hf, err := e.HealthFactor(user)
	if err != nil {
		return false, err
	}
	return isLiquidatable(hf), nil
}

// TotalDscSupply reports the running total of DSC issued by this engine's
// pool, tracked alongside (not derived from) the debt-token ledger so it
// remains available even when the debt token's own TotalSupply call is
// unavailable (expansion query).
func (e *Engine) TotalDscSupply() (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalDscSupplyLocked()
}

// totalDscSupplyLocked is TotalDscSupply's body without its own lock
// acquisition, for reuse by callers that already hold the engine's lock
// (e.g. the post-operation gauge refresh).
func (e *Engine) totalDscSupplyLocked() (*uint256.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	total, err := e.state.TotalDscIssued(e.poolID)
	if err != nil {
		return nil, err
	}
	if total == nil {
		return uint256.NewInt(0), nil
	}
	return total, nil
}

// BadDebt reports the USD shortfall, if any, between a user's debt and the
// collateral USD value backing it (expansion query, observability-only). A
// liquidation that would need to seize more collateral than the position
// holds reverts in full rather than partially clearing it (spec §4.4 step
// 6), which can leave a position underwater with no liquidator able to
// fully clear it; BadDebt exposes that shortfall for monitoring without
// changing liquidation semantics or socializing the loss anywhere.
func (e *Engine) BadDebt(user types.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	if pos.Debt == nil || pos.Debt.IsZero() {
		return uint256.NewInt(0), nil
	}
	collUsd, err := e.collateralUsd(pos)
	if err != nil {
		return nil, err
	}
	if !collUsd.Lt(pos.Debt) {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Sub(pos.Debt, collUsd), nil
}

// ProtocolCollateralUsd sums the USD value of every permitted asset's
// balance currently held by the engine itself, via each ledger's
// BalanceOf. This is the right-hand side of the published global-solvency
// invariant (spec §8): total_dsc_supply <= Σ usdValueOf(engine_holdings).
func (e *Engine) ProtocolCollateralUsd() (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.protocolCollateralUsdLocked()
}

// protocolCollateralUsdLocked is ProtocolCollateralUsd's body without its own
// lock acquisition, for reuse by callers that already hold the engine's lock.
func (e *Engine) protocolCollateralUsdLocked() (*uint256.Int, error) {
	total := uint256.NewInt(0)
	for _, asset := range e.collaterals {
		bal, err := e.ledgers[asset].BalanceOf(e.self)
		if err != nil {
			return nil, err
		}
		if bal == nil || bal.IsZero() {
			continue
		}
		price, err := e.priceUSD(asset)
		if err != nil {
			return nil, err
		}
		usd, err := fixedpoint.UsdValueOf(price, bal)
		if err != nil {
			return nil, err
		}
		total, err = addOverflowChecked(total, usd)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}
