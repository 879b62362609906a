package cdp

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/fixedpoint"
)

// Input errors.
var (
	ErrZeroAmount             = errors.New("cdp: amount must be positive")
	ErrInvalidConstructorArgs = errors.New("cdp: invalid constructor arguments")
)

// ErrModulePaused is returned by Guard when the engine's module name is
// reported paused by the wired PauseView.
var ErrModulePaused = errors.New("cdp: module is paused")

// Balance/accounting errors.
var (
	ErrInsufficientCollateral = errors.New("cdp: insufficient collateral")
	ErrInsufficientDebt       = errors.New("cdp: insufficient debt")
)

// Solvency errors.
var (
	ErrPositionNotLiquidatable = errors.New("cdp: position not liquidatable")
	ErrLiquidationDidNotImprove = errors.New("cdp: liquidation did not improve health factor")
)

// External-collaborator errors.
var (
	ErrTransferFailed = errors.New("cdp: external ledger transfer failed")
	ErrMintFailed     = errors.New("cdp: debt token mint failed")
)

// ErrTotalSupplyMismatch is returned when this pool's internally tracked DSC
// issuance would exceed the debt token's own reported total supply, the
// defensive cross-check described in spec §4.7/§8.
var ErrTotalSupplyMismatch = errors.New("cdp: tracked dsc total exceeds debt token supply")

// Arithmetic errors are re-exported from fixedpoint so callers can match on
// a single taxonomy without importing that package directly.
var (
	ErrOverflow       = fixedpoint.ErrOverflow
	ErrDivisionByZero = fixedpoint.ErrDivisionByZero
)

// CollateralNotPermittedError reports a reference to an asset outside the
// engine's fixed permitted set.
type CollateralNotPermittedError struct {
	Asset types.AssetSymbol
}

func (e *CollateralNotPermittedError) Error() string {
	return fmt.Sprintf("cdp: collateral %q not permitted", e.Asset)
}

// HealthFactorTooLowError reports the health factor (token precision) that
// would result from, or resulted from, a rejected operation.
type HealthFactorTooLowError struct {
	HealthFactor *uint256.Int
}

func (e *HealthFactorTooLowError) Error() string {
	hf := "<nil>"
	if e.HealthFactor != nil {
		hf = e.HealthFactor.String()
	}
	return fmt.Sprintf("cdp: health factor too low: %s", hf)
}

// CollateralTransferFailedError reports a failed external ledger call during
// a deposit.
type CollateralTransferFailedError struct {
	Asset  types.AssetSymbol
	Amount *uint256.Int
}

func (e *CollateralTransferFailedError) Error() string {
	amt := "<nil>"
	if e.Amount != nil {
		amt = e.Amount.String()
	}
	return fmt.Sprintf("cdp: collateral transfer of %s %s failed", amt, e.Asset)
}

// Is allows errors.Is(err, ErrTransferFailed) to match the typed variant,
// since a collateral transfer failure is also, generically, a transfer
// failure.
func (e *CollateralTransferFailedError) Is(target error) bool {
	return target == ErrTransferFailed
}
