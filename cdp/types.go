package cdp

import (
	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/oracle"
)

// Risk constants, fixed for the lifetime of an engine (spec §4.3).
const (
	// LiquidationThreshold expresses the fraction of collateral USD value
	// treated as backing, in percent (50 -> 200% required over-collateralization).
	LiquidationThreshold = 50
	// LiquidationPrecision is the denominator LiquidationThreshold and
	// LiquidationBonus are expressed against.
	LiquidationPrecision = 100
	// LiquidationBonus is the extra collateral (percent) paid to a
	// liquidator as incentive.
	LiquidationBonus = 10
)

// CollateralConfig pairs a permitted collateral asset with its price oracle
// adapter. The ordered slice of these passed to NewEngine fixes the
// permitted set for the engine's lifetime (spec §3, §6).
type CollateralConfig struct {
	Asset  types.AssetSymbol
	Oracle *oracle.Adapter
}

// CollateralLedger is the external collaborator for a single permitted
// collateral asset (spec §6). A false return is treated identically to a
// raised error.
type CollateralLedger interface {
	TransferFrom(from, to types.Address, amount *uint256.Int) (bool, error)
	Transfer(to types.Address, amount *uint256.Int) (bool, error)
	BalanceOf(addr types.Address) (*uint256.Int, error)
}

// DebtToken is the external collaborator for the DSC ledger (spec §6). The
// engine is the sole authority permitted to mint or burn; the engine does
// not own user DSC balances.
type DebtToken interface {
	CollateralLedger
	Mint(to types.Address, amount *uint256.Int) (bool, error)
	Burn(amount *uint256.Int) error
	TotalSupply() (*uint256.Int, error)
}

// PauseView reports whether a named module is currently halted. The engine
// defaults to an always-unpaused view when none is wired, so unconfigured
// behavior matches the spec exactly.
type PauseView interface {
	IsPaused(module string) bool
}

const moduleName = "cdp"

// Guard returns ErrModulePaused if p reports the module as paused. A nil
// PauseView never pauses anything.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	if p.IsPaused(moduleName) {
		return ErrModulePaused
	}
	return nil
}

// UserPosition is the per-user CDP state: collateral balances per permitted
// asset and a single DSC debt balance (spec §3).
type UserPosition struct {
	Collateral map[types.AssetSymbol]*uint256.Int
	Debt       *uint256.Int
}

func newUserPosition() *UserPosition {
	return &UserPosition{
		Collateral: make(map[types.AssetSymbol]*uint256.Int),
		Debt:       uint256.NewInt(0),
	}
}

func (p *UserPosition) collateralOf(asset types.AssetSymbol) *uint256.Int {
	if p == nil {
		return uint256.NewInt(0)
	}
	if amt, ok := p.Collateral[asset]; ok && amt != nil {
		return amt
	}
	return uint256.NewInt(0)
}

// clone deep-copies the position so the engine can mutate a working copy and
// discard it on rollback without touching committed state.
func (p *UserPosition) clone() *UserPosition {
	out := newUserPosition()
	if p == nil {
		return out
	}
	for asset, amt := range p.Collateral {
		if amt == nil {
			continue
		}
		out.Collateral[asset] = new(uint256.Int).Set(amt)
	}
	if p.Debt != nil {
		out.Debt = new(uint256.Int).Set(p.Debt)
	}
	return out
}

// EngineState is the persistence seam the engine mutates through. It is
// deliberately narrow (load/store a whole position at a time) so both an
// in-memory map and a durable key-value store can satisfy it, following the
// teacher's engineState interface shape (native/lending.Engine).
type EngineState interface {
	GetPosition(poolID string, user types.Address) (*UserPosition, error)
	PutPosition(poolID string, user types.Address, position *UserPosition) error
	TotalDscIssued(poolID string) (*uint256.Int, error)
	PutTotalDscIssued(poolID string, total *uint256.Int) error
}
