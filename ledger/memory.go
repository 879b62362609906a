// Package ledger provides in-memory reference implementations of the
// external token collaborators the cdp engine depends on (the collateral
// and DSC ledgers), for tests and for the cdpctl CLI's scripted demo mode.
// A production deployment wires the engine to a real token contract or
// ledger service instead.
package ledger

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

// MemCollateralLedger is a single permitted asset's balance sheet, backing
// cdp.CollateralLedger. engineAddr identifies the balance Transfer debits
// from: the same address passed to cdp.NewEngine as its own identity.
type MemCollateralLedger struct {
	mu         sync.Mutex
	engineAddr types.Address
	balances   map[types.Address]*uint256.Int
}

// NewMemCollateralLedger constructs an empty ledger for one collateral
// asset, debiting Transfer calls from engineAddr's balance.
func NewMemCollateralLedger(engineAddr types.Address) *MemCollateralLedger {
	return &MemCollateralLedger{
		engineAddr: engineAddr,
		balances:   make(map[types.Address]*uint256.Int),
	}
}

// Credit mints balance out of thin air to addr, for test and demo setup
// only; it has no analogue in the external-interface contract (spec §6).
func (l *MemCollateralLedger) Credit(addr types.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = addOrZero(l.balances[addr], amount)
}

// BalanceOf implements cdp.CollateralLedger.
func (l *MemCollateralLedger) BalanceOf(addr types.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(balanceOrZero(l.balances[addr])), nil
}

// TransferFrom implements cdp.CollateralLedger. It returns (false, nil) on
// insufficient balance rather than an error, matching the boolean-return
// external-ledger contract the spec assumes (spec §6).
func (l *MemCollateralLedger) TransferFrom(from, to types.Address, amount *uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := balanceOrZero(l.balances[from])
	if bal.Lt(amount) {
		return false, nil
	}
	l.balances[from] = new(uint256.Int).Sub(bal, amount)
	l.balances[to] = addOrZero(l.balances[to], amount)
	return true, nil
}

// Transfer moves amount out of the engine's own holdings to recipient,
// satisfying cdp.CollateralLedger's single-party transfer for redemptions
// and liquidation payouts.
func (l *MemCollateralLedger) Transfer(to types.Address, amount *uint256.Int) (bool, error) {
	return l.TransferFrom(l.engineAddr, to, amount)
}

func balanceOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}

func addOrZero(existing, amount *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(balanceOrZero(existing), amount)
}
