package ledger

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

var errInsufficientEngineBalance = errors.New("ledger: engine balance insufficient to burn")

// MemDebtToken is an in-memory reference DSC ledger, backing
// cdp.DebtToken. The engine is its sole minting and burning authority by
// convention: nothing in this type enforces that beyond what the caller
// wires the engine to hold.
type MemDebtToken struct {
	mu          sync.Mutex
	engineAddr  types.Address
	balances    map[types.Address]*uint256.Int
	totalSupply *uint256.Int
}

// NewMemDebtToken constructs an empty DSC ledger, debiting Transfer calls
// from engineAddr's balance.
func NewMemDebtToken(engineAddr types.Address) *MemDebtToken {
	return &MemDebtToken{
		engineAddr:  engineAddr,
		balances:    make(map[types.Address]*uint256.Int),
		totalSupply: uint256.NewInt(0),
	}
}

// BalanceOf implements cdp.CollateralLedger (embedded by cdp.DebtToken).
func (t *MemDebtToken) BalanceOf(addr types.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(balanceOrZero(t.balances[addr])), nil
}

// TransferFrom implements cdp.CollateralLedger (embedded by cdp.DebtToken).
func (t *MemDebtToken) TransferFrom(from, to types.Address, amount *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := balanceOrZero(t.balances[from])
	if bal.Lt(amount) {
		return false, nil
	}
	t.balances[from] = new(uint256.Int).Sub(bal, amount)
	t.balances[to] = addOrZero(t.balances[to], amount)
	return true, nil
}

// Transfer implements cdp.CollateralLedger (embedded by cdp.DebtToken).
func (t *MemDebtToken) Transfer(to types.Address, amount *uint256.Int) (bool, error) {
	return t.TransferFrom(t.engineAddr, to, amount)
}

// Mint implements cdp.DebtToken: the engine is the only caller expected to
// invoke this.
func (t *MemDebtToken) Mint(to types.Address, amount *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = addOrZero(t.balances[to], amount)
	t.totalSupply = new(uint256.Int).Add(t.totalSupply, amount)
	return true, nil
}

// Burn implements cdp.DebtToken: it reduces the supply tracked by the
// ledger itself (the tokens were already pulled into the engine's own
// balance by a prior TransferFrom call before Burn is invoked).
func (t *MemDebtToken) Burn(amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	engineBal := balanceOrZero(t.balances[t.engineAddr])
	if engineBal.Lt(amount) {
		return errInsufficientEngineBalance
	}
	t.balances[t.engineAddr] = new(uint256.Int).Sub(engineBal, amount)
	t.totalSupply = new(uint256.Int).Sub(t.totalSupply, amount)
	return nil
}

// TotalSupply implements cdp.DebtToken.
func (t *MemDebtToken) TotalSupply() (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.totalSupply), nil
}
