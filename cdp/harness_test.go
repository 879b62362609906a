package cdp

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

// testLedger is a minimal in-package CollateralLedger/DebtToken double, kept
// separate from the ledger package's reference implementation so cdp's own
// tests have no import cycle and can inject failures deterministically.
type testLedger struct {
	mu          sync.Mutex
	engineAddr  types.Address
	balances    map[types.Address]*uint256.Int
	totalSupply *uint256.Int
	failNext    bool
}

func newTestLedger(engineAddr types.Address) *testLedger {
	return &testLedger{
		engineAddr:  engineAddr,
		balances:    make(map[types.Address]*uint256.Int),
		totalSupply: uint256.NewInt(0),
	}
}

func (l *testLedger) credit(addr types.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = zeroAdd(l.balances[addr], amount)
}

func (l *testLedger) balance(addr types.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return zeroOf(l.balances[addr])
}

func (l *testLedger) BalanceOf(addr types.Address) (*uint256.Int, error) {
	return new(uint256.Int).Set(l.balance(addr)), nil
}

func (l *testLedger) TransferFrom(from, to types.Address, amount *uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext {
		l.failNext = false
		return false, nil
	}
	bal := zeroOf(l.balances[from])
	if bal.Lt(amount) {
		return false, nil
	}
	l.balances[from] = new(uint256.Int).Sub(bal, amount)
	l.balances[to] = zeroAdd(l.balances[to], amount)
	return true, nil
}

func (l *testLedger) Transfer(to types.Address, amount *uint256.Int) (bool, error) {
	return l.TransferFrom(l.engineAddr, to, amount)
}

func (l *testLedger) Mint(to types.Address, amount *uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = zeroAdd(l.balances[to], amount)
	l.totalSupply = new(uint256.Int).Add(l.totalSupply, amount)
	return true, nil
}

func (l *testLedger) Burn(amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := zeroOf(l.balances[l.engineAddr])
	l.balances[l.engineAddr] = new(uint256.Int).Sub(bal, amount)
	l.totalSupply = new(uint256.Int).Sub(l.totalSupply, amount)
	return nil
}

func (l *testLedger) TotalSupply() (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.totalSupply), nil
}

func zeroOf(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}

func zeroAdd(existing, amount *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(zeroOf(existing), amount)
}

// testPriceReader is a directly-settable priceReader double.
type testPriceReader struct {
	mu    sync.Mutex
	price *uint256.Int
	err   error
}

func newTestPriceReader(usdWhole uint64) *testPriceReader {
	return &testPriceReader{price: new(uint256.Int).Mul(uint256.NewInt(usdWhole), uint256.NewInt(100_000_000))}
}

func (p *testPriceReader) PriceUSD() (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return new(uint256.Int).Set(p.price), nil
}

func (p *testPriceReader) setWhole(usdWhole uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = new(uint256.Int).Mul(uint256.NewInt(usdWhole), uint256.NewInt(100_000_000))
}

// testMemoryState is an unexported map-backed EngineState for cdp's own
// tests, mirroring the teacher's mockEngineState.
type testMemoryState struct {
	mu        sync.Mutex
	positions map[string]*UserPosition
	totals    map[string]*uint256.Int
}

func newTestMemoryState() *testMemoryState {
	return &testMemoryState{
		positions: make(map[string]*UserPosition),
		totals:    make(map[string]*uint256.Int),
	}
}

func (s *testMemoryState) key(poolID string, user types.Address) string {
	return poolID + "/" + user.String()
}

func (s *testMemoryState) GetPosition(poolID string, user types.Address) (*UserPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[s.key(poolID, user)], nil
}

func (s *testMemoryState) PutPosition(poolID string, user types.Address, position *UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[s.key(poolID, user)] = position
	return nil
}

func (s *testMemoryState) TotalDscIssued(poolID string) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.totals[poolID]; ok {
		return v, nil
	}
	return uint256.NewInt(0), nil
}

func (s *testMemoryState) PutTotalDscIssued(poolID string, total *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[poolID] = total
	return nil
}

func tokenAmount(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), uint256.NewInt(1_000_000_000_000_000_000))
}

func makeAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

var engineSelf = makeAddr(0xEE)

// newWethEngine builds a single-collateral (WETH) engine with a settable
// price reader, wired to fresh in-memory collaborators.
func newWethEngine(usdWhole uint64) (*Engine, *testLedger, *testLedger, *testPriceReader, *testMemoryState) {
	wethLedger := newTestLedger(engineSelf)
	dsc := newTestLedger(engineSelf)
	price := newTestPriceReader(usdWhole)

	e := &Engine{
		self:        engineSelf,
		collaterals: []types.AssetSymbol{"WETH"},
		permitted:   map[types.AssetSymbol]int{"WETH": 0},
		oracles:     map[types.AssetSymbol]priceReader{"WETH": price},
		ledgers:     map[types.AssetSymbol]CollateralLedger{"WETH": wethLedger},
		debtToken:   dsc,
		poolID:      "default",
	}
	e.SetEmitter(nil)
	state := newTestMemoryState()
	e.SetState(state)
	return e, wethLedger, dsc, price, state
}

// newMultiAssetEngine builds a two-collateral (WETH, WBTC) engine, for tests
// that need more than one permitted asset.
func newMultiAssetEngine(wethUsdWhole, wbtcUsdWhole uint64) (*Engine, map[types.AssetSymbol]*testLedger, *testLedger, map[types.AssetSymbol]*testPriceReader, *testMemoryState) {
	ledgers := map[types.AssetSymbol]*testLedger{
		"WETH": newTestLedger(engineSelf),
		"WBTC": newTestLedger(engineSelf),
	}
	prices := map[types.AssetSymbol]*testPriceReader{
		"WETH": newTestPriceReader(wethUsdWhole),
		"WBTC": newTestPriceReader(wbtcUsdWhole),
	}
	dsc := newTestLedger(engineSelf)

	collateralLedgers := make(map[types.AssetSymbol]CollateralLedger, len(ledgers))
	oracles := make(map[types.AssetSymbol]priceReader, len(prices))
	collaterals := make([]types.AssetSymbol, 0, len(ledgers))
	permitted := make(map[types.AssetSymbol]int, len(ledgers))
	for _, asset := range []types.AssetSymbol{"WETH", "WBTC"} {
		permitted[asset] = len(collaterals)
		collaterals = append(collaterals, asset)
		collateralLedgers[asset] = ledgers[asset]
		oracles[asset] = prices[asset]
	}

	e := &Engine{
		self:        engineSelf,
		collaterals: collaterals,
		permitted:   permitted,
		oracles:     oracles,
		ledgers:     collateralLedgers,
		debtToken:   dsc,
		poolID:      "default",
	}
	e.SetEmitter(nil)
	state := newTestMemoryState()
	e.SetState(state)
	return e, ledgers, dsc, prices, state
}
