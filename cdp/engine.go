// Package cdp implements the collateralized debt position engine: per-user
// collateral and debt accounting, the health-factor solvency predicate, and
// the deposit/mint/burn/redeem/liquidate operation set, serialized behind a
// single-writer lock the way the teacher's lending engine serializes its
// market mutations.
package cdp

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/events"
	"github.com/MGM103/CDP-Stable-Coin/core/types"
	"github.com/MGM103/CDP-Stable-Coin/fixedpoint"
	"github.com/MGM103/CDP-Stable-Coin/observability/metrics"
	"github.com/MGM103/CDP-Stable-Coin/oracle"
)

// Engine is the CDP accounting state machine. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	mu sync.RWMutex

	self types.Address

	collaterals []types.AssetSymbol
	permitted   map[types.AssetSymbol]int
	oracles     map[types.AssetSymbol]priceReader
	ledgers     map[types.AssetSymbol]CollateralLedger

	debtToken DebtToken

	poolID string
	state  EngineState
	pauses PauseView
	events events.Emitter

	telemetry *metrics.CdpMetrics
}

// priceReader is the subset of *oracle.Adapter the engine depends on,
// narrowed to keep the engine package decoupled from the oracle package's
// concrete type for testing.
type priceReader interface {
	PriceUSD() (*uint256.Int, error)
}

// NewEngine constructs an engine over a fixed, ordered permitted-collateral
// set. debtToken must be non-nil; configs must be non-empty and free of
// duplicate assets, and every configured asset needs a non-empty name, an
// oracle, and a ledger in ledgers (extra ledger entries are ignored);
// violations fail with ErrInvalidConstructorArgs (spec §6).
func NewEngine(self types.Address, debtToken DebtToken, configs []CollateralConfig, ledgers map[types.AssetSymbol]CollateralLedger) (*Engine, error) {
	if len(configs) == 0 || debtToken == nil {
		return nil, ErrInvalidConstructorArgs
	}
	e := &Engine{
		self:        self,
		collaterals: make([]types.AssetSymbol, 0, len(configs)),
		permitted:   make(map[types.AssetSymbol]int, len(configs)),
		oracles:     make(map[types.AssetSymbol]priceReader, len(configs)),
		ledgers:     make(map[types.AssetSymbol]CollateralLedger, len(configs)),
		debtToken:   debtToken,
		poolID:      "default",
		events:      events.NoopEmitter{},
		telemetry:   metrics.Cdp(),
	}
	for _, cfg := range configs {
		if cfg.Asset == "" || cfg.Oracle == nil {
			return nil, ErrInvalidConstructorArgs
		}
		if _, exists := e.permitted[cfg.Asset]; exists {
			return nil, ErrInvalidConstructorArgs
		}
		ledger, ok := ledgers[cfg.Asset]
		if !ok || ledger == nil {
			return nil, ErrInvalidConstructorArgs
		}
		e.permitted[cfg.Asset] = len(e.collaterals)
		e.collaterals = append(e.collaterals, cfg.Asset)
		e.oracles[cfg.Asset] = cfg.Oracle
		e.ledgers[cfg.Asset] = ledger
	}
	return e, nil
}

// SetState wires the persistence seam. Without one, every mutating
// operation and every query that reads positions fails with
// ErrInvalidConstructorArgs.
func (e *Engine) SetState(state EngineState) { e.state = state }

// SetPauses wires the module-pause view. A nil view (the default) never
// pauses the engine.
func (e *Engine) SetPauses(p PauseView) { e.pauses = p }

// SetEmitter wires the observable event log. A nil emitter is replaced with
// a NoopEmitter so callers never need a nil check.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.events = em
}

// SetPoolID threads a pool identity through to the EngineState, allowing one
// EngineState implementation to back multiple independently-isolated
// engines (expansion feature: multi-pool deployments).
func (e *Engine) SetPoolID(poolID string) {
	if poolID == "" {
		poolID = "default"
	}
	e.poolID = poolID
}

func (e *Engine) isPermitted(asset types.AssetSymbol) bool {
	_, ok := e.permitted[asset]
	return ok
}

func (e *Engine) requirePermitted(asset types.AssetSymbol) error {
	if !e.isPermitted(asset) {
		return &CollateralNotPermittedError{Asset: asset}
	}
	return nil
}

func (e *Engine) requireState() error {
	if e.state == nil {
		return ErrInvalidConstructorArgs
	}
	return nil
}

func (e *Engine) loadPosition(user types.Address) (*UserPosition, error) {
	pos, err := e.state.GetPosition(e.poolID, user)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return newUserPosition(), nil
	}
	return pos, nil
}

// collateralUsd sums usdValueOf across every permitted asset the position
// holds, in permitted-set iteration order (deterministic aggregation, §3).
func (e *Engine) collateralUsd(pos *UserPosition) (*uint256.Int, error) {
	total := uint256.NewInt(0)
	for _, asset := range e.collaterals {
		amount := pos.collateralOf(asset)
		if amount.IsZero() {
			continue
		}
		price, err := e.priceUSD(asset)
		if err != nil {
			return nil, err
		}
		usd, err := fixedpoint.UsdValueOf(price, amount)
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

// priceUSD reads asset's current oracle price, recording the OracleStale
// counter when the read fails due to a stale round.
func (e *Engine) priceUSD(asset types.AssetSymbol) (*uint256.Int, error) {
	price, err := e.oracles[asset].PriceUSD()
	if err != nil {
		if e.telemetry != nil && errors.Is(err, oracle.ErrStalePrice) {
			e.telemetry.OracleStale.WithLabelValues(string(asset)).Inc()
		}
		return nil, err
	}
	return price, nil
}

func addOverflowChecked(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return sum, nil
}

// healthFactorOf computes the health factor for a loaded position (spec
// §4.3): +∞ (saturating max) when debt is zero, else
// collUsd * LIQUIDATION_THRESHOLD / LIQUIDATION_PRECISION * P_T / debt.
func (e *Engine) healthFactorOf(pos *UserPosition) (*uint256.Int, error) {
	if pos.Debt == nil || pos.Debt.IsZero() {
		return fixedpoint.MaxUint256(), nil
	}
	collUsd, err := e.collateralUsd(pos)
	if err != nil {
		return nil, err
	}
	eff, err := fixedpoint.MulDiv(collUsd, uint256.NewInt(LiquidationThreshold), uint256.NewInt(LiquidationPrecision))
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(eff, fixedpoint.TokenPrecision, pos.Debt)
}

// HealthFactor is the public read-only query (spec §4.5). It takes the read
// lock only; it never mutates state.
func (e *Engine) HealthFactor(user types.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	return e.healthFactorOf(pos)
}

func isLiquidatable(hf *uint256.Int) bool {
	return hf.Lt(fixedpoint.TokenPrecision)
}

// recordOutcome updates the operations counters for op and, on success,
// refreshes the supply/collateral gauges. Returns err unchanged so callers
// can tail-call it as their return statement.
func (e *Engine) recordOutcome(op string, err error) error {
	if e.telemetry == nil {
		return err
	}
	if err != nil {
		e.telemetry.OperationsFailed.WithLabelValues(op, errorKind(err)).Inc()
		e.telemetry.OperationsTotal.WithLabelValues(op, "failure").Inc()
		return err
	}
	e.telemetry.OperationsTotal.WithLabelValues(op, "success").Inc()
	e.updateGauges()
	return nil
}

// updateGauges refreshes the supply/collateral gauges from the engine's own
// locked accessors. Any read failure is swallowed: a gauge going briefly
// stale is preferable to a successful operation failing on telemetry.
func (e *Engine) updateGauges() {
	if e.telemetry == nil {
		return
	}
	if total, err := e.totalDscSupplyLocked(); err == nil && total != nil {
		e.telemetry.TotalDscSupply.Set(uint256ToFloat(total))
	}
	if usd, err := e.protocolCollateralUsdLocked(); err == nil && usd != nil {
		e.telemetry.ProtocolCollateral.Set(uint256ToFloat(usd))
	}
}

func uint256ToFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

// errorKind maps a returned error to a short, low-cardinality label for the
// OperationsFailed counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, ErrInsufficientDebt):
		return "insufficient_debt"
	case errors.Is(err, ErrPositionNotLiquidatable):
		return "not_liquidatable"
	case errors.Is(err, ErrLiquidationDidNotImprove):
		return "liquidation_did_not_improve"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrMintFailed):
		return "mint_failed"
	case errors.Is(err, ErrModulePaused):
		return "paused"
	case errors.Is(err, ErrTotalSupplyMismatch):
		return "total_supply_mismatch"
	}
	var notPermitted *CollateralNotPermittedError
	if errors.As(err, &notPermitted) {
		return "collateral_not_permitted"
	}
	var hfLow *HealthFactorTooLowError
	if errors.As(err, &hfLow) {
		return "health_factor_too_low"
	}
	return "other"
}

// DepositCollateral credits the caller's collateral balance and pulls the
// corresponding amount from the caller's external ledger balance into the
// engine. Depositing cannot reduce health, so no post-condition check runs
// (spec §4.3).
func (e *Engine) DepositCollateral(caller types.Address, asset types.AssetSymbol, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("depositCollateral", e.depositCollateralLocked(caller, asset, amount))
}

func (e *Engine) depositCollateralLocked(caller types.Address, asset types.AssetSymbol, amount *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requirePermitted(asset); err != nil {
		return err
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	sum, err := addOverflowChecked(working.collateralOf(asset), amount)
	if err != nil {
		return err
	}
	working.Collateral[asset] = sum

	ledger := e.ledgers[asset]
	ok, err := ledger.TransferFrom(caller, e.self, amount)
	if err != nil {
		return err
	}
	if !ok {
		return &CollateralTransferFailedError{Asset: asset, Amount: amount}
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	e.events.Emit(events.CollateralDeposited{User: caller, Asset: asset, Amount: amount.String()})
	return nil
}

// MintDsc increases the caller's debt and, only if the resulting health
// factor is sufficient, mints DSC to the caller. On rejection the debt
// increment never reaches persisted state (spec §4.3).
func (e *Engine) MintDsc(caller types.Address, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("mintDsc", e.mintDscLocked(caller, amount))
}

func (e *Engine) mintDscLocked(caller types.Address, amount *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	newDebt, err := addOverflowChecked(working.Debt, amount)
	if err != nil {
		return err
	}
	working.Debt = newDebt

	hf, err := e.healthFactorOf(working)
	if err != nil {
		return err
	}
	if hf.Lt(fixedpoint.TokenPrecision) {
		return &HealthFactorTooLowError{HealthFactor: hf}
	}

	ok, err := e.debtToken.Mint(caller, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMintFailed
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	if err := e.bumpTotalDsc(amount, true); err != nil {
		return err
	}
	e.events.Emit(events.DscMinted{User: caller, Amount: amount.String()})
	return nil
}

// RedeemCollateral subtracts from the caller's collateral balance and
// refuses the operation up front if the resulting health factor would be
// insufficient, per design note §9 option (a): the post-condition is
// evaluated on the working position before the external transfer executes,
// so a rejected redemption never touches the external ledger.
func (e *Engine) RedeemCollateral(caller types.Address, asset types.AssetSymbol, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("redeemCollateral", e.redeemCollateralLocked(caller, asset, amount))
}

func (e *Engine) redeemCollateralLocked(caller types.Address, asset types.AssetSymbol, amount *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requirePermitted(asset); err != nil {
		return err
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	current := working.collateralOf(asset)
	if current.Lt(amount) {
		return ErrInsufficientCollateral
	}
	working.Collateral[asset] = new(uint256.Int).Sub(current, amount)

	hf, err := e.healthFactorOf(working)
	if err != nil {
		return err
	}
	if hf.Lt(fixedpoint.TokenPrecision) {
		return &HealthFactorTooLowError{HealthFactor: hf}
	}

	ledger := e.ledgers[asset]
	ok, err := ledger.Transfer(caller, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	e.events.Emit(events.CollateralRedeemed{From: caller, To: caller, Asset: asset, Amount: amount.String()})
	return nil
}

// BurnDsc decreases the caller's debt and burns the DSC pulled from the
// caller's external balance. Burning cannot reduce health, so no
// post-condition check runs (spec §4.3).
func (e *Engine) BurnDsc(caller types.Address, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("burnDsc", e.burnDscLocked(caller, amount))
}

func (e *Engine) burnDscLocked(caller types.Address, amount *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	if working.Debt.Lt(amount) {
		return ErrInsufficientDebt
	}
	working.Debt = new(uint256.Int).Sub(working.Debt, amount)

	ok, err := e.debtToken.TransferFrom(caller, e.self, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}
	if err := e.debtToken.Burn(amount); err != nil {
		return err
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	if err := e.bumpTotalDsc(amount, false); err != nil {
		return err
	}
	e.events.Emit(events.DscBurned{User: caller, Amount: amount.String()})
	return nil
}

// DepositCollateralAndMintDsc composes DepositCollateral and MintDsc as a
// single atomic operation (spec §4.3): a mint failure is reported to the
// caller without any durable effect from the deposit. Both steps run under
// one hold of the lock, the health check runs before either external call,
// the position is persisted only after both calls succeed, and collateral
// already pulled is transferred back if the mint fails.
func (e *Engine) DepositCollateralAndMintDsc(caller types.Address, asset types.AssetSymbol, amountColl, amountDsc *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("depositCollateralAndMintDsc", e.depositAndMintLocked(caller, asset, amountColl, amountDsc))
}

// RedeemCollateralForDsc composes BurnDsc and RedeemCollateral as a single
// atomic operation (spec §4.3): burn first, then redeem, so the freed
// collateral capacity from the repayment is available to the redemption's
// health check.
func (e *Engine) RedeemCollateralForDsc(caller types.Address, asset types.AssetSymbol, amountColl, amountDsc *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordOutcome("redeemCollateralForDsc", e.redeemForDscLocked(caller, asset, amountColl, amountDsc))
}

// depositAndMintLocked performs both effects against one working copy of the
// position and evaluates the health check exactly once, before either
// external call executes — unlike the sequential public methods, a mint
// rejection here never reaches the collateral ledger at all.
func (e *Engine) depositAndMintLocked(caller types.Address, asset types.AssetSymbol, amountColl, amountDsc *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amountColl == nil || amountColl.IsZero() || amountDsc == nil || amountDsc.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requirePermitted(asset); err != nil {
		return err
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	sum, err := addOverflowChecked(working.collateralOf(asset), amountColl)
	if err != nil {
		return err
	}
	working.Collateral[asset] = sum
	newDebt, err := addOverflowChecked(working.Debt, amountDsc)
	if err != nil {
		return err
	}
	working.Debt = newDebt

	hf, err := e.healthFactorOf(working)
	if err != nil {
		return err
	}
	if hf.Lt(fixedpoint.TokenPrecision) {
		return &HealthFactorTooLowError{HealthFactor: hf}
	}

	ledger := e.ledgers[asset]
	ok, err := ledger.TransferFrom(caller, e.self, amountColl)
	if err != nil {
		return err
	}
	if !ok {
		return &CollateralTransferFailedError{Asset: asset, Amount: amountColl}
	}
	ok, err = e.debtToken.Mint(caller, amountDsc)
	if err != nil || !ok {
		// Return the pulled collateral so a failed mint leaves no effect
		// from the deposit.
		if refunded, refundErr := ledger.Transfer(caller, amountColl); refundErr != nil || !refunded {
			return ErrTransferFailed
		}
		if err != nil {
			return err
		}
		return ErrMintFailed
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	if err := e.bumpTotalDsc(amountDsc, true); err != nil {
		return err
	}
	e.events.Emit(events.CollateralDeposited{User: caller, Asset: asset, Amount: amountColl.String()})
	e.events.Emit(events.DscMinted{User: caller, Amount: amountDsc.String()})
	return nil
}

// redeemForDscLocked burns first, then redeems, evaluating the health check
// once against the fully-repaid-and-redeemed working position, so that the
// collateral capacity freed by the repayment is available to the
// redemption.
func (e *Engine) redeemForDscLocked(caller types.Address, asset types.AssetSymbol, amountColl, amountDsc *uint256.Int) error {
	if err := Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireState(); err != nil {
		return err
	}
	if amountColl == nil || amountColl.IsZero() || amountDsc == nil || amountDsc.IsZero() {
		return ErrZeroAmount
	}
	if err := e.requirePermitted(asset); err != nil {
		return err
	}

	pos, err := e.loadPosition(caller)
	if err != nil {
		return err
	}
	working := pos.clone()
	if working.Debt.Lt(amountDsc) {
		return ErrInsufficientDebt
	}
	working.Debt = new(uint256.Int).Sub(working.Debt, amountDsc)

	current := working.collateralOf(asset)
	if current.Lt(amountColl) {
		return ErrInsufficientCollateral
	}
	working.Collateral[asset] = new(uint256.Int).Sub(current, amountColl)

	hf, err := e.healthFactorOf(working)
	if err != nil {
		return err
	}
	if hf.Lt(fixedpoint.TokenPrecision) {
		return &HealthFactorTooLowError{HealthFactor: hf}
	}

	ok, err := e.debtToken.TransferFrom(caller, e.self, amountDsc)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}
	if err := e.debtToken.Burn(amountDsc); err != nil {
		return err
	}
	ledger := e.ledgers[asset]
	ok, err = ledger.Transfer(caller, amountColl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}

	if err := e.state.PutPosition(e.poolID, caller, working); err != nil {
		return err
	}
	if err := e.bumpTotalDsc(amountDsc, false); err != nil {
		return err
	}
	e.events.Emit(events.DscBurned{User: caller, Amount: amountDsc.String()})
	e.events.Emit(events.CollateralRedeemed{From: caller, To: caller, Asset: asset, Amount: amountColl.String()})
	return nil
}

func (e *Engine) bumpTotalDsc(amount *uint256.Int, increase bool) error {
	total, err := e.state.TotalDscIssued(e.poolID)
	if err != nil {
		return err
	}
	if total == nil {
		total = uint256.NewInt(0)
	}
	var next *uint256.Int
	if increase {
		next, err = addOverflowChecked(total, amount)
		if err != nil {
			return err
		}
	} else {
		if total.Lt(amount) {
			next = uint256.NewInt(0)
		} else {
			next = new(uint256.Int).Sub(total, amount)
		}
	}
	// Cross-check against the debt token's own global supply accessor: this
	// pool's tracked issuance can never legitimately exceed what the ledger
	// itself believes is outstanding (spec §4.7/§8).
	if supply, err := e.debtToken.TotalSupply(); err == nil && supply != nil && next.Gt(supply) {
		return ErrTotalSupplyMismatch
	}
	return e.state.PutTotalDscIssued(e.poolID, next)
}
