package events

import (
	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

const (
	// TypeCollateralDeposited is emitted whenever a user locks collateral.
	TypeCollateralDeposited = "cdp.collateral_deposited"
	// TypeCollateralRedeemed is emitted whenever collateral leaves the engine,
	// whether via a direct user redemption or a liquidation seizure.
	TypeCollateralRedeemed = "cdp.collateral_redeemed"
	// TypeDscMinted is emitted whenever new debt is issued against a position.
	TypeDscMinted = "cdp.dsc_minted"
	// TypeDscBurned is emitted whenever outstanding debt is repaid.
	TypeDscBurned = "cdp.dsc_burned"
	// TypePositionLiquidated summarizes a completed liquidation.
	TypePositionLiquidated = "cdp.position_liquidated"
)

// CollateralDeposited records a successful depositCollateral call.
type CollateralDeposited struct {
	User   types.Address
	Asset  types.AssetSymbol
	Amount string
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset.String(),
			"amount": e.Amount,
		},
	}
}

// CollateralRedeemed records collateral leaving the engine to `to`, debited
// from `from`'s ledger. from == to for a direct redemption; from != to for a
// liquidation seizure.
type CollateralRedeemed struct {
	From   types.Address
	To     types.Address
	Asset  types.AssetSymbol
	Amount string
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralRedeemed,
		Attributes: map[string]string{
			"from":   e.From.String(),
			"to":     e.To.String(),
			"asset":  e.Asset.String(),
			"amount": e.Amount,
		},
	}
}

// DscMinted records new debt issued to a user.
type DscMinted struct {
	User   types.Address
	Amount string
}

func (DscMinted) EventType() string { return TypeDscMinted }

func (e DscMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeDscMinted,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"amount": e.Amount,
		},
	}
}

// DscBurned records debt repaid and removed from circulation.
type DscBurned struct {
	User   types.Address
	Amount string
}

func (DscBurned) EventType() string { return TypeDscBurned }

func (e DscBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeDscBurned,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"amount": e.Amount,
		},
	}
}

// PositionLiquidated summarizes a completed liquidation.
type PositionLiquidated struct {
	Liquidator       types.Address
	User             types.Address
	Asset            types.AssetSymbol
	DebtRepaidUsd    string
	CollateralSeized string
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypePositionLiquidated,
		Attributes: map[string]string{
			"liquidator":       e.Liquidator.String(),
			"user":             e.User.String(),
			"asset":            e.Asset.String(),
			"debtRepaidUsd":    e.DebtRepaidUsd,
			"collateralSeized": e.CollateralSeized,
		},
	}
}
