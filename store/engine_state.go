package store

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/cdp"
	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

// KVEngineState implements cdp.EngineState over a Database, JSON-encoding
// each user's position as a single record keyed by pool and address. It
// threads poolID through every key so one backing Database can serve
// several independently-isolated engines (expansion feature: multi-pool
// deployments).
type KVEngineState struct {
	db Database
}

// NewKVEngineState wraps db as a cdp.EngineState.
func NewKVEngineState(db Database) *KVEngineState {
	return &KVEngineState{db: db}
}

type positionRecord struct {
	Collateral map[types.AssetSymbol]string `json:"collateral"`
	Debt       string                       `json:"debt"`
}

func positionKey(poolID string, user types.Address) []byte {
	return []byte(fmt.Sprintf("cdp/%s/position/%s", poolID, user.String()))
}

func totalKey(poolID string) []byte {
	return []byte(fmt.Sprintf("cdp/%s/total_dsc", poolID))
}

// GetPosition implements cdp.EngineState. A missing record is not an error:
// it returns (nil, nil), which the engine reads as the implicit empty
// position every unseen user has.
func (s *KVEngineState) GetPosition(poolID string, user types.Address) (*cdp.UserPosition, error) {
	raw, err := s.db.Get(positionKey(poolID, user))
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var rec positionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return recordToPosition(rec)
}

// PutPosition implements cdp.EngineState.
func (s *KVEngineState) PutPosition(poolID string, user types.Address, position *cdp.UserPosition) error {
	rec := positionToRecord(position)
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Put(positionKey(poolID, user), raw)
}

// TotalDscIssued implements cdp.EngineState.
func (s *KVEngineState) TotalDscIssued(poolID string) (*uint256.Int, error) {
	raw, err := s.db.Get(totalKey(poolID))
	if err != nil {
		if err == ErrNotFound {
			return uint256.NewInt(0), nil
		}
		return nil, err
	}
	total, err := uint256.FromHex(string(raw))
	if err != nil {
		return nil, err
	}
	return total, nil
}

// PutTotalDscIssued implements cdp.EngineState.
func (s *KVEngineState) PutTotalDscIssued(poolID string, total *uint256.Int) error {
	if total == nil {
		total = uint256.NewInt(0)
	}
	return s.db.Put(totalKey(poolID), []byte(total.Hex()))
}

func positionToRecord(pos *cdp.UserPosition) positionRecord {
	rec := positionRecord{Collateral: make(map[types.AssetSymbol]string), Debt: "0x0"}
	if pos == nil {
		return rec
	}
	for asset, amount := range pos.Collateral {
		if amount == nil {
			continue
		}
		rec.Collateral[asset] = amount.Hex()
	}
	if pos.Debt != nil {
		rec.Debt = pos.Debt.Hex()
	}
	return rec
}

func recordToPosition(rec positionRecord) (*cdp.UserPosition, error) {
	pos := &cdp.UserPosition{Collateral: make(map[types.AssetSymbol]*uint256.Int)}
	for asset, hexAmount := range rec.Collateral {
		amount, err := uint256.FromHex(hexAmount)
		if err != nil {
			return nil, err
		}
		pos.Collateral[asset] = amount
	}
	debt, err := uint256.FromHex(rec.Debt)
	if err != nil {
		return nil, err
	}
	pos.Debt = debt
	return pos, nil
}
