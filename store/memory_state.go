package store

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/cdp"
	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

// MemoryEngineState is a plain map-backed cdp.EngineState, mirroring the
// teacher's mockEngineState test double. It backs the cdpctl CLI when no
// DataDir is configured, since the CDP engine has no durability requirement
// of its own beyond what the host chooses to wire (spec §6).
type MemoryEngineState struct {
	mu        sync.Mutex
	positions map[string]*cdp.UserPosition
	totals    map[string]*uint256.Int
}

// NewMemoryEngineState constructs an empty state.
func NewMemoryEngineState() *MemoryEngineState {
	return &MemoryEngineState{
		positions: make(map[string]*cdp.UserPosition),
		totals:    make(map[string]*uint256.Int),
	}
}

func memKey(poolID string, user types.Address) string {
	return poolID + "/" + user.String()
}

// GetPosition implements cdp.EngineState.
func (s *MemoryEngineState) GetPosition(poolID string, user types.Address) (*cdp.UserPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[memKey(poolID, user)], nil
}

// PutPosition implements cdp.EngineState.
func (s *MemoryEngineState) PutPosition(poolID string, user types.Address, position *cdp.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[memKey(poolID, user)] = position
	return nil
}

// TotalDscIssued implements cdp.EngineState.
func (s *MemoryEngineState) TotalDscIssued(poolID string) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total, ok := s.totals[poolID]; ok {
		return total, nil
	}
	return uint256.NewInt(0), nil
}

// PutTotalDscIssued implements cdp.EngineState.
func (s *MemoryEngineState) PutTotalDscIssued(poolID string, total *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[poolID] = total
	return nil
}
