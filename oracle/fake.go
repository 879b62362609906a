package oracle

import (
	"math/big"
	"sync"
	"time"
)

// FakeRoundOracle is a deterministic, settable RoundOracle used by tests and
// by the CLI's scripted demo mode. It mirrors the teacher's pattern of
// pairing a production adapter with an in-memory collaborator that satisfies
// the same interface.
type FakeRoundOracle struct {
	mu    sync.Mutex
	round RoundData
}

// NewFakeRoundOracle seeds the oracle with a USD price (whole dollars) as of
// the given timestamp.
func NewFakeRoundOracle(usdPrice int64, updatedAt time.Time) *FakeRoundOracle {
	raw := new(big.Int).Mul(big.NewInt(usdPrice), big.NewInt(100_000_000))
	return &FakeRoundOracle{
		round: RoundData{
			RoundID:         1,
			RawPrice:        raw,
			StartedAt:       updatedAt,
			UpdatedAt:       updatedAt,
			AnsweredInRound: 1,
		},
	}
}

// LatestRound implements RoundOracle.
func (f *FakeRoundOracle) LatestRound() (RoundData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.round, nil
}

// SetPrice updates the quoted USD price (whole dollars) and its timestamp.
func (f *FakeRoundOracle) SetPrice(usdPrice int64, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round.RoundID++
	f.round.AnsweredInRound = f.round.RoundID
	f.round.RawPrice = new(big.Int).Mul(big.NewInt(usdPrice), big.NewInt(100_000_000))
	f.round.UpdatedAt = updatedAt
	f.round.StartedAt = updatedAt
}

// SetRawPrice sets the raw oracle-precision price directly, for tests that
// need sub-dollar precision or an intentionally invalid (non-positive) quote.
func (f *FakeRoundOracle) SetRawPrice(raw *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round.RoundID++
	f.round.AnsweredInRound = f.round.RoundID
	f.round.RawPrice = raw
	f.round.UpdatedAt = updatedAt
	f.round.StartedAt = updatedAt
}
