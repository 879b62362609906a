package events

import (
	"testing"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

func TestMemoryLogPreservesOrder(t *testing.T) {
	log := NewMemoryLog()
	user := types.BytesToAddress([]byte{0x01})
	log.Emit(CollateralDeposited{User: user, Asset: "WETH", Amount: "10"})
	log.Emit(DscMinted{User: user, Amount: "20000"})

	all := log.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	if all[0].EventType() != TypeCollateralDeposited {
		t.Fatalf("expected first event %s, got %s", TypeCollateralDeposited, all[0].EventType())
	}
	if all[1].EventType() != TypeDscMinted {
		t.Fatalf("expected second event %s, got %s", TypeDscMinted, all[1].EventType())
	}
}

func TestMemoryLogResetClears(t *testing.T) {
	log := NewMemoryLog()
	log.Emit(DscBurned{Amount: "1"})
	log.Reset()
	if len(log.All()) != 0 {
		t.Fatalf("expected log cleared after Reset")
	}
}

func TestNoopEmitterDiscardsEvents(t *testing.T) {
	var e Emitter = NoopEmitter{}
	e.Emit(DscBurned{Amount: "1"})
}
