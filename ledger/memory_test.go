package ledger

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/MGM103/CDP-Stable-Coin/core/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestMemCollateralLedgerTransferFrom(t *testing.T) {
	engine := addr(0xEE)
	user := addr(0x01)
	l := NewMemCollateralLedger(engine)
	l.Credit(user, uint256.NewInt(100))

	ok, err := l.TransferFrom(user, engine, uint256.NewInt(40))
	if err != nil || !ok {
		t.Fatalf("expected transfer to succeed, got ok=%v err=%v", ok, err)
	}
	bal, _ := l.BalanceOf(user)
	if bal.Cmp(uint256.NewInt(60)) != 0 {
		t.Fatalf("expected user balance 60, got %s", bal)
	}
	engineBal, _ := l.BalanceOf(engine)
	if engineBal.Cmp(uint256.NewInt(40)) != 0 {
		t.Fatalf("expected engine balance 40, got %s", engineBal)
	}
}

func TestMemCollateralLedgerTransferFromInsufficientBalance(t *testing.T) {
	engine := addr(0xEE)
	user := addr(0x01)
	l := NewMemCollateralLedger(engine)
	l.Credit(user, uint256.NewInt(10))

	ok, err := l.TransferFrom(user, engine, uint256.NewInt(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected transfer to fail on insufficient balance")
	}
}

func TestMemCollateralLedgerTransferDebitsEngine(t *testing.T) {
	engine := addr(0xEE)
	recipient := addr(0x02)
	l := NewMemCollateralLedger(engine)
	l.Credit(engine, uint256.NewInt(100))

	ok, err := l.Transfer(recipient, uint256.NewInt(30))
	if err != nil || !ok {
		t.Fatalf("expected transfer to succeed, got ok=%v err=%v", ok, err)
	}
	recipientBal, _ := l.BalanceOf(recipient)
	if recipientBal.Cmp(uint256.NewInt(30)) != 0 {
		t.Fatalf("expected recipient balance 30, got %s", recipientBal)
	}
}
