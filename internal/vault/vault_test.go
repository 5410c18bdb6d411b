package vault

import (
	"errors"
	"testing"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
)

func account(b byte) accountid.ID {
	var id accountid.ID
	id[0] = b
	return id
}

func TestCreateRejectsDuplicate(t *testing.T) {
	m := NewManager()
	owner := account(1)
	if _, err := m.Create(owner); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := m.Create(owner); err == nil {
		t.Fatal("expected error on duplicate create")
	}
}

func TestDepositWithdraw(t *testing.T) {
	m := NewManager()
	owner := account(1)
	m.Create(owner)

	if err := m.Deposit(owner, 10_000, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	v, _ := m.Get(owner)
	if v.Collateral.Amount != 10_000 {
		t.Fatalf("amount = %d, want 10000", v.Collateral.Amount)
	}

	if err := m.Withdraw(owner, 5_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	v, _ = m.Get(owner)
	want := int64(10_000 - 5_000 - FixedFee)
	if v.Collateral.Amount != want {
		t.Fatalf("amount after withdraw = %d, want %d", v.Collateral.Amount, want)
	}
}

func TestWithdrawInsufficientFee(t *testing.T) {
	m := NewManager()
	owner := account(1)
	m.Create(owner)
	m.Deposit(owner, FixedFee, 1)

	if err := m.Withdraw(owner, 1); !errors.Is(err, ErrNotEnoughCollateralFee) {
		t.Fatalf("err = %v, want ErrNotEnoughCollateralFee", err)
	}
}

func TestShutdownBlocksMutation(t *testing.T) {
	m := NewManager()
	owner := account(1)
	m.Create(owner)
	m.Deposit(owner, 10_000, 1)

	if err := m.Shutdown(owner); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := m.Deposit(owner, 1, 2); !errors.Is(err, ErrInactiveVault) {
		t.Fatalf("deposit after shutdown: err = %v, want ErrInactiveVault", err)
	}

	if err := m.Restart(owner); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := m.Deposit(owner, 1, 3); err != nil {
		t.Fatalf("deposit after restart: %v", err)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	m := NewManager()
	owner := account(1)
	m.Create(owner)
	if err := m.Close(owner); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Deposit(owner, 1, 1); !errors.Is(err, ErrVaultClosed) {
		t.Fatalf("deposit after close: err = %v, want ErrVaultClosed", err)
	}
}

func TestTransferMovesCollateral(t *testing.T) {
	m := NewManager()
	buyer, seller := account(1), account(2)
	m.Create(buyer)
	m.Create(seller)
	m.Deposit(buyer, 10_000, 1)
	m.Deposit(seller, 0, 1)

	if err := m.Transfer(buyer, seller, 4_000); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	bv, _ := m.Get(buyer)
	sv, _ := m.Get(seller)
	if bv.Collateral.Amount != 6_000 {
		t.Fatalf("buyer balance = %d, want 6000", bv.Collateral.Amount)
	}
	if sv.Collateral.Amount != 4_000 {
		t.Fatalf("seller balance = %d, want 4000", sv.Collateral.Amount)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	m := NewManager()
	buyer, seller := account(1), account(2)
	m.Create(buyer)
	m.Create(seller)
	m.Deposit(buyer, 100, 1)

	if err := m.Transfer(buyer, seller, 200); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
}

func TestVerifyCollateralAmount(t *testing.T) {
	m := NewManager()
	owner := account(1)
	m.Create(owner)
	m.Deposit(owner, 5_000, 1)

	if m.VerifyCollateralAmount(owner, 5_000) {
		t.Fatal("5000 collateral should not strictly exceed 5000+fee")
	}
	if !m.VerifyCollateralAmount(owner, 100) {
		t.Fatal("5000 collateral should exceed 100+fee")
	}
}
