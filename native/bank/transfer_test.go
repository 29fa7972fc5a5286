package bank

import (
	"errors"
	"math"
	"testing"

	"chronicles/core/types"
	"chronicles/crypto"
)

type memoryState struct {
	accounts map[crypto.Identity]*types.Account
}

func newMemoryState() *memoryState {
	return &memoryState{accounts: make(map[crypto.Identity]*types.Account)}
}

func (m *memoryState) GetAccount(id crypto.Identity) (*types.Account, error) {
	if acc, ok := m.accounts[id]; ok {
		clone := *acc
		return &clone, nil
	}
	return &types.Account{}, nil
}

func (m *memoryState) PutAccount(id crypto.Identity, account *types.Account) error {
	clone := *account
	m.accounts[id] = &clone
	return nil
}

func TestTransferMovesBalance(t *testing.T) {
	st := newMemoryState()
	alice, bob := crypto.Identity{1}, crypto.Identity{2}
	if err := Credit(st, alice, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Transfer(st, alice, bob, 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := Balance(st, alice); bal != 60 {
		t.Fatalf("unexpected sender balance %d", bal)
	}
	if bal, _ := Balance(st, bob); bal != 40 {
		t.Fatalf("unexpected recipient balance %d", bal)
	}
}

func TestTransferInsufficientFundsLeavesState(t *testing.T) {
	st := newMemoryState()
	alice, bob := crypto.Identity{1}, crypto.Identity{2}
	if err := Credit(st, alice, 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Transfer(st, alice, bob, 11); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if bal, _ := Balance(st, alice); bal != 10 {
		t.Fatalf("sender balance changed: %d", bal)
	}
	if _, ok := st.accounts[bob]; ok {
		t.Fatalf("recipient should not have been written")
	}
}

func TestTransferOverflowAndSelf(t *testing.T) {
	st := newMemoryState()
	alice, bob := crypto.Identity{1}, crypto.Identity{2}
	if err := Credit(st, alice, 5); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Credit(st, bob, math.MaxUint64); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := Transfer(st, alice, bob, 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	if err := Transfer(st, alice, alice, 1); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if err := Transfer(st, alice, bob, 0); err != nil {
		t.Fatalf("zero transfer should be a no-op: %v", err)
	}
}
