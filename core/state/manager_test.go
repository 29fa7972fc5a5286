package state

import (
	"context"
	"errors"
	"testing"

	"chronicles/core/types"
	"chronicles/crypto"
	"chronicles/storage"
)

type sample struct {
	Name  string
	Count uint64
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestUpdateCommitsAndViewReads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Update(ctx, func(m *Manager) error {
		return m.KVPut([]byte("sample/a"), sample{Name: "a", Count: 3})
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var got sample
	if err := store.View(ctx, func(m *Manager) error {
		ok, err := m.KVGet([]byte("sample/a"), &got)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected key to exist")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestUpdateErrorDiscardsAllWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(m *Manager) error {
		if err := m.KVPut([]byte("sample/a"), sample{Name: "a"}); err != nil {
			return err
		}
		if err := m.PutAccount(crypto.Identity{1}, &types.Account{Balance: 10}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := store.View(ctx, func(m *Manager) error {
		ok, err := m.KVHas([]byte("sample/a"))
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected discarded write to be absent")
		}
		account, err := m.GetAccount(crypto.Identity{1})
		if err != nil {
			return err
		}
		if account.Balance != 0 {
			t.Fatalf("expected zero balance after discard, got %d", account.Balance)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdateCancelledContextDiscards(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := store.Update(ctx, func(m *Manager) error {
		if err := m.KVPut([]byte("sample/a"), sample{Name: "a"}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := store.View(context.Background(), func(m *Manager) error {
		ok, err := m.KVHas([]byte("sample/a"))
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected write to be discarded")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestKVCreateFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := []byte("guard/x")

	if err := store.Update(ctx, func(m *Manager) error {
		return m.KVCreate(key, sample{Name: "first"})
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.Update(ctx, func(m *Manager) error {
		return m.KVCreate(key, sample{Name: "second"})
	})
	if !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}
}

func TestViewRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	err := store.View(context.Background(), func(m *Manager) error {
		return m.KVPut([]byte("sample/a"), sample{})
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestIterateAndAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Update(ctx, func(m *Manager) error {
		for i := byte(1); i <= 3; i++ {
			if err := m.PutAccount(crypto.Identity{i}, &types.Account{Balance: uint64(i) * 100}); err != nil {
				return err
			}
		}
		return m.KVPut([]byte("other/key"), uint64(7))
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var total uint64
	var seen int
	if err := store.View(ctx, func(m *Manager) error {
		return m.Accounts(func(_ crypto.Identity, account *types.Account) error {
			total += account.Balance
			seen++
			return nil
		})
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if seen != 3 || total != 600 {
		t.Fatalf("unexpected iteration result: seen=%d total=%d", seen, total)
	}
}

func TestEnsureStateVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := EnsureStateVersion(ctx, store); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := EnsureStateVersion(ctx, store); err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if err := store.Update(ctx, func(m *Manager) error {
		return m.SetStateVersion(StateVersion + 1)
	}); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := EnsureStateVersion(ctx, store); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
