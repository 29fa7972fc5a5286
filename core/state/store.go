package state

import (
	"context"
	"fmt"

	"chronicles/storage"
)

// Store hands out units of work over a LevelDB database. Update runs its
// callback inside an exclusive transaction: every write made through the
// Manager is committed together or discarded together.
type Store struct {
	db *storage.LevelDB
}

// NewStore wraps db.
func NewStore(db *storage.LevelDB) *Store {
	return &Store{db: db}
}

// Update executes fn in a read-write unit of work. Any error returned by fn,
// a panic, or a cancelled context discards all writes.
func (s *Store) Update(ctx context.Context, fn func(*Manager) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("state: open transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Discard()
		}
	}()

	if err := fn(newManager(tx, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	committed = true
	return nil
}

// View executes fn against a consistent snapshot. The manager rejects writes.
func (s *Store) View(ctx context.Context, fn func(*Manager) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("state: snapshot: %w", err)
	}
	defer snap.Release()
	return fn(newManager(snap, nil))
}
