package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDB is a key-value store backed by goleveldb. It exposes exclusive
// write transactions and point-in-time snapshots, which the state layer uses
// as its unit of work.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// NewMemDB opens a LevelDB instance over in-memory storage. It offers the same
// transactional semantics as the persistent variant and is used by tests and
// ephemeral deployments.
func NewMemDB() *LevelDB {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		// Memory storage cannot fail to open.
		panic(fmt.Sprintf("storage: open memory db: %v", err))
	}
	return &LevelDB{db: db}
}

// OpenTransaction opens an exclusive write transaction. Only one transaction
// may be in flight; further callers block until it is committed or
// discarded.
func (ldb *LevelDB) OpenTransaction() (*leveldb.Transaction, error) {
	return ldb.db.OpenTransaction()
}

// GetSnapshot returns a consistent read view. Callers must Release it.
func (ldb *LevelDB) GetSnapshot() (*leveldb.Snapshot, error) {
	return ldb.db.GetSnapshot()
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
