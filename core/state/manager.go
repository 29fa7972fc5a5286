package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrKeyExists is returned by KVCreate when the key is already present.
	ErrKeyExists = errors.New("kv: key already exists")
	// ErrReadOnly is returned by mutators on a manager opened through View.
	ErrReadOnly = errors.New("state: manager is read-only")
)

type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type writer interface {
	Put(key, value []byte, wo *opt.WriteOptions) error
}

// Manager reads and writes state inside one unit of work. Managers are
// created by Store.Update (read-write, backed by a leveldb transaction) and
// Store.View (read-only, backed by a snapshot) and must not outlive the
// callback they were handed to.
type Manager struct {
	r reader
	w writer
}

func newManager(r reader, w writer) *Manager {
	return &Manager{r: r, w: w}
}

// RawGet returns the bytes stored under key, or nil when absent.
func (m *Manager) RawGet(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.r.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// RawPut stores pre-encoded bytes under key.
func (m *Manager) RawPut(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if m.w == nil {
		return ErrReadOnly
	}
	return m.w.Put(key, value, nil)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.RawPut(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	data, err := m.RawGet(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether key is present.
func (m *Manager) KVHas(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return m.r.Has(key, nil)
}

// KVCreate stores value only when key is absent. Because write units are
// serialized by the store, the first caller to commit wins and every later
// caller observes ErrKeyExists.
func (m *Manager) KVCreate(key []byte, value interface{}) error {
	exists, err := m.KVHas(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}
	return m.KVPut(key, value)
}

// Iterate walks every key with the given prefix in ascending order. The key
// and value slices are only valid for the duration of the callback.
func (m *Manager) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it := m.r.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}
