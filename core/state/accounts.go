package state

import (
	"fmt"

	"chronicles/core/types"
	"chronicles/crypto"
)

func accountKey(id crypto.Identity) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.IdentityLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], id[:])
	return buf
}

// GetAccount loads the account for id. Unknown identities yield a zero
// balance account rather than an error.
func (m *Manager) GetAccount(id crypto.Identity) (*types.Account, error) {
	account := new(types.Account)
	if _, err := m.KVGet(accountKey(id), account); err != nil {
		return nil, fmt.Errorf("state: load account %s: %w", id, err)
	}
	return account, nil
}

// PutAccount persists account for id.
func (m *Manager) PutAccount(id crypto.Identity, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account for %s", id)
	}
	return m.KVPut(accountKey(id), account)
}

// Accounts iterates every stored account in key order.
func (m *Manager) Accounts(fn func(crypto.Identity, *types.Account) error) error {
	return m.Iterate(accountPrefix, func(key, value []byte) error {
		id, err := crypto.NewIdentity(key[len(accountPrefix):])
		if err != nil {
			return err
		}
		account := new(types.Account)
		if _, err := m.KVGet(key, account); err != nil {
			return err
		}
		return fn(id, account)
	})
}
