package bank

import (
	"errors"
	"fmt"
	"math"

	"chronicles/core/types"
	"chronicles/crypto"
)

var (
	// ErrInsufficientFunds is returned when the sender balance is below the
	// requested amount.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrBalanceOverflow is returned when a credit would exceed MaxUint64.
	ErrBalanceOverflow = errors.New("bank: balance overflow")
	// ErrSelfTransfer rejects moves whose source and destination coincide.
	ErrSelfTransfer = errors.New("bank: source and destination are identical")
)

// State is the subset of the state manager the bank needs.
type State interface {
	GetAccount(id crypto.Identity) (*types.Account, error)
	PutAccount(id crypto.Identity, account *types.Account) error
}

// Transfer moves amount from one identity to another. A zero amount is a
// no-op. Both balances are validated before either account is written.
func Transfer(st State, from, to crypto.Identity, amount uint64) error {
	if st == nil {
		return fmt.Errorf("bank: state unavailable")
	}
	if amount == 0 {
		return nil
	}
	if from == to {
		return ErrSelfTransfer
	}
	sender, err := st.GetAccount(from)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, sender.Balance, amount)
	}
	recipient, err := st.GetAccount(to)
	if err != nil {
		return err
	}
	if recipient.Balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, to)
	}
	sender.Balance -= amount
	recipient.Balance += amount
	if err := st.PutAccount(from, sender); err != nil {
		return err
	}
	return st.PutAccount(to, recipient)
}

// Credit mints amount into id. It is only used for genesis allocations.
func Credit(st State, id crypto.Identity, amount uint64) error {
	if st == nil {
		return fmt.Errorf("bank: state unavailable")
	}
	account, err := st.GetAccount(id)
	if err != nil {
		return err
	}
	if account.Balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, id)
	}
	account.Balance += amount
	return st.PutAccount(id, account)
}

// Balance returns the spendable balance of id.
func Balance(st State, id crypto.Identity) (uint64, error) {
	if st == nil {
		return 0, fmt.Errorf("bank: state unavailable")
	}
	account, err := st.GetAccount(id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}
