package events

import (
	"chronicles/core/types"
	"chronicles/crypto"
)

const (
	// TypeTransfer is emitted for every balance movement.
	TypeTransfer = "transfer.native"
)

type Transfer struct {
	From   crypto.Identity
	To     crypto.Identity
	Amount uint64
	Memo   string
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": formatAmount(e.Amount),
	}
	if e.Memo != "" {
		attrs["memo"] = e.Memo
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
