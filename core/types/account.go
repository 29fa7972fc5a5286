package types

// Account holds the spendable balance of an identity in the smallest
// denomination.
type Account struct {
	Balance uint64 `json:"balance"`
}
