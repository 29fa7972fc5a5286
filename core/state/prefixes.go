package state

var (
	accountPrefix   = []byte("account/")
	stateVersionKey = []byte("state/version")
)
