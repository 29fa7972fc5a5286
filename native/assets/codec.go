package assets

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	modesOnce sync.Once
	encMode   cbor.EncMode
	decMode   cbor.DecMode
	modesErr  error
)

func codecModes() (cbor.EncMode, cbor.DecMode, error) {
	modesOnce.Do(func() {
		// Deterministic key ordering keeps stored records byte-stable.
		encMode, modesErr = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
		if modesErr != nil {
			return
		}
		decMode, modesErr = cbor.DecOptions{MaxArrayElements: 4096, MaxMapPairs: 4096}.DecMode()
	})
	return encMode, decMode, modesErr
}

func encode(v interface{}) ([]byte, error) {
	em, _, err := codecModes()
	if err != nil {
		return nil, err
	}
	return em.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	_, dm, err := codecModes()
	if err != nil {
		return err
	}
	return dm.Unmarshal(data, v)
}
