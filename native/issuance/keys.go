package issuance

import "chronicles/crypto"

var (
	configPrefix = []byte("issuance/config/")
	guardPrefix  = []byte("issuance/guard/")
	ruggedPrefix = []byte("issuance/rugged/")
)

func joinKey(prefix []byte, ids ...crypto.Identity) []byte {
	buf := make([]byte, 0, len(prefix)+len(ids)*crypto.IdentityLength)
	buf = append(buf, prefix...)
	for _, id := range ids {
		buf = append(buf, id[:]...)
	}
	return buf
}

func configKey(config crypto.Identity) []byte {
	return joinKey(configPrefix, config)
}

func guardKey(config, asset crypto.Identity) []byte {
	return joinKey(guardPrefix, config, asset)
}

func ruggedKey(config, owner crypto.Identity) []byte {
	return joinKey(ruggedPrefix, config, owner)
}
