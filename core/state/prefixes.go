package state

import "encoding/binary"

var (
	configKey        = []byte("peerswap/config")
	contractInfoKey  = []byte("peerswap/contract_info")
	heightKey        = []byte("peerswap/height")
	schemaVersionKey = []byte("peerswap/schema_version")
	offerPrefix      = []byte("peerswap/offer/")
)

// offerKey encodes the id big-endian so the lexical order of keys matches
// the numeric order of ids.
func offerKey(id uint32) []byte {
	buf := make([]byte, len(offerPrefix)+4)
	copy(buf, offerPrefix)
	binary.BigEndian.PutUint32(buf[len(offerPrefix):], id)
	return buf
}

func offerIDFromKey(key []byte) (uint32, bool) {
	if len(key) != len(offerPrefix)+4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(key[len(offerPrefix):]), true
}
