package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const HashSize = 32

type Hash [HashSize]byte

// HashData returns the BLAKE2b-256 digest of data.
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ETag formats the digest as a strong HTTP entity tag.
func (h Hash) ETag() string {
	return `"` + h.String() + `"`
}
