package util

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces salted, truncated BLAKE2b digests of client addresses.
type Hasher struct{ key []byte }

// NewHasher keys the digest with salt. Salts longer than 64 bytes are
// folded into a 64-byte key first.
func NewHasher(salt string) *Hasher {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &Hasher{key: key}
}

func (h *Hasher) HashString(s string) string {
	// New256 only fails for keys over 64 bytes.
	d, _ := blake2b.New256(h.key)
	d.Write([]byte(s))
	return hex.EncodeToString(d.Sum(nil)[:16])
}
