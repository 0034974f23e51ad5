package bngov

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// MinerSetHash returns the hex-encoded blake2b-256 hash of a miner set.
//
// Each identity is length-prefixed before hashing so that the digest
// is unambiguous regardless of identity lengths.
// Two miner sets hash equal iff they contain the same identities
// in the same order.
func MinerSetHash(miners []Identity) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails with an oversized key; we pass none.
		panic(err)
	}

	var sz [4]byte
	for _, m := range miners {
		binary.BigEndian.PutUint32(sz[:], uint32(len(m)))
		_, _ = h.Write(sz[:])
		_, _ = h.Write([]byte(m))
	}

	return hex.EncodeToString(h.Sum(nil))
}
