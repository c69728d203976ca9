// Package crypto provides hashing used to checksum persisted wallet state.
package crypto

import (
	"github.com/velocity-wallet/velocity/pkg/types"
	"github.com/zeebo/blake3"
)

// Sum computes the BLAKE3-256 digest of data.
func Sum(data []byte) types.Checksum {
	return blake3.Sum256(data)
}

// SumParts hashes several byte slices as one stream without concatenating them.
func SumParts(parts ...[]byte) types.Checksum {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}
	var c types.Checksum
	h.Sum(c[:0])
	return c
}

// Verify reports whether data hashes to want.
func Verify(data []byte, want types.Checksum) bool {
	return Sum(data) == want
}
