// Package types defines primitive types shared across the wallet.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ChecksumSize is the length of a checksum in bytes.
const ChecksumSize = 32

// Checksum is a 256-bit digest over persisted wallet state.
type Checksum [ChecksumSize]byte

// IsZero returns true if the checksum is all zeros.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// String returns the hex-encoded checksum.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// MarshalJSON encodes the checksum as a hex string.
func (c Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a hex string into a checksum.
func (c *Checksum) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = Checksum{}
		return nil
	}
	parsed, err := ParseChecksum(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseChecksum converts a 64-character hex string to a Checksum.
func ParseChecksum(s string) (Checksum, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid checksum hex: %w", err)
	}
	if len(b) != ChecksumSize {
		return Checksum{}, fmt.Errorf("checksum must be %d bytes, got %d", ChecksumSize, len(b))
	}
	var c Checksum
	copy(c[:], b)
	return c, nil
}
