package wallet

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrInvalidEncoding is returned when text is not valid base-58.
var ErrInvalidEncoding = errors.New("invalid base58 encoding")

// EncodeKey encodes key material as base-58 (Bitcoin alphabet).
func EncodeKey(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base58.Encode(b)
}

// DecodeKey decodes base-58 text produced by EncodeKey.
func DecodeKey(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}

// DecodeKeySize decodes s and checks the decoded length.
func DecodeKeySize(s string, size int) ([]byte, error) {
	b, err := DecodeKey(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidEncoding, len(b), size)
	}
	return b, nil
}
