// Package wallet implements hierarchical deterministic ed25519 accounts:
// BIP-39 mnemonics, SLIP-10 hardened derivation and base-58 key encoding.
package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// DefaultEntropyBits is the entropy size for 12-word mnemonics.
const DefaultEntropyBits = 128

var (
	// ErrInvalidMnemonic is returned when a phrase fails wordlist or checksum validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrEntropyUnavailable is returned when the secure randomness source fails.
	ErrEntropyUnavailable = errors.New("secure entropy source unavailable")

	// ErrInvalidEntropySize is returned for entropy sizes BIP-39 does not define.
	ErrInvalidEntropySize = errors.New("entropy must be 128-256 bits in steps of 32")
)

// GenerateMnemonic creates a new BIP-39 mnemonic from entropyBits of
// crypto/rand entropy. Zero selects DefaultEntropyBits.
func GenerateMnemonic(entropyBits int) (string, error) {
	return GenerateMnemonicFrom(rand.Reader, entropyBits)
}

// GenerateMnemonicFrom is GenerateMnemonic with an explicit randomness source.
func GenerateMnemonicFrom(r io.Reader, entropyBits int) (string, error) {
	if entropyBits == 0 {
		entropyBits = DefaultEntropyBits
	}
	if entropyBits < 128 || entropyBits > 256 || entropyBits%32 != 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidEntropySize, entropyBits)
	}
	if r == nil {
		return "", ErrEntropyUnavailable
	}

	entropy := make([]byte, entropyBits/8)
	defer wipe(entropy)
	if _, err := io.ReadFull(r, entropy); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// WordCount returns the number of words a mnemonic of entropyBits has.
func WordCount(entropyBits int) int {
	return entropyBits / 32 * 3
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(NormalizeMnemonic(mnemonic))
}

// NormalizeMnemonic trims the phrase and collapses runs of whitespace
// between words to a single space.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
