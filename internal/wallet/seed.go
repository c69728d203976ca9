package wallet

import (
	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// SeedFromMnemonic derives a 512-bit seed from a mnemonic and optional passphrase
// using PBKDF2-HMAC-SHA512 (2048 rounds, salt "mnemonic"+passphrase) as specified
// in BIP-39. The phrase is not validated; callers check it with ValidateMnemonic.
func SeedFromMnemonic(mnemonic, passphrase string) []byte {
	return bip39.NewSeed(mnemonic, passphrase)
}
