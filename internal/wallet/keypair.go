package wallet

import (
	"crypto/ed25519"
	"fmt"
)

// Keypair is an ed25519 verification key and its expanded signing key.
// SecretKey is the 32-byte seed followed by the 32-byte public key.
type Keypair struct {
	PublicKey ed25519.PublicKey
	SecretKey ed25519.PrivateKey
}

// KeypairFromSeed deterministically generates a keypair from a 32-byte
// derived seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("%w: keypair seed must be %d bytes, got %d", ErrInvalidSeed, ed25519.SeedSize, len(seed))
	}
	secret := ed25519.NewKeyFromSeed(seed)
	return Keypair{
		PublicKey: secret.Public().(ed25519.PublicKey),
		SecretKey: secret,
	}, nil
}

// Sign signs message with the keypair's secret key.
func (kp Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.SecretKey, message)
}
