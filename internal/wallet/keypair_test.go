package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"
)

func TestKeypairFromSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	kp, err := KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeypairFromSeed() error: %v", err)
	}

	if len(kp.PublicKey) != ed25519.PublicKeySize {
		t.Errorf("public key length = %d", len(kp.PublicKey))
	}
	if len(kp.SecretKey) != ed25519.PrivateKeySize {
		t.Errorf("secret key length = %d", len(kp.SecretKey))
	}
	// Expanded form: seed || public key.
	if !bytes.Equal(kp.SecretKey[:32], seed) {
		t.Error("secret key should start with the seed")
	}
	if !bytes.Equal(kp.SecretKey[32:], kp.PublicKey) {
		t.Error("secret key should end with the public key")
	}

	msg := []byte("velocity")
	if !ed25519.Verify(kp.PublicKey, msg, kp.Sign(msg)) {
		t.Error("signature should verify")
	}
}

func TestKeypairFromSeed_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, 32)
	a, _ := KeypairFromSeed(seed)
	b, _ := KeypairFromSeed(seed)
	if !bytes.Equal(a.SecretKey, b.SecretKey) {
		t.Error("same seed should produce same keypair")
	}
}

func TestKeypairFromSeed_InvalidLength(t *testing.T) {
	for _, n := range []int{0, 31, 33, 64} {
		if _, err := KeypairFromSeed(make([]byte, n)); !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("KeypairFromSeed(%d bytes) error = %v, want ErrInvalidSeed", n, err)
		}
	}
}
