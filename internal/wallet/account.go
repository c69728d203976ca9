package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
)

// ErrKeyMismatch is returned when stored keys do not match their derivation.
var ErrKeyMismatch = errors.New("keys do not match derivation")

// Account is one derived identity. PublicKey and PrivateKey are pure
// functions of (Mnemonic, Index).
type Account struct {
	Mnemonic   string `json:"mnemonic"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
	Index      uint32 `json:"index"`
	Label      string `json:"label,omitempty"`
}

// DeriveAccount validates mnemonic and derives the account at
// m/44'/501'/index'/0'.
func DeriveAccount(mnemonic string, index uint32, label string) (Account, error) {
	normalized := NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(normalized) {
		return Account{}, ErrInvalidMnemonic
	}

	path, err := AccountPath(index)
	if err != nil {
		return Account{}, err
	}

	seed := SeedFromMnemonic(normalized, "")
	defer wipe(seed)
	return deriveFromSeed(seed, normalized, path, index, label)
}

func deriveFromSeed(seed []byte, mnemonic string, path Path, index uint32, label string) (Account, error) {
	derived, err := DeriveSeed(seed, path)
	if err != nil {
		return Account{}, fmt.Errorf("derive %s: %w", path, err)
	}
	defer wipe(derived)

	kp, err := KeypairFromSeed(derived)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Mnemonic:   mnemonic,
		PublicKey:  EncodeKey(kp.PublicKey),
		PrivateKey: EncodeKey(kp.SecretKey),
		Index:      index,
		Label:      label,
	}, nil
}

// Keypair decodes the account's stored key material.
func (a Account) Keypair() (Keypair, error) {
	pub, err := DecodeKeySize(a.PublicKey, ed25519.PublicKeySize)
	if err != nil {
		return Keypair{}, fmt.Errorf("public key: %w", err)
	}
	secret, err := DecodeKeySize(a.PrivateKey, ed25519.PrivateKeySize)
	if err != nil {
		return Keypair{}, fmt.Errorf("private key: %w", err)
	}
	return Keypair{PublicKey: pub, SecretKey: secret}, nil
}

// Verify re-derives the account and checks that the stored keys match.
func (a Account) Verify() error {
	want, err := DeriveAccount(a.Mnemonic, a.Index, a.Label)
	if err != nil {
		return err
	}
	if a.Mnemonic != want.Mnemonic {
		return fmt.Errorf("mnemonic is not normalized: %w", ErrKeyMismatch)
	}
	got, err := a.Keypair()
	if err != nil {
		return err
	}
	wantKP, err := want.Keypair()
	if err != nil {
		return err
	}
	if !bytes.Equal(got.PublicKey, wantKP.PublicKey) || !bytes.Equal(got.SecretKey, wantKP.SecretKey) {
		return ErrKeyMismatch
	}
	return nil
}

// DisplayName returns the label, or "Account <pos+1>" when unlabelled.
func (a Account) DisplayName(pos int) string {
	if a.Label != "" {
		return a.Label
	}
	return "Account " + strconv.Itoa(pos+1)
}
