package storage

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption constants.
const (
	SaltSize = 32
	// Sealed format: [salt(32)][memory(4)][iterations(4)][parallelism(1)][nonce(24)][ciphertext...]
	headerSize = SaltSize + 4 + 4 + 1
)

// ErrDecrypt is returned when a sealed value cannot be opened, usually
// because the passphrase is wrong.
var ErrDecrypt = errors.New("decrypt: wrong passphrase or corrupted data")

// ErrMalformed marks a stored value too short to be sealed data. Such
// errors also match ErrDecrypt.
var ErrMalformed = errors.New("malformed sealed value")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(password, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

// Encrypt seals data with password using Argon2id + XChaCha20-Poly1305.
// A fresh salt and nonce are drawn for every call.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt, params)
	defer zero(key)
	return seal(data, key, salt, params)
}

// Decrypt opens data sealed by Encrypt.
func Decrypt(sealed, password []byte) ([]byte, error) {
	salt, params, err := parseHeader(sealed)
	if err != nil {
		return nil, err
	}
	key := deriveKey(password, salt, params)
	defer zero(key)
	return open(sealed, key)
}

func seal(data, key, salt []byte, params EncryptionParams) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, headerSize+len(nonce)+len(data)+aead.Overhead())
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

func parseHeader(sealed []byte) ([]byte, EncryptionParams, error) {
	minSize := headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minSize {
		return nil, EncryptionParams{}, fmt.Errorf("%w: %w: %d bytes, need at least %d", ErrDecrypt, ErrMalformed, len(sealed), minSize)
	}
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[SaltSize+4:]),
		Parallelism: sealed[SaltSize+8],
	}
	return sealed[:SaltSize], params, nil
}

func open(sealed, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := sealed[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[headerSize+chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SealedDB encrypts every value written to the inner DB. Keys are stored
// in the clear. Derived keys are cached per salt so that the Argon2 cost
// is paid once per value version rather than once per read.
type SealedDB struct {
	inner    DB
	password []byte
	params   EncryptionParams

	mu    sync.Mutex
	salt  []byte
	key   []byte
	cache map[string][]byte
}

// NewSealedDB wraps inner so that values are encrypted with password.
func NewSealedDB(inner DB, password []byte, params EncryptionParams) *SealedDB {
	pw := make([]byte, len(password))
	copy(pw, password)
	return &SealedDB{
		inner:    inner,
		password: pw,
		params:   params,
		cache:    make(map[string][]byte),
	}
}

// writeKey returns the salt and key used for new writes, deriving them on
// first use.
func (s *SealedDB) writeKey() ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.salt, s.key, nil
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	s.salt = salt
	s.key = deriveKey(s.password, salt, s.params)
	s.cache[string(salt)] = s.key
	return s.salt, s.key, nil
}

func (s *SealedDB) readKey(salt []byte, params EncryptionParams) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.cache[string(salt)]; ok {
		return key
	}
	key := deriveKey(s.password, salt, params)
	s.cache[string(salt)] = key
	return key
}

func (s *SealedDB) decrypt(sealed []byte) ([]byte, error) {
	salt, params, err := parseHeader(sealed)
	if err != nil {
		return nil, err
	}
	return open(sealed, s.readKey(salt, params))
}

// Get retrieves and decrypts a value.
func (s *SealedDB) Get(key []byte) ([]byte, error) {
	sealed, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return s.decrypt(sealed)
}

// Put encrypts value and stores it.
func (s *SealedDB) Put(key, value []byte) error {
	salt, k, err := s.writeKey()
	if err != nil {
		return err
	}
	sealed, err := seal(value, k, salt, s.params)
	if err != nil {
		return err
	}
	return s.inner.Put(key, sealed)
}

// Delete removes a key.
func (s *SealedDB) Delete(key []byte) error {
	return s.inner.Delete(key)
}

// Has checks if a key exists.
func (s *SealedDB) Has(key []byte) (bool, error) {
	return s.inner.Has(key)
}

// ForEach iterates over decrypted values with the given key prefix.
func (s *SealedDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return s.inner.ForEach(prefix, func(key, sealed []byte) error {
		value, err := s.decrypt(sealed)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		return fn(key, value)
	})
}

// ForEachKey lists keys without decrypting their values.
func (s *SealedDB) ForEachKey(prefix []byte, fn func(key []byte) error) error {
	return ForEachKey(s.inner, prefix, fn)
}

// Close wipes cached key material. The inner DB is not closed.
func (s *SealedDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.cache {
		zero(k)
	}
	s.cache = make(map[string][]byte)
	s.key, s.salt = nil, nil
	zero(s.password)
	return nil
}
