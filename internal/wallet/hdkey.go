package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HardenedOffset is added to an index to mark it hardened.
const HardenedOffset uint32 = 0x80000000

// BIP-44 derivation path constants.
// Full path: m/44'/501'/account'/0'
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = HardenedOffset + 44

	// CoinTypeSolana is the SLIP-44 coin type for Solana (hardened).
	CoinTypeSolana = HardenedOffset + 501

	// ChangeExternal is the only change level used for ed25519 accounts (hardened).
	ChangeExternal = HardenedOffset + 0

	// MaxAccountIndex is the largest account index that can be hardened.
	MaxAccountIndex = HardenedOffset - 1
)

// KeySize is the length of a SLIP-10 private key and chain code.
const KeySize = 32

// curveKey is the HMAC key for the ed25519 master node (SLIP-10).
var curveKey = []byte("ed25519 seed")

var (
	// ErrInvalidSeed is returned for seeds outside the 16-64 byte range.
	ErrInvalidSeed = errors.New("invalid seed length")

	// ErrNonHardened is returned when a non-hardened index is requested.
	// ed25519 has no public derivation, so only hardened children exist.
	ErrNonHardened = errors.New("ed25519 supports hardened derivation only")

	// ErrInvalidPath is returned by ParsePath for malformed paths.
	ErrInvalidPath = errors.New("invalid derivation path")

	// ErrInvalidIndex is returned for account indices that cannot be hardened.
	ErrInvalidIndex = errors.New("account index out of range")
)

// HDKey is a SLIP-10 ed25519 node: a private key and its chain code.
type HDKey struct {
	key       [KeySize]byte
	chainCode [KeySize]byte
	depth     uint8
	index     uint32
}

// NewMasterKey creates the master node from a BIP-39 seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) < 16 || len(seed) > SeedSize {
		return nil, fmt.Errorf("%w: must be 16-%d bytes, got %d", ErrInvalidSeed, SeedSize, len(seed))
	}
	mac := hmac.New(sha512.New, curveKey)
	mac.Write(seed)
	return split(mac.Sum(nil), 0, 0), nil
}

// DeriveChild derives the hardened child at index. Index must already
// include HardenedOffset.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	if index < HardenedOffset {
		return nil, fmt.Errorf("derive child %d: %w", index, ErrNonHardened)
	}

	// data = 0x00 || key || ser32(index)
	var data [1 + KeySize + 4]byte
	copy(data[1:], k.key[:])
	binary.BigEndian.PutUint32(data[1+KeySize:], index)

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data[:])
	wipe(data[:])
	return split(mac.Sum(nil), k.depth+1, index), nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(path Path) (*HDKey, error) {
	current := k
	for _, idx := range path {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// PrivateKeyBytes returns a copy of the raw 32-byte private key.
func (k *HDKey) PrivateKeyBytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.key[:])
	return out
}

// ChainCode returns a copy of the 32-byte chain code.
func (k *HDKey) ChainCode() []byte {
	out := make([]byte, KeySize)
	copy(out, k.chainCode[:])
	return out
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.depth
}

// Index returns the index this node was derived at (0 for master).
func (k *HDKey) Index() uint32 {
	return k.index
}

func split(sum []byte, depth uint8, index uint32) *HDKey {
	k := &HDKey{depth: depth, index: index}
	copy(k.key[:], sum[:KeySize])
	copy(k.chainCode[:], sum[KeySize:])
	wipe(sum)
	return k
}

// Path is a sequence of hardened indices below the master node.
type Path []uint32

// AccountIndex narrows a wider integer, such as a parsed flag, to an
// account index, rejecting values that cannot be hardened.
func AccountIndex(v uint64) (uint32, error) {
	if v > uint64(MaxAccountIndex) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidIndex, v)
	}
	return uint32(v), nil
}

// AccountPath returns m/44'/501'/index'/0'.
func AccountPath(index uint32) (Path, error) {
	if index > MaxAccountIndex {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return Path{PurposeBIP44, CoinTypeSolana, HardenedOffset + index, ChangeExternal}, nil
}

// ParsePath parses a path such as "m/44'/501'/0'/0'". Every segment must
// be hardened ("'" or "h" suffix).
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m", ErrInvalidPath, s)
	}

	path := make(Path, 0, len(parts)-1)
	for _, seg := range parts[1:] {
		hardened := strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h") || strings.HasSuffix(seg, "H")
		if !hardened {
			return nil, fmt.Errorf("%w: segment %q: %w", ErrInvalidPath, seg, ErrNonHardened)
		}
		n, err := strconv.ParseUint(seg[:len(seg)-1], 10, 32)
		if err != nil || uint32(n) > MaxAccountIndex {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
		path = append(path, HardenedOffset+uint32(n))
	}
	return path, nil
}

// String formats the path with "'" hardened markers.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		b.WriteString("/")
		b.WriteString(strconv.FormatUint(uint64(idx-HardenedOffset), 10))
		b.WriteString("'")
	}
	return b.String()
}

// DeriveSeed runs SLIP-10 derivation from a BIP-39 seed along path and
// returns the final 32-byte private key, which seeds the ed25519 keypair.
func DeriveSeed(seed []byte, path Path) ([]byte, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	node, err := master.DerivePath(path)
	if err != nil {
		return nil, err
	}
	return node.PrivateKeyBytes(), nil
}
