package types

import (
	"errors"
	"fmt"
	"strings"
)

// Network names a ledger cluster.
type Network string

// Supported networks.
const (
	Mainnet Network = "mainnet"
	Devnet  Network = "devnet"
	Testnet Network = "testnet"
)

// DefaultNetwork is used when nothing has been selected yet.
const DefaultNetwork = Devnet

// ErrUnknownNetwork is returned for names outside the supported set.
var ErrUnknownNetwork = errors.New("unknown network")

// Networks lists every supported network in display order.
func Networks() []Network {
	return []Network{Mainnet, Devnet, Testnet}
}

// ParseNetwork parses a network name, case-insensitively.
// "mainnet-beta" is accepted as an alias for mainnet.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case Mainnet, Devnet, Testnet:
		return n, nil
	case "mainnet-beta":
		return Mainnet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}
}

// Valid reports whether n is a supported network.
func (n Network) Valid() bool {
	switch n {
	case Mainnet, Devnet, Testnet:
		return true
	}
	return false
}

// String returns the network name.
func (n Network) String() string {
	return string(n)
}
