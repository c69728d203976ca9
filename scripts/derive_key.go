// derive_key.go prints the public key for a hex-encoded 32-byte ed25519 seed file,
// or for a raw BIP-39 seed file and derivation path.
// Usage: go run scripts/derive_key.go <keyfile> [path]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/velocity-wallet/velocity/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [path]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyHex := strings.TrimSpace(string(data))
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(os.Args) > 2 {
		path, err := wallet.ParsePath(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		keyBytes, err = wallet.DeriveSeed(keyBytes, path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("path=%s\n", path)
	}

	kp, err := wallet.KeypairFromSeed(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(kp.PublicKey))
	fmt.Printf("address=%s\n", wallet.EncodeKey(kp.PublicKey))
}
