package wallet

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxScanWindow bounds how many indices DeriveAccounts derives at once.
const MaxScanWindow = 100

// DeriveAccounts derives count consecutive accounts starting at index from.
// The seed is computed once; the per-index SLIP-10 chains run concurrently.
func DeriveAccounts(mnemonic string, from, count uint32) ([]Account, error) {
	if count == 0 {
		return nil, nil
	}
	if count > MaxScanWindow {
		return nil, fmt.Errorf("scan window %d exceeds %d", count, MaxScanWindow)
	}
	if uint64(from)+uint64(count)-1 > uint64(MaxAccountIndex) {
		return nil, fmt.Errorf("%w: %d+%d", ErrInvalidIndex, from, count)
	}

	normalized := NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(normalized) {
		return nil, ErrInvalidMnemonic
	}
	seed := SeedFromMnemonic(normalized, "")
	defer wipe(seed)

	out := make([]Account, count)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := uint32(0); i < count; i++ {
		idx := from + i
		g.Go(func() error {
			path, err := AccountPath(idx)
			if err != nil {
				return err
			}
			acct, err := deriveFromSeed(seed, normalized, path, idx, "")
			if err != nil {
				return err
			}
			out[i] = acct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
