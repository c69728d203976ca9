package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// solDecimals is the exponent between lamports and SOL.
const solDecimals = 9

// Lamports is an amount in the ledger's base unit.
type Lamports uint64

// SOL returns the amount in SOL without loss of precision.
func (l Lamports) SOL() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(l)), -solDecimals)
}

// String formats the amount as SOL with trailing zeros trimmed.
func (l Lamports) String() string {
	return l.SOL().String() + " SOL"
}

// ParseSOL converts a SOL amount such as "1.5" to lamports.
func ParseSOL(s string) (Lamports, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	l := d.Shift(solDecimals)
	if !l.Equal(l.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, solDecimals)
	}
	bi := l.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return Lamports(bi.Uint64()), nil
}
