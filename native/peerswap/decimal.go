package peerswap

import (
	"errors"
	"strings"

	"github.com/holiman/uint256"
)

const decimalPlaces = 18

var decimalFractional = uint256.NewInt(1_000_000_000_000_000_000)

var errDivideByZero = errors.New("peerswap: decimal ratio with zero denominator")

// Decimal is an unsigned fixed-point number with 18 fractional digits. All
// operations truncate toward zero so settlement amounts are reproducible
// bit for bit.
type Decimal struct {
	atomics uint256.Int
}

// DecimalZero returns 0.
func DecimalZero() Decimal { return Decimal{} }

// DecimalOne returns 1.
func DecimalOne() Decimal {
	var d Decimal
	d.atomics.Set(decimalFractional)
	return d
}

// DecimalFromRatio returns numerator/denominator truncated to 18 digits.
func DecimalFromRatio(numerator, denominator *uint256.Int) (Decimal, error) {
	if denominator == nil || denominator.IsZero() {
		return Decimal{}, errDivideByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(cloneAmount(numerator), decimalFractional)
	if overflow {
		return Decimal{}, ErrAmountOverflow
	}
	var d Decimal
	d.atomics.Div(scaled, denominator)
	return d, nil
}

// BasisPoints returns bps/10000.
func BasisPoints(bps uint16) Decimal {
	d, _ := DecimalFromRatio(uint256.NewInt(uint64(bps)), uint256.NewInt(10_000))
	return d
}

// IsZero reports whether d == 0.
func (d Decimal) IsZero() bool { return d.atomics.IsZero() }

// Atomics returns the raw value scaled by 10^18.
func (d Decimal) Atomics() *uint256.Int { return d.atomics.Clone() }

// MulAmount returns floor(amount * d). Amounts are bounded to 128 bits and
// ratios handled here never exceed one, so the intermediate product fits.
func (d Decimal) MulAmount(amount *uint256.Int) *uint256.Int {
	product, overflow := new(uint256.Int).MulOverflow(cloneAmount(amount), &d.atomics)
	if overflow {
		panic("peerswap: decimal multiplication overflow")
	}
	return product.Div(product, decimalFractional)
}

// Cmp compares two decimals.
func (d Decimal) Cmp(other Decimal) int { return d.atomics.Cmp(&other.atomics) }

func (d Decimal) String() string {
	whole := new(uint256.Int).Div(&d.atomics, decimalFractional)
	frac := new(uint256.Int).Mod(&d.atomics, decimalFractional)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	digits = strings.Repeat("0", decimalPlaces-len(digits)) + digits
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}
