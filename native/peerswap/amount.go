package peerswap

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// DustThreshold is the smallest deposit or partial payment, in base units,
// the engine accepts.
const DustThreshold uint64 = 10_000

var (
	maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	dustFloor  = uint256.NewInt(DustThreshold)
)

// NewAmount returns an amount holding v.
func NewAmount(v uint64) *uint256.Int { return uint256.NewInt(v) }

// ParseAmount parses a base-10 amount and enforces the 128-bit range.
func ParseAmount(s string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("peerswap: amount required")
	}
	v, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("peerswap: invalid amount %q: %w", s, err)
	}
	if err := checkAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

func checkAmount(v *uint256.Int) error {
	if v == nil {
		return nil
	}
	if v.Gt(maxUint128) {
		return ErrAmountOverflow
	}
	return nil
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func belowDust(v *uint256.Int) bool {
	return v == nil || v.Lt(dustFloor)
}
