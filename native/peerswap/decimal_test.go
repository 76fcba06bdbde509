package peerswap

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestDecimalFromRatioTruncates(t *testing.T) {
	d, err := DecimalFromRatio(u(1), u(3))
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if got := d.String(); got != "0.333333333333333333" {
		t.Fatalf("unexpected ratio %s", got)
	}
	if got := d.MulAmount(u(3_000_000)).Uint64(); got != 999_999 {
		t.Fatalf("expected truncation to 999999, got %d", got)
	}
	if _, err := DecimalFromRatio(u(1), u(0)); !errors.Is(err, errDivideByZero) {
		t.Fatalf("expected divide by zero, got %v", err)
	}
}

func TestBasisPoints(t *testing.T) {
	if got := BasisPoints(25).String(); got != "0.0025" {
		t.Fatalf("unexpected 25bp %s", got)
	}
	if got := BasisPoints(10_000).Cmp(DecimalOne()); got != 0 {
		t.Fatalf("10000bp must equal one")
	}
	if !BasisPoints(0).IsZero() {
		t.Fatalf("0bp must be zero")
	}
	if got := BasisPoints(2).MulAmount(u(10_000_000)).Uint64(); got != 2_000 {
		t.Fatalf("expected 2000, got %d", got)
	}
}

func TestMulAmountHandlesMaxAmount(t *testing.T) {
	max := new(uint256.Int).Set(maxUint128)
	if got := DecimalOne().MulAmount(max); !got.Eq(max) {
		t.Fatalf("one times max changed the amount: %s", got.Dec())
	}
}

func TestParseAmountBounds(t *testing.T) {
	if _, err := ParseAmount("340282366920938463463374607431768211455"); err != nil {
		t.Fatalf("max uint128 rejected: %v", err)
	}
	if _, err := ParseAmount("340282366920938463463374607431768211456"); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := ParseAmount("-1"); err == nil {
		t.Fatalf("expected negative amount rejected")
	}
	if _, err := ParseAmount(" "); err == nil {
		t.Fatalf("expected empty amount rejected")
	}
}
