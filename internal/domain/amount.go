package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the implied precision of the vault asset.
const Decimals = 18

const (
	// maxDigits is the decimal width of the largest uint256.
	maxDigits = 78
	// maxAmountLen bounds the input before any arithmetic runs.
	maxAmountLen = 128
)

// ParseUnits converts a human amount ("12.5") into base units (12.5 * 10^18).
func ParseUnits(s string) (uint256.Int, error) {
	var out uint256.Int

	if len(s) > maxAmountLen {
		return out, fmt.Errorf("parse amount: longer than %d characters", maxAmountLen)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return out, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return out, fmt.Errorf("parse amount %q: negative", s)
	}
	if d.IsZero() {
		return out, nil
	}

	// The exponent may be up to 2^31; both checks run before the value
	// is expanded to an integer.
	digits := int64(len(d.Coefficient().String()))
	exp := int64(d.Exponent()) + Decimals
	if digits+exp > maxDigits {
		return out, fmt.Errorf("parse amount %q: %w", s, ErrOverflow)
	}
	if exp < -digits {
		return out, fmt.Errorf("parse amount %q: more than %d decimals", s, Decimals)
	}

	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return out, fmt.Errorf("parse amount %q: more than %d decimals", s, Decimals)
	}

	if overflow := out.SetFromBig(scaled.BigInt()); overflow {
		return out, fmt.Errorf("parse amount %q: %w", s, ErrOverflow)
	}
	return out, nil
}

// MustUnits is ParseUnits for constants and tests.
func MustUnits(s string) uint256.Int {
	v, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatUnits renders base units as a human amount without trailing zeros.
func FormatUnits(v uint256.Int) string {
	return decimal.NewFromBigInt(v.ToBig(), -Decimals).String()
}

// ParseBaseUnits accepts an integer amount already in base units.
func ParseBaseUnits(s string) (uint256.Int, error) {
	var out uint256.Int
	if err := out.SetFromDecimal(s); err != nil {
		return out, fmt.Errorf("parse base units %q: %w", s, err)
	}
	return out, nil
}
