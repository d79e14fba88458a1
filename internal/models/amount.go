package models

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MaxAmountBits bounds every Amount to a 128-bit unsigned integer.
const MaxAmountBits = 128

// Amount is an unsigned currency quantity in the smallest unit, limited to
// 128 bits. The zero value is 0.
type Amount struct {
	v uint256.Int
}

// NewAmount returns n as an Amount.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// ParseAmount parses a decimal string.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return a, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if v.BitLen() > MaxAmountBits {
		return a, fmt.Errorf("amount %q exceeds %d bits", s, MaxAmountBits)
	}
	a.v = *v
	return a, nil
}

// MustAmount is ParseAmount for constants; it panics on bad input.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the decimal form.
func (a Amount) String() string { return a.v.Dec() }

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Uint64 returns the value and whether it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// Add returns a+b; ok is false when the sum leaves the 128-bit range.
func (a Amount) Add(b Amount) (sum Amount, ok bool) {
	_, overflow := sum.v.AddOverflow(&a.v, &b.v)
	return sum, !overflow && sum.v.BitLen() <= MaxAmountBits
}

// Sub returns a-b; ok is false on underflow.
func (a Amount) Sub(b Amount) (diff Amount, ok bool) {
	_, underflow := diff.v.SubOverflow(&a.v, &b.v)
	return diff, !underflow
}

// MulDiv returns a*num/den with truncating division. The intermediate product
// is computed in 256 bits, so it cannot overflow for num below 2^128. ok is
// false when den is zero or the result leaves the 128-bit range.
func (a Amount) MulDiv(num, den uint64) (res Amount, ok bool) {
	if den == 0 {
		return res, false
	}
	var prod uint256.Int
	if _, overflow := prod.MulOverflow(&a.v, uint256.NewInt(num)); overflow {
		return res, false
	}
	res.v.Div(&prod, uint256.NewInt(den))
	return res, res.v.BitLen() <= MaxAmountBits
}

// DivMod returns a/b and a%b. ok is false when b is zero.
func (a Amount) DivMod(b Amount) (quo, rem Amount, ok bool) {
	if b.v.IsZero() {
		return quo, rem, false
	}
	quo.v.DivMod(&a.v, &b.v, &rem.v)
	return quo, rem, true
}

// MulUint64 returns a*n; ok is false outside the 128-bit range.
func (a Amount) MulUint64(n uint64) (res Amount, ok bool) {
	_, overflow := res.v.MulOverflow(&a.v, uint256.NewInt(n))
	return res, !overflow && res.v.BitLen() <= MaxAmountBits
}

// MarshalText encodes a as a decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a decimal string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
