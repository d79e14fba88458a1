package models

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentityKeySize is the byte length of an IdentityKey.
const IdentityKeySize = 32

// IdentityKey is an opaque participant or admin address. The all-zero key is
// the "unset" sentinel.
type IdentityKey [IdentityKeySize]byte

// DefaultIdentity is the all-zero sentinel.
var DefaultIdentity IdentityKey

// IsDefault reports whether k is the unset sentinel.
func (k IdentityKey) IsDefault() bool {
	return k == DefaultIdentity
}

// String renders the key in base58, the way wallet addresses are shown.
func (k IdentityKey) String() string {
	return base58.Encode(k[:])
}

// MarshalText encodes k in base58.
func (k IdentityKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a base58 identity.
func (k *IdentityKey) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentityKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseIdentityKey decodes a base58 identity.
func ParseIdentityKey(s string) (IdentityKey, error) {
	var k IdentityKey
	raw, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("decode identity %q: %w", s, err)
	}
	if len(raw) != IdentityKeySize {
		return k, fmt.Errorf("identity %q has %d bytes, want %d", s, len(raw), IdentityKeySize)
	}
	copy(k[:], raw)
	return k, nil
}

// MustIdentity is ParseIdentityKey for constants; it panics on bad input.
func MustIdentity(s string) IdentityKey {
	k, err := ParseIdentityKey(s)
	if err != nil {
		panic(err)
	}
	return k
}
