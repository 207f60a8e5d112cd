// Package address implements the runtime's Address and AddressFactory:
// opaque, immutable actor identifiers with total equality, a stable hash,
// and a string form.
package address

import (
	"fmt"

	"github.com/google/uuid"
)

// Address uniquely identifies one actor within a Stage. Two Addresses are
// equal iff their underlying strings are equal; the zero value is not a
// valid Address (use Factory.New or Factory.Parse to mint one).
type Address struct {
	id string
}

// String returns the stable string form of the Address.
func (a Address) String() string {
	return a.id
}

// IsZero reports whether a is the zero value (never minted).
func (a Address) IsZero() bool {
	return a.id == ""
}

// Equal reports whether a and other identify the same actor.
func (a Address) Equal(other Address) bool {
	return a.id == other.id
}

// Hash returns a stable hash of the Address, suitable for sharding (see
// directory.Directory).
func (a Address) Hash() uint64 {
	return fnv64a(a.id)
}

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// Factory mints Addresses. The built-in scheme produces time-sortable,
// UUID-v7-style identifiers (§3): lexicographic order on the string form
// tracks creation order, which is convenient for logs and for the Directory's
// sharding but is not relied upon for FIFO — mailbox order is what provides
// that guarantee.
type Factory struct {
	prefix string
}

// NewFactory builds a Factory. prefix, if non-empty, is prepended to every
// minted address ("user-", "system-", ...) so addresses stay human-readable
// in logs without weakening uniqueness (the UUID suffix still carries it).
func NewFactory(prefix string) *Factory {
	return &Factory{prefix: prefix}
}

// New mints a fresh, globally unique Address.
func (f *Factory) New() Address {
	id := uuid.Must(uuid.NewV7()).String()
	if f.prefix != "" {
		id = f.prefix + "-" + id
	}
	return Address{id: id}
}

// Named mints an Address whose string form is exactly name, with the
// factory's prefix applied. Used for well-known singletons such as the
// system roots (§3 "Root actors").
func (f *Factory) Named(name string) Address {
	if f.prefix != "" {
		return Address{id: fmt.Sprintf("%s-%s", f.prefix, name)}
	}
	return Address{id: name}
}

// Parse reconstructs an Address from its string form. Any non-empty string
// is a valid Address string form; Parse fails only for the empty string.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("address: empty string is not a valid address")
	}
	return Address{id: s}, nil
}
