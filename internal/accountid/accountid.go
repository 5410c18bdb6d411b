// Package accountid defines the 32-byte opaque account identifier shared by
// every component: the order book, the collateral vaults, and the
// registration registry all key off this type.
package accountid

import (
	"encoding/hex"
	"fmt"
)

// Size is the fixed byte length of an account identifier.
const Size = 32

// ID is a 32-byte opaque account identifier. Equality and ordering are
// byte-wise, matching spec.md's data model.
type ID [Size]byte

// Zero is the default, unset identifier.
var Zero = ID{}

// FromBytes copies b into a new ID. b must be exactly Size bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("accountid: expected %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// FromHex parses the standard "0x"-prefixed, 64-hex-digit string form.
func FromHex(s string) (ID, error) {
	var id ID
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != Size*2 {
		return id, fmt.Errorf("accountid: expected %d hex chars, got %d", Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("accountid: invalid hex: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

// String renders the standard "0x"-prefixed hex form.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Bytes returns a copy of the underlying bytes.
func (id ID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id == Zero
}

// Compare returns -1, 0, or 1 following byte-wise ordering, for use as a
// stable sort/tie-break key.
func (id ID) Compare(other ID) int {
	for i := 0; i < Size; i++ {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
