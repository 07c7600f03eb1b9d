// Package ifacehash implements InterfaceHash, the 32-byte content address
// that names an interface. Equality and hashing are byte-wise; base58 is
// used only at the host boundary (logs, debug dumps, native-program
// registration strings), never internally.
package ifacehash

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the fixed length, in bytes, of an InterfaceHash.
const Size = 32

// InterfaceHash is a content-addressed interface identifier.
type InterfaceHash [Size]byte

// FromBytes copies b into a new InterfaceHash. It returns an error if b is
// not exactly Size bytes long.
func FromBytes(b []byte) (InterfaceHash, error) {
	var h InterfaceHash
	if len(b) != Size {
		return h, fmt.Errorf("ifacehash: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the hash's bytes.
func (h InterfaceHash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// String renders the hash as hex, for use in logs and error messages.
func (h InterfaceHash) String() string {
	return hex.EncodeToString(h[:])
}

// Base58 renders the hash as base58, the host-boundary encoding named in
// the data model.
func (h InterfaceHash) Base58() string {
	return base58.Encode(h[:])
}

// FromBase58 decodes a base58-encoded InterfaceHash produced by Base58.
func FromBase58(s string) (InterfaceHash, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return InterfaceHash{}, fmt.Errorf("ifacehash: base58 decode: %w", err)
	}
	return FromBytes(b)
}
