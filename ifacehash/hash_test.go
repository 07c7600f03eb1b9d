package ifacehash

import (
	"bytes"
	"testing"
)

func TestBase58RoundTrip(t *testing.T) {
	var h InterfaceHash
	for i := range h {
		h[i] = byte(i)
	}

	encoded := h.Base58()
	decoded, err := FromBase58(encoded)
	if err != nil {
		t.Fatalf("FromBase58: %v", err)
	}
	if decoded != h {
		t.Fatalf("round trip mismatch: got %x, want %x", decoded, h)
	}
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := FromBytes(make([]byte, Size-1)); err == nil {
		t.Fatal("expected error for short byte slice")
	}
}

func TestBytesIsACopy(t *testing.T) {
	var h InterfaceHash
	h[0] = 0xAB
	b := h.Bytes()
	b[0] = 0x00
	if !bytes.Equal(h.Bytes(), []byte{0xAB, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatal("Bytes() did not return an independent copy")
	}
}
