package types

import "testing"

func TestSignatureEncodeDecodeRoundTrip(t *testing.T) {
	i32 := I32
	f64 := F64
	cases := []Signature{
		NewSignature(nil, nil),
		NewSignature([]ValueType{I32}, &i32),
		NewSignature([]ValueType{I32, I64, F32, F64}, &f64),
		NewSignature([]ValueType{F64}, nil),
	}

	for _, want := range cases {
		t.Run(want.Encode(), func(t *testing.T) {
			got, err := Decode(want.Encode())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
			}
		})
	}
}

func TestSignatureEqual(t *testing.T) {
	i32 := I32
	a := NewSignature([]ValueType{I32, I64}, &i32)
	b := NewSignature([]ValueType{I32, I64}, &i32)
	c := NewSignature([]ValueType{I64, I32}, &i32)

	if !a.Equal(b) {
		t.Fatal("expected a == b")
	}
	if a.Equal(c) {
		t.Fatal("expected a != c")
	}
}

func TestWasmValueTypeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading I64 out of an I32 value")
		}
	}()
	I32Value(1).I64()
}
