package types

import (
	"fmt"
	"strings"
)

// ValueType is one of the four Wasm value types the core understands at
// the extrinsic/IPC boundary. Reftypes and vectors are not part of this
// set; they are handled entirely inside the reftype package.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

func (v ValueType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("valuetype(%d)", uint8(v))
	}
}

// WasmValue is a tagged union over the four value types, mirroring the
// values the Wasm engine passes across host/guest calls.
type WasmValue struct {
	ty  ValueType
	i32 int32
	i64 int64
	f32 float32
	f64 float64
}

func I32Value(v int32) WasmValue   { return WasmValue{ty: I32, i32: v} }
func I64Value(v int64) WasmValue   { return WasmValue{ty: I64, i64: v} }
func F32Value(v float32) WasmValue { return WasmValue{ty: F32, f32: v} }
func F64Value(v float64) WasmValue { return WasmValue{ty: F64, f64: v} }

// Type returns the value's type tag.
func (w WasmValue) Type() ValueType { return w.ty }

// I32 returns the value as an int32. It panics if the value is not an I32;
// callers are expected to check Type() first, matching the guest-side
// contract that a mismatched resume value traps the thread rather than the
// host.
func (w WasmValue) I32() int32 {
	if w.ty != I32 {
		panic(fmt.Sprintf("types: WasmValue.I32 called on a %s value", w.ty))
	}
	return w.i32
}

func (w WasmValue) I64() int64 {
	if w.ty != I64 {
		panic(fmt.Sprintf("types: WasmValue.I64 called on a %s value", w.ty))
	}
	return w.i64
}

func (w WasmValue) F32() float32 {
	if w.ty != F32 {
		panic(fmt.Sprintf("types: WasmValue.F32 called on a %s value", w.ty))
	}
	return w.f32
}

func (w WasmValue) F64() float64 {
	if w.ty != F64 {
		panic(fmt.Sprintf("types: WasmValue.F64 called on a %s value", w.ty))
	}
	return w.f64
}

// Signature is an ordered sequence of parameter types plus an optional
// return type. Equality is structural.
type Signature struct {
	Params []ValueType
	Return *ValueType
}

// NewSignature builds a Signature from a parameter list and an optional
// return type; pass nil for a function with no return value.
func NewSignature(params []ValueType, ret *ValueType) Signature {
	p := make([]ValueType, len(params))
	copy(p, params)
	return Signature{Params: p, Return: ret}
}

// Equal reports whether two signatures are structurally identical.
func (s Signature) Equal(o Signature) bool {
	if len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	if (s.Return == nil) != (o.Return == nil) {
		return false
	}
	if s.Return != nil && *s.Return != *o.Return {
		return false
	}
	return true
}

// Encode renders the signature as a compact, order-preserving text form
// suitable for round-tripping through Decode. It is not used for wire
// framing (EncodedMessage is opaque to the core); it exists to satisfy the
// encode/decode law the kernel's test suite checks.
func (s Signature) Encode() string {
	var b strings.Builder
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteByte(':')
	if s.Return != nil {
		b.WriteString(s.Return.String())
	}
	return b.String()
}

// Decode parses the output of Encode back into a Signature.
func Decode(s string) (Signature, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("types: malformed encoded signature %q", s)
	}
	var params []ValueType
	if parts[0] != "" {
		for _, tok := range strings.Split(parts[0], ",") {
			vt, err := parseValueType(tok)
			if err != nil {
				return Signature{}, err
			}
			params = append(params, vt)
		}
	}
	var ret *ValueType
	if parts[1] != "" {
		vt, err := parseValueType(parts[1])
		if err != nil {
			return Signature{}, err
		}
		ret = &vt
	}
	return NewSignature(params, ret), nil
}

func parseValueType(tok string) (ValueType, error) {
	switch tok {
	case "i32":
		return I32, nil
	case "i64":
		return I64, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	default:
		return 0, fmt.Errorf("types: unknown value type %q", tok)
	}
}
