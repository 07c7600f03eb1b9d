package kernel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/redshirt-os/redshirt/types"
)

// EncodeCall renders an interface call as the opaque EncodedMessage payload
// carried by InterfaceMessage/ReservedPidInterfaceMessage outcomes: the
// called function's name followed by its arguments, each tagged with its
// ValueType so a receiver with no prior schema knowledge can still decode
// the call.
//
// The data model treats EncodedMessage as opaque to the core; this is one
// concrete encoding of it, not a wire format mandated by the spec. The
// teacher's Config carries a protobuf unmarshaler (UnmarshalProto) for its
// own configuration schema, but that schema is fixed and known ahead of
// time — it gives no guidance for a payload whose shape depends on
// whichever interface happens to be called at runtime, so a small
// self-describing binary encoding is used here instead.
func EncodeCall(fn string, args []types.WasmValue) []byte {
	buf := make([]byte, 0, 2+len(fn)+len(args)*9)
	buf = appendUint16(buf, uint16(len(fn)))
	buf = append(buf, fn...)
	buf = appendUint16(buf, uint16(len(args)))
	for _, a := range args {
		buf = appendValue(buf, a)
	}
	return buf
}

// DecodeCall parses the output of EncodeCall.
func DecodeCall(data []byte) (fn string, args []types.WasmValue, err error) {
	r := reader{data: data}
	nameLen, err := r.uint16()
	if err != nil {
		return "", nil, err
	}
	name, err := r.bytes(int(nameLen))
	if err != nil {
		return "", nil, err
	}
	argc, err := r.uint16()
	if err != nil {
		return "", nil, err
	}
	vals := make([]types.WasmValue, argc)
	for i := range vals {
		v, err := r.value()
		if err != nil {
			return "", nil, err
		}
		vals[i] = v
	}
	return string(name), vals, nil
}

// EncodeResult renders a response value for AnswerMessage's data parameter.
// A nil v encodes an empty (void) response.
func EncodeResult(v *types.WasmValue) []byte {
	if v == nil {
		return nil
	}
	return appendValue(nil, *v)
}

// DecodeResult parses the output of EncodeResult against the expected
// ValueType. An empty data decodes to nil, matching a void response.
func DecodeResult(data []byte, want *types.ValueType) (*types.WasmValue, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if want == nil {
		return nil, fmt.Errorf("redshirt: kernel: response carries a value but none was expected")
	}
	r := reader{data: data}
	v, err := r.value()
	if err != nil {
		return nil, err
	}
	if v.Type() != *want {
		return nil, fmt.Errorf("redshirt: kernel: response type %s does not match expected %s", v.Type(), *want)
	}
	return &v, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendValue(buf []byte, v types.WasmValue) []byte {
	buf = append(buf, byte(v.Type()))
	var b [8]byte
	switch v.Type() {
	case types.I32:
		binary.LittleEndian.PutUint32(b[:4], uint32(v.I32()))
		buf = append(buf, b[:4]...)
	case types.I64:
		binary.LittleEndian.PutUint64(b[:8], uint64(v.I64()))
		buf = append(buf, b[:8]...)
	case types.F32:
		binary.LittleEndian.PutUint32(b[:4], math.Float32bits(v.F32()))
		buf = append(buf, b[:4]...)
	case types.F64:
		binary.LittleEndian.PutUint64(b[:8], math.Float64bits(v.F64()))
		buf = append(buf, b[:8]...)
	}
	return buf
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("redshirt: kernel: truncated message")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) value() (types.WasmValue, error) {
	tagB, err := r.bytes(1)
	if err != nil {
		return types.WasmValue{}, err
	}
	switch types.ValueType(tagB[0]) {
	case types.I32:
		b, err := r.bytes(4)
		if err != nil {
			return types.WasmValue{}, err
		}
		return types.I32Value(int32(binary.LittleEndian.Uint32(b))), nil
	case types.I64:
		b, err := r.bytes(8)
		if err != nil {
			return types.WasmValue{}, err
		}
		return types.I64Value(int64(binary.LittleEndian.Uint64(b))), nil
	case types.F32:
		b, err := r.bytes(4)
		if err != nil {
			return types.WasmValue{}, err
		}
		return types.F32Value(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case types.F64:
		b, err := r.bytes(8)
		if err != nil {
			return types.WasmValue{}, err
		}
		return types.F64Value(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	default:
		return types.WasmValue{}, fmt.Errorf("redshirt: kernel: unknown value type tag %d", tagB[0])
	}
}
