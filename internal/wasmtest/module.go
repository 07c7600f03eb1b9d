// Package wasmtest builds tiny hand-assembled Wasm binaries for unit
// tests, so package tests don't depend on an external wat2wasm toolchain
// or checked-in .wasm fixtures.
package wasmtest

import "github.com/redshirt-os/redshirt/ifacehash"

// InterfaceHash returns a deterministic, non-zero InterfaceHash usable as
// the import module name in ImportCallStart fixtures.
func InterfaceHash(tag byte) ifacehash.InterfaceHash {
	var h ifacehash.InterfaceHash
	for i := range h {
		h[i] = tag
	}
	return h
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint32(len(content)))...)
	return append(out, content...)
}

func name(s string) []byte {
	out := uleb128(uint32(len(s)))
	return append(out, []byte(s)...)
}

// ConstI32Start returns a minimal module exporting "memory" (one page) and
// a zero-argument "_start" function returning the constant i32 v.
func ConstI32Start(v int32) []byte {
	return assemble(0x41, uleb128SignedPlaceholder(v))
}

// TrapStart returns a minimal module exporting "memory" and a "_start"
// function that unconditionally traps via the unreachable instruction.
func TrapStart() []byte {
	return assembleRaw([]byte{0x00}) // unreachable
}

// ImportCallStart returns a module that imports one zero-argument,
// i32-returning function named fnName under the given interface, calls it
// from "_start", and returns its result.
func ImportCallStart(iface ifacehash.InterfaceHash, fnName string) []byte {
	return assembleImport(iface.Base58(), fnName)
}

// ImportCallWithArgStart returns a module that imports one i32-argument,
// i32-returning function named fnName under the given interface, and a
// zero-argument, i32-returning "_start" that calls it with the constant
// argValue and returns its result — for fixtures exercising an extrinsic
// that reads its call parameters.
func ImportCallWithArgStart(iface ifacehash.InterfaceHash, fnName string, argValue int32) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type section: type 0 (i32) -> i32 for the import, type 1 () -> i32
	// for _start.
	typeContent := uleb128(2)
	typeContent = append(typeContent, 0x60, 0x01, 0x7f, 0x01, 0x7f)
	typeContent = append(typeContent, 0x60, 0x00, 0x01, 0x7f)
	out = append(out, section(1, typeContent)...)

	// import section: func 0 = fnName (type 0)
	importContent := uleb128(1)
	importContent = append(importContent, name(iface.Base58())...)
	importContent = append(importContent, name(fnName)...)
	importContent = append(importContent, 0x00, 0x00)
	out = append(out, section(2, importContent)...)

	// function section: func 1 (_start), local, type 1
	out = append(out, section(3, []byte{0x01, 0x01})...)

	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...)

	exportContent := uleb128(2)
	exportContent = append(exportContent, name("memory")...)
	exportContent = append(exportContent, 0x02, 0x00)
	exportContent = append(exportContent, name("_start")...)
	exportContent = append(exportContent, 0x00)
	exportContent = append(exportContent, uleb128(1)...)
	out = append(out, section(7, exportContent)...)

	body := []byte{0x00, 0x41}
	body = append(body, uleb128SignedPlaceholder(argValue)...)
	body = append(body, 0x10, 0x00, 0x0b) // call 0; end
	codeEntry := uleb128(uint32(len(body)))
	codeEntry = append(codeEntry, body...)
	out = append(out, section(10, append(uleb128(1), codeEntry...))...)

	return out
}

func uleb128SignedPlaceholder(v int32) []byte {
	// sleb128 encoding of a constant small enough for these fixtures.
	out := []byte{}
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func assemble(op byte, operand []byte) []byte {
	body := append([]byte{0x00}, op) // 0 locals, then the opcode
	body = append(body, operand...)
	body = append(body, 0x0b) // end
	return build(nil, body, nil, nil)
}

func assembleRaw(instrs []byte) []byte {
	body := append([]byte{0x00}, instrs...)
	body = append(body, 0x0b)
	return build(nil, body, nil, nil)
}

func assembleImport(modName, fnName string) []byte {
	// calls the imported func (index 0) then returns its i32 result.
	body := []byte{0x00, 0x10, 0x00, 0x0b} // 0 locals; call 0; end
	return build(&importDesc{module: modName, field: fnName}, body, nil, nil)
}

// InterfaceHandlerStart returns a module that implements a genuine
// interface handler using only the two imports every process gets for
// free on iface: it calls nextFn (the next_interface_message shape, ()
// -> i32) to block for the next message addressed to it, then calls
// answerFn (the emit_answer shape, (i32, i32) -> i32) with the matched
// message id and answerValue, returning answerFn's own i32 status as
// "_start"'s result.
func InterfaceHandlerStart(iface ifacehash.InterfaceHash, nextFn, answerFn string, answerValue int32) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type section: type 0 () -> i32, type 1 (i32, i32) -> i32
	typeContent := uleb128(2)
	typeContent = append(typeContent, 0x60, 0x00, 0x01, 0x7f)
	typeContent = append(typeContent, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f)
	out = append(out, section(1, typeContent)...)

	// import section: func 0 = nextFn (type 0), func 1 = answerFn (type 1)
	modName := name(iface.Base58())
	importContent := uleb128(2)
	importContent = append(importContent, modName...)
	importContent = append(importContent, name(nextFn)...)
	importContent = append(importContent, 0x00, 0x00)
	importContent = append(importContent, modName...)
	importContent = append(importContent, name(answerFn)...)
	importContent = append(importContent, 0x00, 0x01)
	out = append(out, section(2, importContent)...)

	// function section: one locally defined function (index 2) of type 0
	out = append(out, section(3, []byte{0x01, 0x00})...)

	// memory section: one memory, min 1 page
	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...)

	// export section
	exportContent := uleb128(2)
	exportContent = append(exportContent, name("memory")...)
	exportContent = append(exportContent, 0x02, 0x00)
	exportContent = append(exportContent, name("_start")...)
	exportContent = append(exportContent, 0x00)
	exportContent = append(exportContent, uleb128(2)...)
	out = append(out, section(7, exportContent)...)

	// code section: one function body with one i32 local holding the
	// matched message id between the two calls.
	body := []byte{0x01, 0x01, 0x7f} // 1 local-declaration group: 1 x i32
	body = append(body, 0x10, 0x00)  // call 0 (nextFn)
	body = append(body, 0x21, 0x00)  // local.set 0
	body = append(body, 0x20, 0x00)  // local.get 0
	body = append(body, 0x41)        // i32.const
	body = append(body, uleb128SignedPlaceholder(answerValue)...)
	body = append(body, 0x10, 0x01) // call 1 (answerFn)
	body = append(body, 0x0b)       // end

	codeEntry := uleb128(uint32(len(body)))
	codeEntry = append(codeEntry, body...)
	out = append(out, section(10, append(uleb128(1), codeEntry...))...)

	return out
}

type importDesc struct {
	module string
	field  string
}

// build assembles a complete module: type section (() -> i32), an
// optional single import of the same type, one local function of that
// type whose body is `body`, a one-page exported memory, and exports for
// "_start" and "memory".
func build(imp *importDesc, body []byte, _ []byte, _ []byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type section: single type () -> (i32)
	typeSec := []byte{0x60, 0x00, 0x01, 0x7f}
	out = append(out, section(1, append(uleb128(1), typeSec...))...)

	funcIndex := uint32(0)
	if imp != nil {
		importContent := uleb128(1)
		importContent = append(importContent, name(imp.module)...)
		importContent = append(importContent, name(imp.field)...)
		importContent = append(importContent, 0x00, 0x00) // kind=func, typeidx=0
		out = append(out, section(2, importContent)...)
		funcIndex = 1
	}

	// function section: one locally defined function of type 0
	funcSec := append(uleb128(1), 0x00)
	out = append(out, section(3, funcSec)...)

	// memory section: one memory, min 1 page
	memSec := append(uleb128(1), 0x00, 0x01)
	out = append(out, section(5, memSec)...)

	// export section
	exportContent := uleb128(2)
	exportContent = append(exportContent, name("memory")...)
	exportContent = append(exportContent, 0x02, 0x00)
	exportContent = append(exportContent, name("_start")...)
	exportContent = append(exportContent, 0x00)
	exportContent = append(exportContent, uleb128(funcIndex)...)
	out = append(out, section(7, exportContent)...)

	// code section: one function body
	codeEntry := uleb128(uint32(len(body)))
	codeEntry = append(codeEntry, body...)
	codeContent := append(uleb128(1), codeEntry...)
	out = append(out, section(10, codeContent)...)

	return out
}
