// Package extrinsics implements the Extrinsics Registry: the table of
// (interface, function name) -> (Signature, dispatch strategy) that lets
// the Scheduler resolve an import call synchronously instead of routing it
// through the Interface Handlers Map.
//
// Grounded on spec component 4.7's contract; the LoggingExtrinsics
// decorator (package logging) and the WASI wrapper (package wasilayer) are
// built on top of this package rather than inside it, the way the teacher
// layers WASIPreview1() and leveled logging on top of its bare Core.
package extrinsics

import (
	"fmt"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// MemoryAccessor is the narrow view of a process's linear memory an
// extrinsic needs: enough to decode call arguments and encode responses,
// without depending on wasmproc directly.
type MemoryAccessor interface {
	ReadMemory(offset, length uint32) ([]byte, error)
	WriteMemory(offset uint32, data []byte) error
}

// ActionKind tags the variant of an Action.
type ActionKind int

const (
	// Resume immediately resumes the calling thread with ResumeValue.
	Resume ActionKind = iota
	// ProgramCrash marks the calling thread Errored.
	ProgramCrash
	// EmitMessage delegates to the Interface Handlers Map / message
	// routing with the extrinsic itself as the emitter.
	EmitMessage
)

// Action is what a Strategy's NewContext or InjectMessageResponse returns,
// telling the scheduler what to do next.
type Action struct {
	Kind ActionKind

	// Resume
	ResumeValue *types.WasmValue

	// EmitMessage
	Interface        ifacehash.InterfaceHash
	Payload          []byte
	ResponseExpected bool
}

// ResumeAction builds a Resume action. v may be nil for functions with no
// return value.
func ResumeAction(v *types.WasmValue) Action { return Action{Kind: Resume, ResumeValue: v} }

// CrashAction builds a ProgramCrash action.
func CrashAction() Action { return Action{Kind: ProgramCrash} }

// EmitAction builds an EmitMessage action.
func EmitAction(iface ifacehash.InterfaceHash, payload []byte, responseExpected bool) Action {
	return Action{Kind: EmitMessage, Interface: iface, Payload: payload, ResponseExpected: responseExpected}
}

// Strategy is the dispatch behavior bound to one extrinsic. Context is
// opaque state threaded between NewContext and a later InjectMessageResponse,
// for extrinsics (like WASI's random_get) that emit a message and resume
// the thread only once the response arrives.
type Strategy struct {
	NewContext func(tid types.ThreadId, params []types.WasmValue, mem MemoryAccessor) (ctx any, action Action)

	// InjectMessageResponse is nil for extrinsics whose NewContext never
	// returns EmitMessage.
	InjectMessageResponse func(ctx any, response []byte, failed bool, mem MemoryAccessor) Action
}

// SimpleResume builds a Strategy for the common case of an extrinsic that
// always resumes synchronously from its parameters, never emitting a
// message.
func SimpleResume(f func(tid types.ThreadId, params []types.WasmValue, mem MemoryAccessor) types.WasmValue) Strategy {
	return Strategy{
		NewContext: func(tid types.ThreadId, params []types.WasmValue, mem MemoryAccessor) (any, Action) {
			v := f(tid, params, mem)
			return nil, ResumeAction(&v)
		},
	}
}

// key identifies one registered extrinsic.
type key struct {
	iface ifacehash.InterfaceHash
	fn    string
}

func (k key) String() string { return fmt.Sprintf("%s.%s", k.iface, k.fn) }
