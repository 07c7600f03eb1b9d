package kernel

import (
	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// OutcomeKind tags the variant of a CoreRunOutcome.
type OutcomeKind int

const (
	// ProgramFinished reports that a process has no threads left: either
	// its main thread returned (Err is nil) or it trapped/was aborted
	// (Err is set).
	ProgramFinished OutcomeKind = iota

	// InterfaceMessage reports that a message was emitted toward an
	// interface registered to a Pid the kernel is not tracking as a live
	// process (not the reserved kernel Pid, not a NativeProgram, not a
	// running Wasm process — those are delivered internally, see
	// (*Kernel).deliver). The host is the delivery mechanism for this
	// case: it is expected to call AnswerMessage once it has arranged for
	// the handler process to see and answer the call, by whatever means
	// the embedder's handler-process convention provides.
	InterfaceMessage

	// ReservedPidInterfaceMessage reports a message emitted toward an
	// interface registered to types.KernelPid — one the embedder itself
	// implements, outside of any Wasm process or NativeProgram.
	ReservedPidInterfaceMessage

	// KernelDebugMetricsRequest is emitted when the embedder calls
	// (*Kernel).RequestDebugMetrics; Respond ignores its argument.
	KernelDebugMetricsRequest
)

// CoreRunOutcome is one event produced by (*Kernel).Next.
type CoreRunOutcome struct {
	Kind OutcomeKind

	// ProgramFinished
	Pid         types.Pid
	Err         error
	ReturnValue *types.WasmValue

	// InterfaceMessage / ReservedPidInterfaceMessage
	EmitterPid       types.Pid
	MessageId        *types.MessageId
	Interface        ifacehash.InterfaceHash
	Data             []byte
	ResponseExpected bool

	// KernelDebugMetricsRequest
	Respond func(snapshot []byte)
}
