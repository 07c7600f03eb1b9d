package kernel

import (
	"fmt"

	"github.com/redshirt-os/redshirt/notifqueue"
	"github.com/redshirt-os/redshirt/types"
)

// dispatchMetaInterface handles a call against ReservedInterfaceHash: the
// built-in "interface" interface every process implicitly imports, giving
// a genuine Wasm process a way to register as an interface handler and
// actually receive and answer the messages it is delivered, the same
// primitive a NativeProgram gets for free by implementing
// nativeprog.NativeProgram in Go instead.
func (k *Kernel) dispatchMetaInterface(proc *process, fn string, args []types.WasmValue) {
	switch fn {
	case metaFnNextInterfaceMessage:
		k.metaNextInterfaceMessage(proc)
	case metaFnEmitAnswer:
		k.metaEmitAnswer(proc, args)
	default:
		k.finishProcess(proc, nil, fmt.Errorf("redshirt: kernel: process %v called unknown function %q on the reserved interface", proc.pid, fn))
	}
}

// metaNextInterfaceMessage implements the wait-for-next-message loop: if a
// message is already queued at the reserved sentinel id, resume
// immediately with it; otherwise park the calling thread until deliver
// pushes one.
func (k *Kernel) metaNextInterfaceMessage(proc *process) {
	waitSet := []types.WaitEntry{types.NewAnswerEntry(types.NextInterfaceMessageId)}
	if _, note, ok := proc.tryTake(waitSet); ok {
		proc.refillMeta()
		k.enqueue(proc.pid, decodeMetaNotification(note))
		return
	}
	proc.park(proc.primary, waitSet)
}

// metaEmitAnswer lets a Wasm process answer the message whose id
// next_interface_message most recently handed it. The calling thread
// resumes with an i32 status (0 success, -1 if mid no longer names an
// outstanding message) for the emit_answer call itself; the original
// emitter is woken independently, through the ordinary AnswerMessage path.
func (k *Kernel) metaEmitAnswer(proc *process, args []types.WasmValue) {
	if len(args) != 2 || args[0].Type() != types.I32 || args[1].Type() != types.I32 {
		k.finishProcess(proc, nil, fmt.Errorf("redshirt: kernel: process %v called emit_answer with a malformed argument list", proc.pid))
		return
	}

	// deliverToProcess hands the guest only the low 32 bits of the id; map
	// them back to the full outstanding MessageId.
	low := uint32(args[0].I32())
	mid := types.MessageId(low)
	k.outstandingMu.Lock()
	for m := range k.outstanding {
		if uint32(m) == low {
			mid = m
			break
		}
	}
	k.outstandingMu.Unlock()
	answer := args[1]

	status := int32(0)
	if err := k.AnswerMessage(mid, EncodeResult(&answer), false); err != nil {
		status = -1
	}
	v := types.I32Value(status)
	k.enqueue(proc.pid, &v)
}

// decodeMetaNotification decodes what deliverToProcess pushed into the
// reserved sentinel slot: an i32 holding the matched message's id, or a
// zero value for a notification with no payload at all (defensive only —
// deliverToProcess always encodes one).
func decodeMetaNotification(n notifqueue.Notification) *types.WasmValue {
	if len(n.Data) == 0 {
		v := types.I32Value(0)
		return &v
	}
	want := types.I32
	v, err := DecodeResult(n.Data, &want)
	if err != nil {
		v := types.I32Value(-1)
		return &v
	}
	return v
}
