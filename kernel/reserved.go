package kernel

import (
	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// KernelPid re-exports the reserved Pid of the kernel itself, for
// embedders that register interfaces the host answers directly (a
// ReservedPidInterfaceMessage outcome) rather than through a NativeProgram
// or a Wasm process.
const KernelPid = types.KernelPid

// NextInterfaceMessageId re-exports the sentinel MessageId reserved for
// the built-in "interface" interface's wait-for-next-message loop. It is
// never allocated by the ID Pool and never appears as a real message's id
// at the guest boundary.
const NextInterfaceMessageId = types.NextInterfaceMessageId

// ReservedInterfaceHash names the built-in "interface" interface every
// process implicitly imports to wait for the next message addressed to an
// interface it handles (next_interface_message) and to answer it
// (emit_answer), the same way it implicitly owns a Notifications Queue and
// Waiting Threads List without ever registering for either. The all-0xff
// pattern is never the content hash of real interface bytes in practice,
// reserved here the same way KernelPid and NextInterfaceMessageId are
// reserved sentinels elsewhere in the data model.
var ReservedInterfaceHash = ifacehash.InterfaceHash{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Reserved function names on ReservedInterfaceHash.
const (
	metaFnNextInterfaceMessage = "next_interface_message"
	metaFnEmitAnswer           = "emit_answer"
)
