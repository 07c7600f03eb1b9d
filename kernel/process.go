package kernel

import (
	"sync"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/notifqueue"
	"github.com/redshirt-os/redshirt/reftype"
	"github.com/redshirt-os/redshirt/types"
	"github.com/redshirt-os/redshirt/waitlist"
	"github.com/redshirt-os/redshirt/wasmproc"
)

// process is the kernel's bookkeeping for one running Wasm program: the
// PSM that actually executes it, plus the per-process IPC state the
// original source keeps alongside each process (Notifications Queue,
// Waiting Threads List, registered interfaces).
//
// Grounded on spec component 4.3 (Processes Collection): one PSM, one
// Notifications Queue and one Waiting Threads List per process, scoped
// here as fields of process rather than three parallel maps the way the
// teacher's Core keeps one wazero.Runtime per connection — the same
// one-instance-per-unit-of-work shape, applied to a Wasm process instead
// of a network connection.
//
// Bookkeeping for messages awaiting a response (plain import calls and
// extrinsic EmitMessage alike) lives in the Kernel's outstanding map
// instead of here, since a response can arrive from outside this process
// entirely (another process, a NativeProgram, the host).
type process struct {
	pid types.Pid
	psm *wasmproc.PSM

	externals *externalsIndex
	notif     *notifqueue.Queue
	waits     *waitlist.List

	mu sync.Mutex

	// primary is the thread the scheduler's runnable FIFO drives. Only
	// the implicit _start thread is scheduled this way; StartThread's
	// general multi-thread capability exists at the wasmproc layer but is
	// not exercised by the scheduler loop in this implementation.
	primary types.ThreadId

	registered map[ifacehash.InterfaceHash]types.InterfaceRegistrationId

	// waitSets records, per parked thread, the wait set it was pushed
	// onto the Waiting Threads List with. A traversal that reaches a
	// thread's entry tests this wait set against the Notifications
	// Queue instead of assuming the entry matches whatever notification
	// was just pushed.
	waitSets map[types.ThreadId][]types.WaitEntry

	// reftypeGraph and reftypeSeed back the reftype taint sweep run at
	// process death: reftypeSeed is every slot this process was ever
	// handed ownership of, reftypeGraph the move edges recorded while it
	// ran.
	reftypeGraph *reftype.Graph
	reftypeSeed  []reftype.Range

	// metaQueued and pendingMeta back the reserved NextInterfaceMessageId
	// slot: the Notifications Queue holds at most one entry per
	// MessageId, but more than one message can be delivered to this
	// process's built-in "interface" wait loop before it drains the
	// first, so a second arrival queues here instead of overwriting the
	// first.
	metaQueued  bool
	pendingMeta []notifqueue.Notification
}

func newProcess(pid types.Pid, psm *wasmproc.PSM, externals *externalsIndex, primary types.ThreadId) *process {
	return &process{
		pid:          pid,
		psm:          psm,
		externals:    externals,
		notif:        notifqueue.New(),
		waits:        waitlist.New(),
		primary:      primary,
		registered:   make(map[ifacehash.InterfaceHash]types.InterfaceRegistrationId),
		waitSets:     make(map[types.ThreadId][]types.WaitEntry),
		reftypeGraph: reftype.NewGraph(),
	}
}

// tryTake checks the Notifications Queue for the first entry of waitSet
// already available, removing and returning it.
func (p *process) tryTake(waitSet []types.WaitEntry) (types.MessageId, notifqueue.Notification, bool) {
	e, ok := p.notif.Find(waitSet)
	if !ok {
		return 0, notifqueue.Notification{}, false
	}
	n, ok := p.notif.Extract(e)
	if !ok {
		return 0, notifqueue.Notification{}, false
	}
	return e.MessageId(), n, true
}

// park pushes tid onto the Waiting Threads List and records the wait set
// it is blocked on, for a later traversal to test against the
// Notifications Queue.
func (p *process) park(tid types.ThreadId, waitSet []types.WaitEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits.Push(tid)
	p.waitSets[tid] = waitSet
}

// waitSetFor returns the wait set tid was parked with, if it is still
// parked.
func (p *process) waitSetFor(tid types.ThreadId) ([]types.WaitEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws, ok := p.waitSets[tid]
	return ws, ok
}

// forgetWait drops tid's recorded wait set once it has been woken.
func (p *process) forgetWait(tid types.ThreadId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waitSets, tid)
}

// pushMeta delivers n to the reserved NextInterfaceMessageId slot,
// queueing it in pendingMeta instead if a previous delivery has not yet
// been drained from that slot.
func (p *process) pushMeta(n notifqueue.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metaQueued {
		p.pendingMeta = append(p.pendingMeta, n)
		return
	}
	p.metaQueued = true
	p.notif.Push(types.NextInterfaceMessageId, n)
}

// refillMeta is called once the notification at the reserved slot has
// been consumed, moving the oldest backlogged delivery (if any) into the
// slot for the next next_interface_message call to find.
func (p *process) refillMeta() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pendingMeta) == 0 {
		p.metaQueued = false
		return
	}
	next := p.pendingMeta[0]
	p.pendingMeta = p.pendingMeta[1:]
	p.notif.Push(types.NextInterfaceMessageId, next)
}

func (p *process) trackRegistration(iface ifacehash.InterfaceHash, regID types.InterfaceRegistrationId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered[iface] = regID
}

func (p *process) forgetRegistration(iface ifacehash.InterfaceHash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.registered, iface)
}

func (p *process) registeredInterfaces() []ifacehash.InterfaceHash {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ifacehash.InterfaceHash, 0, len(p.registered))
	for iface := range p.registered {
		out = append(out, iface)
	}
	return out
}
