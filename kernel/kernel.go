// Package kernel composes the Processes Collection and Scheduler/Kernel
// Core: it owns every running process, the Interface Handlers Map, the
// Extrinsics Registry, the Externals Index and a pool of worker goroutines
// that drive processes forward and surface the result as a stream of
// CoreRunOutcome values.
//
// Grounded on the teacher's Core (one wazero.Runtime + api.Module per
// connection, driven to completion by a caller that invokes Instantiate
// then Invoke) generalized from "one connection" to "N concurrently
// scheduled processes": where the teacher has exactly one unit of work per
// Core value, Kernel fans a worker pool (golang.org/x/sync/errgroup, the
// library the rest of the retrieved pack reaches for over raw
// sync.WaitGroup) out across every runnable process, consulting the
// Extrinsics Registry, the Interface Handlers Map and the NativeProgram
// Collection in that order to decide what a suspended import call means.
package kernel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/redshirt-os/redshirt/extrinsics"
	"github.com/redshirt-os/redshirt/extrinsics/logging"
	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/ifacemap"
	"github.com/redshirt-os/redshirt/idpool"
	"github.com/redshirt-os/redshirt/internal/log"
	"github.com/redshirt-os/redshirt/kernel/kmetrics"
	"github.com/redshirt-os/redshirt/nativeprog"
	"github.com/redshirt-os/redshirt/notifqueue"
	"github.com/redshirt-os/redshirt/reftype"
	"github.com/redshirt-os/redshirt/types"
	"github.com/redshirt-os/redshirt/wasmproc"
)

// outstandingKind tags what an outstanding map entry should do once a
// response arrives.
type outstandingKind int

const (
	outstandingImportCall outstandingKind = iota
	outstandingExtrinsic
)

// outstandingCall is what the kernel remembers about one message that
// expects a response, whether it originated from a plain Wasm import call
// or from an extrinsic's EmitMessage action.
type outstandingCall struct {
	kind outstandingKind
	pid  types.Pid

	// outstandingImportCall
	want *types.ValueType

	// outstandingExtrinsic
	token extrinsics.Token
	ctx   any
}

// Kernel is the top-level scheduler. The zero value is not usable; use New.
type Kernel struct {
	cfg     *Config
	pool    *idpool.Pool
	logger  *log.Logger
	metrics *kmetrics.Metrics

	extrinsics extrinsics.Extrinsics
	ifaces     *ifacemap.Map
	natives    *nativeprog.Collection

	mu        sync.Mutex
	processes map[types.Pid]*process

	outstandingMu sync.Mutex
	outstanding   map[types.MessageId]outstandingCall

	reftypeMu        sync.Mutex
	reftypeOwners    map[reftype.Range]types.Pid
	nextReftypeRange reftype.Range

	runnable chan runnableStep
	outcomes chan CoreRunOutcome

	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
}

// runnableStep is one unit of scheduling work: resume pid's primary thread
// with value (nil for "just observe whatever it reports next").
type runnableStep struct {
	pid   types.Pid
	value *types.WasmValue
}

// New creates a Kernel from cfg. A nil cfg is equivalent to &Config{}.
func New(cfg *Config) *Kernel {
	if cfg == nil {
		cfg = &Config{}
	}
	pool, err := idpool.New(cfg.Seed)
	if err != nil {
		// Only possible if golang.org/x/crypto/chacha20 rejects a
		// derived key, which never happens for a 32-byte key: treat as
		// unreachable rather than threading an error through New.
		panic(fmt.Sprintf("redshirt: kernel: idpool.New: %v", err))
	}

	ext := cfg.Extrinsics
	if cfg.LogExtrinsics && ext != nil {
		ext = logging.Wrap(ext, cfg.Logger())
	}

	k := &Kernel{
		cfg:           cfg.Clone(),
		pool:          pool,
		logger:        cfg.Logger(),
		metrics:       kmetrics.New(),
		extrinsics:    ext,
		ifaces:        ifacemap.New(),
		natives:       nativeprog.New(),
		processes:     make(map[types.Pid]*process),
		outstanding:   make(map[types.MessageId]outstandingCall),
		reftypeOwners: make(map[reftype.Range]types.Pid),
		runnable:      make(chan runnableStep, 64),
		outcomes:      make(chan CoreRunOutcome, 64),
	}
	return k
}

// RegisterNativeProgram adds program under a fresh Pid drawn from the ID
// Pool, returning it so the embedder can address the program the same way
// it addresses any other process (set_interface_handler, emit_message).
func (k *Kernel) RegisterNativeProgram(program nativeprog.NativeProgram) types.Pid {
	pid := k.pool.Pid()
	k.natives.Push(pid, program)
	return pid
}

// Start launches the worker pool and the native-program event pump. It
// must be called once before Execute produces any progress; Next still
// blocks correctly if called before Start, it just never returns anything.
func (k *Kernel) Start(ctx context.Context) {
	gctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(gctx)
	k.gctx, k.cancel, k.group = gctx, cancel, group

	workers := k.cfg.WorkersOrDefault()
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			k.workerLoop(gctx)
			return nil
		})
	}
	group.Go(func() error {
		k.nativeEventLoop(gctx)
		return nil
	})
}

// Stop cancels every worker goroutine and waits for them to exit.
func (k *Kernel) Stop() {
	if k.cancel == nil {
		return
	}
	k.cancel()
	_ = k.group.Wait()
}

// Next blocks until a CoreRunOutcome is ready or ctx is cancelled.
func (k *Kernel) Next(ctx context.Context) (CoreRunOutcome, error) {
	select {
	case ev := <-k.outcomes:
		return ev, nil
	case <-ctx.Done():
		return CoreRunOutcome{}, ctx.Err()
	}
}

func (k *Kernel) emit(ev CoreRunOutcome) {
	k.outcomes <- ev
}

// Execute compiles and starts a Wasm process, returning its Pid. If the
// module exports "_start" it is enqueued on the runnable FIFO; otherwise
// the process is immediately reported ProgramFinished with a nil error,
// matching a module with no entry point doing nothing at all.
func (k *Kernel) Execute(ctx context.Context, wasmBytes []byte) (types.Pid, error) {
	pid := k.pool.Pid()
	externals := newExternalsIndex()

	resolver := func(iface ifacehash.InterfaceHash, fn string, sig types.Signature) (uint32, error) {
		return externals.assign(iface, fn, sig), nil
	}

	psm, startTid, hasStart, err := wasmproc.New(ctx, k.cfg.RuntimeConfigOrDefault(), k.cfg.NewModuleConfig(), wasmBytes, resolver, k.pool.ThreadId, k.logger, k.cfg.WASI)
	if err != nil {
		return 0, err
	}

	proc := newProcess(pid, psm, externals, startTid)
	k.mu.Lock()
	k.processes[pid] = proc
	k.mu.Unlock()
	k.metrics.ProcessesStarted.Inc()

	if hasStart {
		k.enqueue(pid, nil)
	} else {
		k.finishProcess(proc, nil, nil)
	}
	return pid, nil
}

func (k *Kernel) enqueue(pid types.Pid, value *types.WasmValue) {
	k.runnable <- runnableStep{pid: pid, value: value}
}

func (k *Kernel) getProcess(pid types.Pid) *process {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.processes[pid]
}

func (k *Kernel) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case step, ok := <-k.runnable:
			if !ok {
				return
			}
			k.step(step)
		}
	}
}

// step resumes one process's primary thread and reacts to the outcome.
// Extrinsic Resume actions do not continue in the same worker turn:
// applyExtrinsicAction enqueues them on the runnable FIFO like any other
// resumption, so the next step may run on any worker.
func (k *Kernel) step(s runnableStep) {
	proc := k.getProcess(s.pid)
	if proc == nil {
		return // process already torn down (e.g. aborted) before this step ran
	}

	outcome, err := proc.psm.ResumeThread(proc.primary, s.value)
	if err != nil {
		k.finishProcess(proc, nil, err)
		return
	}

	switch outcome.Kind {
	case wasmproc.Finished:
		k.finishProcess(proc, outcome.ReturnValue, nil)
	case wasmproc.Errored:
		k.finishProcess(proc, nil, outcome.Err)
	case wasmproc.WaitImport:
		k.dispatchImport(proc, outcome)
	}
}

func (k *Kernel) finishProcess(proc *process, ret *types.WasmValue, err error) {
	k.mu.Lock()
	delete(k.processes, proc.pid)
	k.mu.Unlock()

	for _, iface := range proc.registeredInterfaces() {
		if _, ok := k.ifaces.Unregister(iface); ok {
			k.metrics.InterfacesOwned.Dec()
		}
	}
	k.natives.Broadcast(proc.pid)
	k.sweepOutstandingForDeath(proc)
	k.sweepReftypeForDeath(proc)
	_ = proc.psm.Close()

	if err != nil {
		k.metrics.ProcessesErrored.Inc()
	} else {
		k.metrics.ProcessesFinished.Inc()
	}

	k.emit(CoreRunOutcome{Kind: ProgramFinished, Pid: proc.pid, Err: err, ReturnValue: ret})
}

// dispatchImport decides what a suspended import call means, consulting
// the Extrinsics Registry first and the Interface Handlers Map /
// NativeProgram Collection second, per spec component 4.8's dispatch
// order.
func (k *Kernel) dispatchImport(proc *process, outcome wasmproc.ThreadOutcome) {
	ext, ok := proc.externals.lookup(outcome.ImportIndex)
	if !ok {
		k.finishProcess(proc, nil, fmt.Errorf("redshirt: kernel: process %v resumed with unknown import index %d", proc.pid, outcome.ImportIndex))
		return
	}

	if ext.iface == ReservedInterfaceHash {
		k.dispatchMetaInterface(proc, ext.fn, outcome.ImportArgs)
		return
	}

	if k.extrinsics != nil {
		if tok, _, ok := k.extrinsics.Resolve(ext.iface, ext.fn); ok {
			ctxVal, action := k.extrinsics.NewContext(tok, proc.primary, outcome.ImportArgs, proc.psm)
			k.applyExtrinsicAction(proc, tok, ctxVal, action)
			return
		}
	}

	k.routeInterfaceCall(proc, ext.iface, ext.fn, ext.sig, outcome.ImportArgs)
}

// routeInterfaceCall treats an ordinary (non-extrinsic) import as the
// common-case IPC primitive: call one interface function, block for its
// one response. It still goes through the same Notifications Queue plus
// Waiting Threads List push-and-traverse delivery every other waiter
// uses — a bare import's wait set is simply the single-entry case of the
// general wait_messages primitive, not a separate mechanism.
func (k *Kernel) routeInterfaceCall(proc *process, iface ifacehash.InterfaceHash, fn string, sig types.Signature, args []types.WasmValue) {
	payload := EncodeCall(fn, args)
	responseExpected := sig.Return != nil

	var mid *types.MessageId
	if responseExpected {
		m := k.pool.MessageId()
		mid = &m
		want := *sig.Return
		k.putOutstanding(m, outstandingCall{kind: outstandingImportCall, pid: proc.pid, want: &want})
		proc.park(proc.primary, []types.WaitEntry{types.NewAnswerEntry(m)})
	}
	k.metrics.MessagesEmitted.Inc()

	k.deliver(proc.pid, iface, mid, payload, responseExpected)

	if !responseExpected {
		k.enqueue(proc.pid, nil)
	}
}

// deliver routes a message toward iface's handler: the reserved kernel
// Pid, a registered NativeProgram, a genuine Wasm-process handler (woken
// through its own Notifications Queue and Waiting Threads List via the
// built-in "interface" interface), a handler the kernel is not currently
// tracking as a live process (surfaced to the host as a CoreRunOutcome,
// since the host is the only delivery mechanism the kernel has left for
// it), or parked waiting for a handler to appear at all.
func (k *Kernel) deliver(emitter types.Pid, iface ifacehash.InterfaceHash, mid *types.MessageId, payload []byte, responseExpected bool) {
	handlerPid, registered := k.ifaces.Lookup(iface)
	switch {
	case registered && handlerPid == types.KernelPid:
		k.emit(CoreRunOutcome{Kind: ReservedPidInterfaceMessage, EmitterPid: emitter, MessageId: mid, Interface: iface, Data: payload, ResponseExpected: responseExpected})
	case registered:
		if np, ok := k.natives.Get(handlerPid); ok {
			rejected, rejectPayload := np.InterfaceMessage(iface, mid, emitter, payload)
			if rejected && mid != nil {
				k.AnswerMessage(*mid, rejectPayload, true)
			}
			return
		}
		if proc := k.getProcess(handlerPid); proc != nil {
			k.deliverToProcess(proc, mid)
			return
		}
		k.emit(CoreRunOutcome{Kind: InterfaceMessage, EmitterPid: emitter, MessageId: mid, Interface: iface, Data: payload, ResponseExpected: responseExpected})
	default:
		k.ifaces.InsertWaitingMessage(iface, emitter, mid, payload)
	}
}

// deliverToProcess hands a message to a genuine, currently-running Wasm
// process registered as iface's handler, through the built-in "interface"
// interface's wait loop: it pushes the message's id into the handler's own
// Notifications Queue at the reserved NextInterfaceMessageId slot and
// wakes its parked thread, the same push-and-traverse mechanism AnswerMessage
// uses for an ordinary response. The handler's next_interface_message call
// resumes with that id and the guest calls emit_answer(mid, value) on its
// own time to respond — this kernel's ABI only threads a single scalar
// through an import call, so the notification carries the message's id,
// not its payload; a handler that wants the call's encoded arguments reads
// them back out via a later, payload-carrying interface call of its own.
func (k *Kernel) deliverToProcess(proc *process, mid *types.MessageId) {
	var data []byte
	if mid != nil {
		v := types.I32Value(int32(*mid))
		data = EncodeResult(&v)
	}
	proc.pushMeta(notifqueue.Notification{Data: data})
	k.wakeWaiting(proc)
}

// applyExtrinsicAction carries out the Action an extrinsic's NewContext or
// InjectMessageResponse returned.
func (k *Kernel) applyExtrinsicAction(proc *process, tok extrinsics.Token, ctxVal any, action extrinsics.Action) {
	switch action.Kind {
	case extrinsics.Resume:
		k.enqueue(proc.pid, action.ResumeValue)
	case extrinsics.ProgramCrash:
		k.finishProcess(proc, nil, fmt.Errorf("redshirt: kernel: extrinsic crashed process %v", proc.pid))
	case extrinsics.EmitMessage:
		mid := k.pool.MessageId()
		k.putOutstanding(mid, outstandingCall{kind: outstandingExtrinsic, pid: proc.pid, token: tok, ctx: ctxVal})
		k.metrics.MessagesEmitted.Inc()
		if action.ResponseExpected {
			proc.park(proc.primary, []types.WaitEntry{types.NewAnswerEntry(mid)})
		}
		k.deliver(proc.pid, action.Interface, &mid, action.Payload, action.ResponseExpected)
		if !action.ResponseExpected {
			k.resolveExtrinsicResponse(mid, nil, false)
		}
	}
}

func (k *Kernel) resolveExtrinsicResponse(mid types.MessageId, data []byte, failed bool) {
	oc, ok := k.takeOutstanding(mid)
	if !ok || oc.kind != outstandingExtrinsic {
		return
	}
	proc := k.getProcess(oc.pid)
	if proc == nil {
		return
	}
	action := k.extrinsics.InjectMessageResponse(oc.token, oc.ctx, data, failed, proc.psm)
	k.applyExtrinsicAction(proc, oc.token, oc.ctx, action)
}

func (k *Kernel) putOutstanding(mid types.MessageId, oc outstandingCall) {
	k.outstandingMu.Lock()
	defer k.outstandingMu.Unlock()
	k.outstanding[mid] = oc
}

func (k *Kernel) takeOutstanding(mid types.MessageId) (outstandingCall, bool) {
	k.outstandingMu.Lock()
	defer k.outstandingMu.Unlock()
	oc, ok := k.outstanding[mid]
	if ok {
		delete(k.outstanding, mid)
	}
	return oc, ok
}

// sweepOutstandingForDeath resolves every message proc itself emitted and
// was still waiting on when it died, so the entry cannot leak in
// k.outstanding forever. An extrinsic's continuation is given one last
// InjectMessageResponse with failed=true before proc's PSM is closed, the
// same shape it would see for an ordinary failed response; a plain import
// call has nothing left to resume into and is simply dropped.
func (k *Kernel) sweepOutstandingForDeath(proc *process) {
	k.outstandingMu.Lock()
	var doomed []outstandingCall
	for mid, oc := range k.outstanding {
		if oc.pid == proc.pid {
			doomed = append(doomed, oc)
			delete(k.outstanding, mid)
		}
	}
	k.outstandingMu.Unlock()

	for _, oc := range doomed {
		if oc.kind != outstandingExtrinsic || k.extrinsics == nil {
			continue
		}
		// The returned Action is discarded: proc is already being torn
		// down, so there is nothing left to Resume, park, or emit another
		// message on behalf of.
		_ = k.extrinsics.InjectMessageResponse(oc.token, oc.ctx, nil, true, proc.psm)
	}
}

// AnswerMessage delivers a response to mid by pushing it into the waiting
// process's Notifications Queue and traversing its Waiting Threads List for
// the first parked thread whose wait set it satisfies, per spec components
// 4.4 and 4.5. It is safe to call from a worker goroutine, a NativeProgram's
// event pump, a Wasm process answering via emit_answer, or the embedding
// host.
func (k *Kernel) AnswerMessage(mid types.MessageId, data []byte, failed bool) error {
	if mid == types.NextInterfaceMessageId {
		return ErrNoResponseExpected
	}

	k.outstandingMu.Lock()
	oc, ok := k.outstanding[mid]
	k.outstandingMu.Unlock()
	if !ok {
		return ErrAlreadyAnswered
	}

	proc := k.getProcess(oc.pid)
	if proc == nil {
		k.takeOutstanding(mid)
		return ErrUnknownProcess
	}

	k.metrics.MessagesAnswered.Inc()
	proc.notif.Push(mid, notifqueue.Notification{Data: data, Failed: failed})
	k.wakeWaiting(proc)
	return nil
}

// wakeWaiting implements the spec's delivery algorithm's second half:
// traverse the Waiting Threads List looking for the first parked thread
// whose own wait set the Notifications Queue now satisfies — not
// necessarily the thread whatever was just pushed was addressed to, and
// not necessarily in the order threads parked, since a multi-entry wait
// set is matched in wait-set order.
func (k *Kernel) wakeWaiting(proc *process) {
	it := proc.waits.Access()
	defer it.Release()
	for {
		entry, ok := it.Next()
		if !ok {
			return
		}
		tid := entry.ThreadId()
		waitSet, has := proc.waitSetFor(tid)
		if !has {
			continue
		}
		matchedMid, note, ok := proc.tryTake(waitSet)
		if !ok {
			continue
		}
		entry.Remove()
		proc.forgetWait(tid)
		if matchedMid == types.NextInterfaceMessageId {
			proc.refillMeta()
		}
		k.resumeMatched(proc, matchedMid, note)
		return
	}
}

// resumeMatched resumes whatever was parked waiting on matchedMid: the
// reserved sentinel resumes the built-in "interface" wait loop directly
// with the matched message's id, an ordinary import call decodes and
// resumes with its return value, and an extrinsic's continuation is
// re-entered via InjectMessageResponse.
func (k *Kernel) resumeMatched(proc *process, matchedMid types.MessageId, note notifqueue.Notification) {
	if matchedMid == types.NextInterfaceMessageId {
		k.enqueue(proc.pid, decodeMetaNotification(note))
		return
	}

	oc, ok := k.takeOutstanding(matchedMid)
	if !ok {
		return
	}
	switch oc.kind {
	case outstandingImportCall:
		if note.Failed {
			k.enqueue(proc.pid, nil)
			return
		}
		v, err := DecodeResult(note.Data, oc.want)
		if err != nil {
			k.finishProcess(proc, nil, err)
			return
		}
		k.enqueue(proc.pid, v)
	case outstandingExtrinsic:
		action := k.extrinsics.InjectMessageResponse(oc.token, oc.ctx, note.Data, note.Failed, proc.psm)
		k.applyExtrinsicAction(proc, oc.token, oc.ctx, action)
	}
}

// SetInterfaceHandler registers pid as iface's handler and delivers every
// message that was parked waiting for it. Thread waiters drained from the
// map are dropped without being woken.
func (k *Kernel) SetInterfaceHandler(pid types.Pid, iface ifacehash.InterfaceHash) (types.InterfaceRegistrationId, error) {
	waiters, regID, err := k.ifaces.SetHandler(iface, pid)
	if err != nil {
		return 0, err
	}

	if proc := k.getProcess(pid); proc != nil {
		proc.trackRegistration(iface, regID)
	}
	k.metrics.InterfacesOwned.Inc()

	for _, w := range waiters {
		switch {
		case w.Thread != nil:
			// ThreadWaiter is for a thread that asked to be woken the
			// moment iface gets a handler at all (distinct from
			// next_interface_message, which waits for an actual message
			// once the calling process is the handler); nothing in this
			// implementation parks one yet, so there is nothing to wake.
			// CancelInterfaceRequest is the other place these are
			// consumed, failing them instead of fulfilling them.
		case w.Message != nil:
			k.deliver(w.Message.EmitterPid, iface, w.Message.MessageId, w.Message.Payload, w.Message.MessageId != nil)
		}
	}
	return regID, nil
}

// UnregisterInterfaceHandler drops iface back to unregistered, if pid was
// its handler.
func (k *Kernel) UnregisterInterfaceHandler(pid types.Pid, iface ifacehash.InterfaceHash) bool {
	if owner, ok := k.ifaces.Lookup(iface); !ok || owner != pid {
		return false
	}
	if _, ok := k.ifaces.Unregister(iface); !ok {
		return false
	}
	if proc := k.getProcess(pid); proc != nil {
		proc.forgetRegistration(iface)
	}
	k.metrics.InterfacesOwned.Dec()
	return true
}

// CancelInterfaceRequest drops iface from Requested back to Absent, for an
// embedder that knows no handler will ever register for it (its own
// shutdown, a NativeProgram being torn down). Every waiter parked on it —
// threads blocked waiting for the registration and messages already
// emitted toward it — is failed instead of left parked forever.
func (k *Kernel) CancelInterfaceRequest(iface ifacehash.InterfaceHash) {
	for _, w := range k.ifaces.UnregisterWithWaiters(iface) {
		switch {
		case w.Thread != nil:
			if proc := k.getProcess(w.Thread.Pid); proc != nil {
				if err := k.failParkedThread(proc, w.Thread.Tid); err != nil {
					log.LDebugf(k.logger, "redshirt: kernel: CancelInterfaceRequest(%s): %v", iface, err)
				}
			}
		case w.Message != nil:
			if w.Message.MessageId != nil {
				if err := k.AnswerMessage(*w.Message.MessageId, nil, true); err != nil {
					log.LDebugf(k.logger, "redshirt: kernel: CancelInterfaceRequest(%s): answering cancelled message: %v", iface, err)
				}
			}
		}
	}
}

// failParkedThread fails tid's wait with ErrInterfaceNotAvailable. A
// process in this implementation has exactly one scheduled thread, so
// failing its only thread's wait means the process itself cannot make
// further progress: it is finished with the error, the same way any other
// unrecoverable thread failure ends a process.
func (k *Kernel) failParkedThread(proc *process, tid types.ThreadId) error {
	if _, has := proc.waitSetFor(tid); !has {
		return ErrUnknownThread
	}
	proc.forgetWait(tid)

	it := proc.waits.Access()
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if entry.ThreadId() == tid {
			entry.Remove()
			break
		}
	}
	it.Release()

	k.finishProcess(proc, nil, ErrInterfaceNotAvailable)
	return nil
}

// Abort forcibly terminates pid's process, reporting ProgramFinished with
// ErrAborted. The Processes Collection — not the PSM — is authoritative
// here: a PSM that happens to report its own outcome for a thread already
// aborted is superseded, since finishProcess already removed pid from
// k.processes by the time any late outcome could arrive.
func (k *Kernel) Abort(pid types.Pid) {
	proc := k.getProcess(pid)
	if proc == nil {
		return
	}
	proc.psm.Abort()
	k.finishProcess(proc, nil, ErrAborted)
}

// RequestDebugMetrics surfaces a KernelDebugMetricsRequest outcome. Its
// Respond callback does nothing with its argument; the current metrics are
// read through MetricsSnapshot.
func (k *Kernel) RequestDebugMetrics() {
	k.emit(CoreRunOutcome{
		Kind: KernelDebugMetricsRequest,
		Respond: func(_ []byte) {
			// The caller-supplied snapshot is ignored: the kernel is the
			// source of truth for its own metrics. Respond exists so a
			// host that wants to post-process or forward the snapshot
			// still observes a completion signal symmetrical with every
			// other CoreRunOutcome.
		},
	})
}

// MetricsSnapshot renders the kernel's current metrics in Prometheus text
// exposition format.
func (k *Kernel) MetricsSnapshot() ([]byte, error) {
	return k.metrics.Snapshot()
}

// nativeEventLoop pumps NativeProgram-originated events (Emit,
// CancelMessage, Answer) into the same message-routing machinery a Wasm
// process's import calls use.
func (k *Kernel) nativeEventLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		pid, ev, ok := k.natives.NextEvent()
		if !ok {
			return
		}
		switch ev.Kind {
		case nativeprog.Emit:
			var mid *types.MessageId
			if ev.ResponseExpected {
				m := k.pool.MessageId()
				mid = &m
			}
			k.metrics.MessagesEmitted.Inc()
			k.deliver(pid, ev.Interface, mid, ev.Payload, ev.ResponseExpected)
		case nativeprog.CancelMessage:
			k.takeOutstanding(ev.Mid)
		case nativeprog.Answer:
			_ = k.AnswerMessage(ev.Mid, ev.Data, ev.Failed)
		}
	}
}
