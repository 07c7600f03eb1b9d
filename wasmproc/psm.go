// Package wasmproc wraps a single Wasm module instance as the Process
// State Machine described by the kernel: the thread-level execution
// contract the scheduler drives (start/resume/read/write/abort), built on
// top of github.com/tetratelabs/wazero.
//
// Grounded on the teacher's Core/core (one wazero.Runtime + CompiledModule
// + api.Module per instance, lazily-built HostModuleBuilders finalized at
// Instantiate time). Generalized from "one opaque Invoke" to per-thread
// suspension at the import-call boundary: every resolved import is bound
// to a host closure that, when called by the guest, reports a
// WaitImport ThreadOutcome and blocks on a channel until ResumeThread
// supplies the result — the same blocking-goroutine-plus-channel shape the
// teacher uses in transport/v1 to run a blocking export on its own
// goroutine and observe completion without polling.
package wasmproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/redshirt-os/redshirt/extrinsics/wasilayer"
	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/internal/log"
	"github.com/redshirt-os/redshirt/types"
)

// Resolver assigns a stable integer to each (interface, function, Signature)
// triple the module imports, consulting (and growing) the process's own
// Externals Index. It is called once per import at instantiation time.
type Resolver func(iface ifacehash.InterfaceHash, name string, sig types.Signature) (uint32, error)

// OutcomeKind tags the variant of a ThreadOutcome.
type OutcomeKind int

const (
	Finished OutcomeKind = iota
	WaitImport
	Errored
)

// ThreadOutcome is the result of one ResumeThread/StartThread step.
type ThreadOutcome struct {
	Kind OutcomeKind

	// Finished
	ReturnValue *types.WasmValue

	// WaitImport
	ImportIndex uint32
	ImportArgs  []types.WasmValue

	// Errored
	Err error
}

// threadEvent is what a running guest goroutine reports back to whichever
// caller is blocked in ResumeThread/StartThread.
type threadEvent struct {
	outcome ThreadOutcome
}

// Thread is one cooperative thread of execution belonging to a Process.
// It is never executed by more than one goroutine at a time; ownership of
// "which goroutine may call ResumeThread next" is enforced by the PSM's
// process-wide mutex.
type Thread struct {
	id types.ThreadId

	toGuest   chan types.WasmValue // resume value delivered to the blocked host closure
	fromGuest chan threadEvent     // next outcome reported by the guest goroutine
	aborted   chan struct{}        // closed by Abort to unblock a closure parked on toGuest

	waitingOnImport bool // true once the thread has reported WaitImport and not yet been resumed
	done            bool
}

// PSM wraps one Wasm module instance: compiled module, instantiated
// module, and the threads running inside it.
type PSM struct {
	logger *log.Logger

	mu sync.Mutex // serializes execution: single-entry, one thread at a time

	ctx     context.Context
	runtime wazero.Runtime
	module  wazero.CompiledModule
	instance api.Module

	threads map[types.ThreadId]*Thread

	closeOnce sync.Once
}

// New compiles wasmBytes, resolves its imports via resolve, and
// instantiates it. If the module exports "_start", a thread in the
// Runnable state is created automatically and its ThreadId is returned as
// the second value; otherwise the second return value is the zero
// ThreadId and hasStart is false.
//
// When enableWASI is set, wasilayer's WASI preview1 host module is
// registered on the process's own wazero.Runtime before the guest module
// is instantiated, mirroring the teacher's Core.WASIPreview1() being
// called ahead of Core.Instantiate(). A guest that does not import any
// wasi_snapshot_preview1 function pays nothing extra for this.
func New(ctx context.Context, cfg wazero.RuntimeConfig, moduleCfg wazero.ModuleConfig, wasmBytes []byte, resolve Resolver, nextThreadId func() types.ThreadId, logger *log.Logger, enableWASI bool) (psm *PSM, startThread types.ThreadId, hasStart bool, err error) {
	p := &PSM{
		ctx:     ctx,
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg),
		threads: make(map[types.ThreadId]*Thread),
		logger:  log.OrDefault(logger),
	}

	if enableWASI {
		if err := wasilayer.Instantiate(ctx, p.runtime); err != nil {
			_ = p.runtime.Close(ctx)
			return nil, 0, false, err
		}
	}

	p.module, err = p.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = p.runtime.Close(ctx)
		return nil, 0, false, fmt.Errorf("redshirt: wasmproc: CompileModule: %w: %w", ErrModuleRejected, err)
	}

	if err := p.validateMemory(); err != nil {
		_ = p.Close()
		return nil, 0, false, err
	}

	hostBuilders := make(map[string]wazero.HostModuleBuilder)
	for _, imp := range p.module.ImportedFunctions() {
		modName, fnName, ok := imp.Import()
		if !ok {
			continue
		}
		iface, parseErr := ifacehash.FromBase58(modName)
		if parseErr != nil {
			_ = p.Close()
			return nil, 0, false, fmt.Errorf("redshirt: wasmproc: import module %q is not a valid interface hash: %w: %w", modName, ErrModuleRejected, parseErr)
		}

		sig := signatureOf(imp)
		index, resolveErr := resolve(iface, fnName, sig)
		if resolveErr != nil {
			_ = p.Close()
			return nil, 0, false, fmt.Errorf("redshirt: wasmproc: resolving import %s.%s: %w: %w", modName, fnName, ErrModuleRejected, resolveErr)
		}

		if _, ok := hostBuilders[modName]; !ok {
			hostBuilders[modName] = p.runtime.NewHostModuleBuilder(modName)
		}
		hostBuilders[modName] = hostBuilders[modName].NewFunctionBuilder().
			WithFunc(p.makeImportClosure(index, sig)).
			Export(fnName)
	}

	for _, b := range hostBuilders {
		if _, err := b.Instantiate(ctx); err != nil {
			_ = p.Close()
			return nil, 0, false, fmt.Errorf("redshirt: wasmproc: instantiating host module: %w: %w", ErrModuleRejected, err)
		}
	}

	p.instance, err = p.runtime.InstantiateModule(ctx, p.module, moduleCfg)
	if err != nil {
		_ = p.Close()
		return nil, 0, false, fmt.Errorf("redshirt: wasmproc: InstantiateModule: %w: %w", ErrModuleRejected, err)
	}

	runtime.SetFinalizer(p, func(p *PSM) { _ = p.Close() })

	if fn := p.instance.ExportedFunction("_start"); fn != nil {
		tid := nextThreadId()
		p.spawnThread(tid, "_start", nil)
		return p, tid, true, nil
	}

	return p, 0, false, nil
}

// validateMemory enforces that the module exports exactly one memory,
// named "memory", and imports none.
func (p *PSM) validateMemory() error {
	var exportedMemories int
	for _, ext := range p.module.AllExports() {
		if ext.MemoryType() != nil {
			exportedMemories++
		}
	}
	if exportedMemories != 1 {
		return fmt.Errorf("redshirt: wasmproc: module must export exactly one memory, found %d: %w", exportedMemories, ErrModuleRejected)
	}
	if _, ok := p.module.AllExports()["memory"]; !ok {
		return fmt.Errorf("redshirt: wasmproc: module does not export a memory named %q: %w", "memory", ErrModuleRejected)
	}
	return nil
}

func signatureOf(def api.FunctionDefinition) types.Signature {
	params := make([]types.ValueType, len(def.ParamTypes()))
	for i, t := range def.ParamTypes() {
		params[i] = fromAPIValueType(t)
	}
	var ret *types.ValueType
	if rts := def.ResultTypes(); len(rts) == 1 {
		vt := fromAPIValueType(rts[0])
		ret = &vt
	}
	return types.NewSignature(params, ret)
}

func fromAPIValueType(vt api.ValueType) types.ValueType {
	switch vt {
	case api.ValueTypeI32:
		return types.I32
	case api.ValueTypeI64:
		return types.I64
	case api.ValueTypeF32:
		return types.F32
	case api.ValueTypeF64:
		return types.F64
	default:
		return types.I32
	}
}

func toAPIValueType(vt types.ValueType) api.ValueType {
	switch vt {
	case types.I32:
		return api.ValueTypeI32
	case types.I64:
		return api.ValueTypeI64
	case types.F32:
		return api.ValueTypeF32
	case types.F64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// makeImportClosure returns the Go function bound to one resolved import.
// When the guest calls it, it hands control back to whichever goroutine is
// blocked reading the Thread's fromGuest channel, reporting WaitImport,
// then blocks itself until ResumeThread supplies a value.
func (p *PSM) makeImportClosure(index uint32, sig types.Signature) func(ctx context.Context, mod api.Module, stack []uint64) {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		th := threadFromContext(ctx)

		args := make([]types.WasmValue, len(sig.Params))
		for i, pt := range sig.Params {
			args[i] = wasmValueFromStackSlot(pt, stack[i])
		}

		th.waitingOnImport = true
		th.fromGuest <- threadEvent{outcome: ThreadOutcome{
			Kind:        WaitImport,
			ImportIndex: index,
			ImportArgs:  args,
		}}

		var resume types.WasmValue
		select {
		case resume = <-th.toGuest:
		case <-th.aborted:
			th.waitingOnImport = false
			panic(ErrAborted)
		}
		th.waitingOnImport = false

		if sig.Return != nil {
			stack[0] = stackSlotFromWasmValue(resume)
		}
	}
}

type threadContextKey struct{}

func threadFromContext(ctx context.Context) *Thread {
	th, _ := ctx.Value(threadContextKey{}).(*Thread)
	if th == nil {
		panic("redshirt: wasmproc: import called outside of a tracked thread's context")
	}
	return th
}

func wasmValueFromStackSlot(vt types.ValueType, slot uint64) types.WasmValue {
	switch vt {
	case types.I32:
		return types.I32Value(int32(slot))
	case types.I64:
		return types.I64Value(int64(slot))
	case types.F32:
		return types.F32Value(api.DecodeF32(slot))
	case types.F64:
		return types.F64Value(api.DecodeF64(slot))
	default:
		return types.I32Value(int32(slot))
	}
}

func stackSlotFromWasmValue(v types.WasmValue) uint64 {
	switch v.Type() {
	case types.I32:
		return uint64(uint32(v.I32()))
	case types.I64:
		return uint64(v.I64())
	case types.F32:
		return api.EncodeF32(v.F32())
	case types.F64:
		return api.EncodeF64(v.F64())
	default:
		return 0
	}
}

// spawnThread launches the goroutine that drives one call to an exported
// function from start to Finished/Errored, reporting WaitImport outcomes
// along the way.
func (p *PSM) spawnThread(tid types.ThreadId, funcName string, args []uint64) {
	th := &Thread{
		id:      tid,
		toGuest: make(chan types.WasmValue),
		// Buffered: once Abort has already stopped reading a thread's
		// outcomes, the guest goroutine's final Errored/Finished send
		// must still complete instead of blocking forever.
		fromGuest: make(chan threadEvent, 1),
		aborted:   make(chan struct{}),
	}
	p.threads[tid] = th

	go func() {
		ctx := context.WithValue(p.ctx, threadContextKey{}, th)
		fn := p.instance.ExportedFunction(funcName)
		results, err := fn.Call(ctx, args...)

		th.done = true
		if err != nil {
			th.fromGuest <- threadEvent{outcome: ThreadOutcome{Kind: Errored, Err: err}}
			return
		}
		var ret *types.WasmValue
		if rts := fn.Definition().ResultTypes(); len(rts) == 1 && len(results) == 1 {
			v := wasmValueFromStackSlot(fromAPIValueType(rts[0]), results[0])
			ret = &v
		}
		th.fromGuest <- threadEvent{outcome: ThreadOutcome{Kind: Finished, ReturnValue: ret}}
	}()
}

// StartThread starts a new thread at an exported function. Only functions
// exported with a matching Signature may be started this way.
func (p *PSM) StartThread(tid types.ThreadId, funcName string, args []types.WasmValue, wantSig types.Signature) (ThreadOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn := p.instance.ExportedFunction(funcName)
	if fn == nil {
		return ThreadOutcome{}, ErrFunctionNotExported
	}
	if !signatureOf(fn.Definition()).Equal(wantSig) {
		return ThreadOutcome{}, ErrFunctionNotExported
	}

	stack := make([]uint64, len(args))
	for i, a := range args {
		stack[i] = stackSlotFromWasmValue(a)
	}

	p.spawnThread(tid, funcName, stack)
	return p.awaitOutcome(p.threads[tid]), nil
}

// ResumeThread delivers a resume value to a thread parked in WaitImport
// and blocks until the thread's next outcome is available.
//
// Calling it with a non-nil value on a thread that is not currently
// waiting on an import is a programmer error and panics, per the contract.
func (p *PSM) ResumeThread(tid types.ThreadId, value *types.WasmValue) (ThreadOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	th, ok := p.threads[tid]
	if !ok || th.done {
		return ThreadOutcome{}, fmt.Errorf("redshirt: wasmproc: unknown or finished thread %v", tid)
	}

	switch {
	case value != nil && !th.waitingOnImport:
		panic(ErrDoubleResume)
	case value != nil:
		th.toGuest <- *value
	case th.waitingOnImport:
		th.toGuest <- types.WasmValue{}
	default:
		// Not yet waiting on anything (e.g. the thread New spawned
		// automatically for _start): nothing to deliver, just observe
		// whatever it reports next.
	}

	return p.awaitOutcome(th), nil
}

func (p *PSM) awaitOutcome(th *Thread) ThreadOutcome {
	ev := <-th.fromGuest
	if ev.outcome.Kind != WaitImport {
		delete(p.threads, th.id)
	}
	return ev.outcome
}

// ReadMemory returns a copy of length bytes of the instance's linear
// memory, starting at offset.
func (p *PSM) ReadMemory(offset uint32, length uint32) ([]byte, error) {
	mem := p.instanceMemory()
	b, ok := mem.Read(offset, length)
	if !ok {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// WriteMemory writes data into the instance's linear memory at offset.
func (p *PSM) WriteMemory(offset uint32, data []byte) error {
	mem := p.instanceMemory()
	if !mem.Write(offset, data) {
		return ErrOutOfBounds
	}
	return nil
}

func (p *PSM) instanceMemory() api.Memory {
	return p.instance.Memory()
}

// Abort marks every still-running thread Errored(Aborted). Threads already
// blocked on an import are unblocked by closing their aborted channel,
// which the host closure selects on alongside toGuest; the closure then
// panics with ErrAborted, which wazero reports back to the guest
// goroutine as a trap instead of a received zero value, so the goroutine
// actually unwinds instead of leaking forever mid-call.
func (p *PSM) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for tid, th := range p.threads {
		if th.waitingOnImport {
			close(th.aborted)
		}
		delete(p.threads, tid)
	}
}

// Close releases the wazero runtime, compiled module and instance. It is
// idempotent.
func (p *PSM) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		if p.instance != nil {
			if err := p.instance.Close(p.ctx); err != nil {
				closeErr = fmt.Errorf("redshirt: wasmproc: closing instance: %w", err)
			}
			p.instance = nil
		}
		if p.runtime != nil {
			if err := p.runtime.Close(p.ctx); err != nil {
				closeErr = fmt.Errorf("redshirt: wasmproc: closing runtime: %w", err)
			}
			p.runtime = nil
		}
		if p.module != nil {
			_ = p.module.Close(p.ctx)
			p.module = nil
		}
	})
	return closeErr
}
