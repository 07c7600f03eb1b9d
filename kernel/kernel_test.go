package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/redshirt-os/redshirt/extrinsics"
	"github.com/redshirt-os/redshirt/extrinsics/wasilayer"
	"github.com/redshirt-os/redshirt/internal/wasmtest"
	"github.com/redshirt-os/redshirt/types"
)

func withTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func TestTrivialProcessFinishes(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 2})
	k.Start(ctx)
	defer k.Stop()

	pid, err := k.Execute(ctx, wasmtest.ConstI32Start(5))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	outcome, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if outcome.Kind != ProgramFinished {
		t.Fatalf("expected ProgramFinished, got %v", outcome.Kind)
	}
	if outcome.Pid != pid {
		t.Fatalf("expected pid %v, got %v", pid, outcome.Pid)
	}
	if outcome.Err != nil {
		t.Fatalf("expected no error, got %v", outcome.Err)
	}
	if outcome.ReturnValue == nil || outcome.ReturnValue.I32() != 5 {
		t.Fatalf("expected return value I32(5), got %+v", outcome.ReturnValue)
	}
}

func TestTrapReportsErroredProcess(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 1})
	k.Start(ctx)
	defer k.Stop()

	pid, err := k.Execute(ctx, wasmtest.TrapStart())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	outcome, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if outcome.Kind != ProgramFinished || outcome.Pid != pid {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Err == nil {
		t.Fatal("expected a non-nil error for a trapping process")
	}
}

// TestInterfaceCallRoutedToRegisteredHandler exercises scenario 3 end to
// end: a second "process" (here just a Pid reserved ahead of time) first
// registers as an interface's handler, a process then imports a function on
// that interface, and the host answers the call by calling
// AnswerMessage directly, mirroring what a real handler process would
// trigger after processing the InterfaceMessage outcome.
func TestInterfaceCallRoutedToRegisteredHandler(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 1})
	k.Start(ctx)
	defer k.Stop()

	iface := wasmtest.InterfaceHash(0x7)
	handlerPid := types.Pid(999)
	if _, err := k.SetInterfaceHandler(handlerPid, iface); err != nil {
		t.Fatalf("SetInterfaceHandler: %v", err)
	}

	pid, err := k.Execute(ctx, wasmtest.ImportCallStart(iface, "test"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	outcome, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if outcome.Kind != InterfaceMessage {
		t.Fatalf("expected InterfaceMessage, got %v (%+v)", outcome.Kind, outcome)
	}
	if outcome.EmitterPid != pid {
		t.Fatalf("expected emitter %v, got %v", pid, outcome.EmitterPid)
	}
	if outcome.MessageId == nil {
		t.Fatal("expected a MessageId since the imported function returns a value")
	}

	fn, args, err := DecodeCall(outcome.Data)
	if err != nil {
		t.Fatalf("DecodeCall: %v", err)
	}
	if fn != "test" || len(args) != 0 {
		t.Fatalf("unexpected decoded call %s(%v)", fn, args)
	}

	response := EncodeResult(valuePtr(types.I32Value(1234)))
	if err := k.AnswerMessage(*outcome.MessageId, response, false); err != nil {
		t.Fatalf("AnswerMessage: %v", err)
	}

	finished, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next (finish): %v", err)
	}
	if finished.Kind != ProgramFinished || finished.Pid != pid {
		t.Fatalf("unexpected finish outcome %+v", finished)
	}
	if finished.Err != nil {
		t.Fatalf("expected no error, got %v", finished.Err)
	}
	if finished.ReturnValue == nil || finished.ReturnValue.I32() != 1234 {
		t.Fatalf("expected return value I32(1234), got %+v", finished.ReturnValue)
	}
}

// TestInterfaceRegistrationRaceSecondCallerFails is the kernel-level
// counterpart of ifacemap's own race test: two attempts to register the
// same interface, only the first succeeds.
func TestInterfaceRegistrationRaceSecondCallerFails(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 1})
	k.Start(ctx)
	defer k.Stop()

	iface := wasmtest.InterfaceHash(0x9)
	if _, err := k.SetInterfaceHandler(types.Pid(11), iface); err != nil {
		t.Fatalf("first SetInterfaceHandler: %v", err)
	}
	if _, err := k.SetInterfaceHandler(types.Pid(12), iface); err == nil {
		t.Fatal("expected the second registration to fail")
	}
}

func valuePtr(v types.WasmValue) *types.WasmValue { return &v }

// TestExtrinsicWithWASIAndLoggingWired exercises scenario 2 with the
// ambient stack the bare-dispatch tests above skip: a registered
// extrinsic (not an interface handler) answers the call synchronously,
// with request logging (extrinsics/logging) and a mounted WASI layer
// (extrinsics/wasilayer) both enabled on the kernel that runs it.
func TestExtrinsicWithWASIAndLoggingWired(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	iface := wasmtest.InterfaceHash(0x13)
	registry := extrinsics.New()
	registry.Register(iface, "double", types.NewSignature([]types.ValueType{types.I32}, typePtr(types.I32)),
		extrinsics.SimpleResume(func(_ types.ThreadId, params []types.WasmValue, _ extrinsics.MemoryAccessor) types.WasmValue {
			return types.I32Value(params[0].I32() * 2)
		}))

	fs, err := wasilayer.NewFS(map[string][]byte{"/seed.txt": []byte("ok")})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	k := New(&Config{
		Workers:       1,
		Extrinsics:    registry,
		LogExtrinsics: true,
		WASI:          true,
		WASIFS:        fs,
	})
	k.Start(ctx)
	defer k.Stop()

	pid, err := k.Execute(ctx, wasmtest.ImportCallWithArgStart(iface, "double", 21))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	outcome, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if outcome.Kind != ProgramFinished || outcome.Pid != pid {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Err != nil {
		t.Fatalf("expected no error, got %v", outcome.Err)
	}
	if outcome.ReturnValue == nil || outcome.ReturnValue.I32() != 42 {
		t.Fatalf("expected the extrinsic's doubled result 42, got %+v", outcome.ReturnValue)
	}
}

func typePtr(vt types.ValueType) *types.ValueType { return &vt }

// TestGenuineProcessHandlerAnswersOwnMessage exercises the built-in
// "interface" interface end to end: a real Wasm process registers as
// iface's handler, parks in next_interface_message, is woken by another
// process's import call, and answers it itself via emit_answer — with the
// emitter observing the real response come back through Next, not a
// host-injected AnswerMessage.
func TestGenuineProcessHandlerAnswersOwnMessage(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 2})
	k.Start(ctx)
	defer k.Stop()

	iface := wasmtest.InterfaceHash(0x42)

	handlerPid, err := k.Execute(ctx, wasmtest.InterfaceHandlerStart(ReservedInterfaceHash, metaFnNextInterfaceMessage, metaFnEmitAnswer, 777))
	if err != nil {
		t.Fatalf("Execute(handler): %v", err)
	}
	if _, err := k.SetInterfaceHandler(handlerPid, iface); err != nil {
		t.Fatalf("SetInterfaceHandler: %v", err)
	}

	emitterPid, err := k.Execute(ctx, wasmtest.ImportCallStart(iface, "test"))
	if err != nil {
		t.Fatalf("Execute(emitter): %v", err)
	}

	seen := map[types.Pid]CoreRunOutcome{}
	for len(seen) < 2 {
		outcome, err := k.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if outcome.Kind != ProgramFinished {
			t.Fatalf("expected only ProgramFinished outcomes, got %v (%+v)", outcome.Kind, outcome)
		}
		seen[outcome.Pid] = outcome
	}

	handlerOutcome := seen[handlerPid]
	if handlerOutcome.Err != nil {
		t.Fatalf("handler process errored: %v", handlerOutcome.Err)
	}
	if handlerOutcome.ReturnValue == nil || handlerOutcome.ReturnValue.I32() != 0 {
		t.Fatalf("expected handler's emit_answer status 0, got %+v", handlerOutcome.ReturnValue)
	}

	emitterOutcome := seen[emitterPid]
	if emitterOutcome.Err != nil {
		t.Fatalf("emitter process errored: %v", emitterOutcome.Err)
	}
	if emitterOutcome.ReturnValue == nil || emitterOutcome.ReturnValue.I32() != 777 {
		t.Fatalf("expected emitter to observe the handler's own answer 777, got %+v", emitterOutcome.ReturnValue)
	}
}

// TestReftypeSlotClearedOnProcessDeath exercises spec component 4.9's
// taint sweep: a slot allocated to a process, and a second slot it is only
// recorded to have moved a value into, are both cleared once the owning
// process finishes.
func TestReftypeSlotClearedOnProcessDeath(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 1})
	k.Start(ctx)
	defer k.Stop()

	pid, err := k.Execute(ctx, wasmtest.ConstI32Start(0))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	seed, ok := k.AllocateReftypeSlot(pid)
	if !ok {
		t.Fatal("AllocateReftypeSlot: process not found")
	}
	moved, ok := k.AllocateReftypeSlot(pid)
	if !ok {
		t.Fatal("AllocateReftypeSlot: process not found")
	}
	if !k.RecordReftypeMove(pid, seed, moved+1000) {
		t.Fatal("RecordReftypeMove: process not found")
	}
	reached := moved + 1000

	if owner, ok := k.ReftypeSlotOwner(seed); !ok || owner != pid {
		t.Fatalf("expected %v to own seed slot before death, got %v/%v", pid, owner, ok)
	}

	if _, err := k.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	if _, ok := k.ReftypeSlotOwner(seed); ok {
		t.Fatal("expected seed slot to be cleared once its owner died")
	}
	if _, ok := k.ReftypeSlotOwner(reached); ok {
		t.Fatal("expected a slot only reachable via RecordReftypeMove to be cleared too")
	}
}

// TestCancelInterfaceRequestFailsWaitingMessage exercises CancelInterfaceRequest's
// MessageWaiter path: an emitter calls an interface nobody has registered
// yet, parking its message in the Interface Handlers Map, then the
// interface is cancelled before any handler appears and the emitter's
// call fails instead of hanging forever.
func TestCancelInterfaceRequestFailsWaitingMessage(t *testing.T) {
	ctx, cancel := withTimeout(t)
	defer cancel()

	k := New(&Config{Workers: 1})
	k.Start(ctx)
	defer k.Stop()

	iface := wasmtest.InterfaceHash(0x55)

	pid, err := k.Execute(ctx, wasmtest.ImportCallStart(iface, "test"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	k.CancelInterfaceRequest(iface)

	outcome, err := k.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if outcome.Kind != ProgramFinished || outcome.Pid != pid {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.ReturnValue == nil {
		t.Fatal("expected the import call to resume with a (failed) return value rather than hang")
	}
}
