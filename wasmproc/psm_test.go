package wasmproc

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/internal/wasmtest"
	"github.com/redshirt-os/redshirt/types"
)

func TestTrivialRunReturns5(t *testing.T) {
	ctx := context.Background()
	wasmBytes := wasmtest.ConstI32Start(5)

	resolver := func(ifacehash.InterfaceHash, string, types.Signature) (uint32, error) {
		t.Fatal("no imports expected in this fixture")
		return 0, nil
	}

	var nextTid types.ThreadId = 1
	psm, startTid, hasStart, err := New(ctx, wazero.NewRuntimeConfig(), wazero.NewModuleConfig(), wasmBytes, resolver, func() types.ThreadId { nextTid++; return nextTid }, nil, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer psm.Close()

	if !hasStart {
		t.Fatal("expected module with _start to report hasStart")
	}

	outcome, err := psm.ResumeThread(startTid, nil)
	if err != nil {
		t.Fatalf("ResumeThread: %v", err)
	}
	if outcome.Kind != Finished {
		t.Fatalf("expected Finished, got %v (err=%v)", outcome.Kind, outcome.Err)
	}
	if outcome.ReturnValue == nil || outcome.ReturnValue.I32() != 5 {
		t.Fatalf("expected return value I32(5), got %+v", outcome.ReturnValue)
	}
}

func TestTrapReportsErrored(t *testing.T) {
	ctx := context.Background()
	wasmBytes := wasmtest.TrapStart()

	resolver := func(ifacehash.InterfaceHash, string, types.Signature) (uint32, error) {
		t.Fatal("no imports expected in this fixture")
		return 0, nil
	}

	var nextTid types.ThreadId = 1
	psm, startTid, hasStart, err := New(ctx, wazero.NewRuntimeConfig(), wazero.NewModuleConfig(), wasmBytes, resolver, func() types.ThreadId { nextTid++; return nextTid }, nil, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer psm.Close()
	if !hasStart {
		t.Fatal("expected hasStart")
	}

	outcome, err := psm.ResumeThread(startTid, nil)
	if err != nil {
		t.Fatalf("ResumeThread: %v", err)
	}
	if outcome.Kind != Errored {
		t.Fatalf("expected Errored, got %v", outcome.Kind)
	}
}

func TestExtrinsicResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	iface := wasmtest.InterfaceHash(0x42)
	wasmBytes := wasmtest.ImportCallStart(iface, "test")

	const wantIndex uint32 = 7
	resolver := func(got ifacehash.InterfaceHash, name string, sig types.Signature) (uint32, error) {
		if got != iface || name != "test" {
			t.Fatalf("unexpected import %x.%s", got, name)
		}
		return wantIndex, nil
	}

	var nextTid types.ThreadId = 1
	psm, startTid, hasStart, err := New(ctx, wazero.NewRuntimeConfig(), wazero.NewModuleConfig(), wasmBytes, resolver, func() types.ThreadId { nextTid++; return nextTid }, nil, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer psm.Close()
	if !hasStart {
		t.Fatal("expected hasStart")
	}

	outcome, err := psm.ResumeThread(startTid, nil)
	if err != nil {
		t.Fatalf("ResumeThread: %v", err)
	}
	if outcome.Kind != WaitImport {
		t.Fatalf("expected WaitImport, got %v (err=%v)", outcome.Kind, outcome.Err)
	}
	if outcome.ImportIndex != wantIndex {
		t.Fatalf("expected import index %d, got %d", wantIndex, outcome.ImportIndex)
	}

	resumeValue := types.I32Value(1234)
	outcome, err = psm.ResumeThread(startTid, &resumeValue)
	if err != nil {
		t.Fatalf("ResumeThread (second): %v", err)
	}
	if outcome.Kind != Finished {
		t.Fatalf("expected Finished, got %v (err=%v)", outcome.Kind, outcome.Err)
	}
	if outcome.ReturnValue == nil || outcome.ReturnValue.I32() != 1234 {
		t.Fatalf("expected return value I32(1234), got %+v", outcome.ReturnValue)
	}
}
