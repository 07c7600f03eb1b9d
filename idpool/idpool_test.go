package idpool

import (
	"testing"

	"github.com/redshirt-os/redshirt/types"
)

func testSeed(b byte) [SeedSize]byte {
	var seed [SeedSize]byte
	for i := range seed {
		seed[i] = b
	}
	return seed
}

func TestSameSeedSameSequence(t *testing.T) {
	p1, err := New(testSeed(7))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p2, err := New(testSeed(7))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 16; i++ {
		if p1.Pid() != p2.Pid() {
			t.Fatalf("Pid sequences diverged at draw %d", i)
		}
	}
}

func TestDifferentSeedDifferentSequence(t *testing.T) {
	p1, _ := New(testSeed(1))
	p2, _ := New(testSeed(2))

	if p1.Pid() == p2.Pid() {
		t.Fatal("expected different seeds to produce different first Pid")
	}
}

func TestStreamsAreIndependent(t *testing.T) {
	p, _ := New(testSeed(42))

	pids := make(map[types.Pid]bool)
	tids := make(map[types.ThreadId]bool)
	for i := 0; i < 1000; i++ {
		pids[p.Pid()] = true
		tids[p.ThreadId()] = true
	}
	if len(pids) != 1000 {
		t.Fatalf("expected 1000 unique pids, got %d", len(pids))
	}
	if len(tids) != 1000 {
		t.Fatalf("expected 1000 unique tids, got %d", len(tids))
	}
}

func TestReservedIdsNeverProduced(t *testing.T) {
	p, _ := New(testSeed(9))
	for i := 0; i < 10000; i++ {
		if p.Pid() == types.KernelPid {
			t.Fatal("idpool produced the reserved kernel pid")
		}
		if p.MessageId() == types.NextInterfaceMessageId {
			t.Fatal("idpool produced the reserved next-interface-message id")
		}
	}
}
