package ifacemap

import (
	"testing"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

func testIface(tag byte) ifacehash.InterfaceHash {
	var h ifacehash.InterfaceHash
	for i := range h {
		h[i] = tag
	}
	return h
}

func TestSetHandlerDrainsWaiters(t *testing.T) {
	m := New()
	iface := testIface(1)

	m.InsertWaitingThread(iface, 10, 100)
	mid := types.MessageId(5)
	m.InsertWaitingMessage(iface, 20, &mid, []byte("hi"))

	waiters, regID, err := m.SetHandler(iface, types.Pid(2))
	if err != nil {
		t.Fatalf("SetHandler: %v", err)
	}
	if regID == 0 {
		t.Fatal("expected a non-zero registration id")
	}
	if len(waiters) != 2 {
		t.Fatalf("expected 2 drained waiters, got %d", len(waiters))
	}
	if waiters[0].Thread == nil || waiters[0].Thread.Pid != 10 {
		t.Fatalf("expected first waiter to be the parked thread, got %+v", waiters[0])
	}
	if waiters[1].Message == nil || waiters[1].Message.EmitterPid != 20 {
		t.Fatalf("expected second waiter to be the parked message, got %+v", waiters[1])
	}

	pid, ok := m.Lookup(iface)
	if !ok || pid != 2 {
		t.Fatalf("expected iface registered to pid 2, got %v (ok=%v)", pid, ok)
	}
}

func TestInterfaceRegistrationRace(t *testing.T) {
	m := New()
	iface := testIface(2)

	_, _, err1 := m.SetHandler(iface, types.Pid(1))
	_, _, err2 := m.SetHandler(iface, types.Pid(2))

	if err1 != nil {
		t.Fatalf("expected the first registration to succeed, got %v", err1)
	}
	if err2 != ErrAlreadyRegistered {
		t.Fatalf("expected the second registration to fail with ErrAlreadyRegistered, got %v", err2)
	}

	pid, _ := m.Lookup(iface)
	if pid != types.Pid(1) {
		t.Fatalf("expected winner pid 1 to remain registered, got %v", pid)
	}
}

func TestSetHandlerIdempotenceStateUnchanged(t *testing.T) {
	m := New()
	iface := testIface(3)
	m.SetHandler(iface, types.Pid(1))

	before, _ := m.Lookup(iface)
	_, _, err := m.SetHandler(iface, types.Pid(1))
	if err != ErrAlreadyRegistered {
		t.Fatalf("expected AlreadyRegistered on repeat call, got %v", err)
	}
	after, _ := m.Lookup(iface)
	if before != after {
		t.Fatalf("state changed across idempotent calls: %v -> %v", before, after)
	}
}

func TestUnregisterReturnsPreviousHandler(t *testing.T) {
	m := New()
	iface := testIface(4)
	m.SetHandler(iface, types.Pid(9))

	pid, ok := m.Unregister(iface)
	if !ok || pid != types.Pid(9) {
		t.Fatalf("expected Unregister to report pid 9, got %v (ok=%v)", pid, ok)
	}
	if _, ok := m.Lookup(iface); ok {
		t.Fatal("expected interface to be Absent after Unregister")
	}
}

func TestUnregisterWithWaitersDropsRequestedState(t *testing.T) {
	m := New()
	iface := testIface(5)
	m.InsertWaitingThread(iface, 1, 1)
	m.InsertWaitingThread(iface, 2, 2)

	waiters := m.UnregisterWithWaiters(iface)
	if len(waiters) != 2 {
		t.Fatalf("expected 2 failed waiters, got %d", len(waiters))
	}

	// interface is Absent again, so a fresh SetHandler should succeed.
	if _, _, err := m.SetHandler(iface, types.Pid(1)); err != nil {
		t.Fatalf("expected SetHandler to succeed on Absent interface, got %v", err)
	}
}
