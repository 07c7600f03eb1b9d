package nativeprog

import (
	"testing"
	"time"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

type fakeProgram struct {
	events     chan Event
	destroyed  []types.Pid
	responses  []types.MessageId
	rejectNext bool
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{events: make(chan Event, 4)}
}

func (f *fakeProgram) Events() <-chan Event { return f.events }

func (f *fakeProgram) InterfaceMessage(ifacehash.InterfaceHash, *types.MessageId, types.Pid, []byte) (bool, []byte) {
	return f.rejectNext, nil
}

func (f *fakeProgram) ProcessDestroyed(pid types.Pid) { f.destroyed = append(f.destroyed, pid) }

func (f *fakeProgram) MessageResponse(mid types.MessageId, data []byte, failed bool) {
	f.responses = append(f.responses, mid)
}

func TestPushDuplicatePanics(t *testing.T) {
	c := New()
	c.Push(types.Pid(2), newFakeProgram())
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate pid registration")
		}
	}()
	c.Push(types.Pid(2), newFakeProgram())
}

func TestBroadcastNotifiesAllPrograms(t *testing.T) {
	c := New()
	a, b := newFakeProgram(), newFakeProgram()
	c.Push(types.Pid(2), a)
	c.Push(types.Pid(3), b)

	c.Broadcast(types.Pid(99))

	if len(a.destroyed) != 1 || a.destroyed[0] != types.Pid(99) {
		t.Fatalf("expected program a notified, got %v", a.destroyed)
	}
	if len(b.destroyed) != 1 || b.destroyed[0] != types.Pid(99) {
		t.Fatalf("expected program b notified, got %v", b.destroyed)
	}
}

func TestNextEventReturnsFirstReady(t *testing.T) {
	c := New()
	a, b := newFakeProgram(), newFakeProgram()
	c.Push(types.Pid(2), a)
	c.Push(types.Pid(3), b)

	want := Event{Kind: CancelMessage, Mid: types.MessageId(5)}
	b.events <- want

	pid, got, ok := c.NextEvent()
	if !ok {
		t.Fatal("expected an event")
	}
	if pid != types.Pid(3) {
		t.Fatalf("expected event from pid 3, got %v", pid)
	}
	if got.Mid != want.Mid || got.Kind != want.Kind {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestNextEventNoProgramsRegistered(t *testing.T) {
	c := New()
	_, _, ok := c.NextEvent()
	if ok {
		t.Fatal("expected ok=false with no programs registered")
	}
}

func TestNextEventBlocksUntilAnEventArrives(t *testing.T) {
	c := New()
	a := newFakeProgram()
	c.Push(types.Pid(2), a)

	done := make(chan struct{})
	go func() {
		c.NextEvent()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("NextEvent returned before any event was sent")
	case <-time.After(20 * time.Millisecond):
	}

	a.events <- Event{Kind: Answer, Mid: 1}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NextEvent did not return after an event was sent")
	}
}
