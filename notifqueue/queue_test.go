package notifqueue

import (
	"testing"

	"github.com/redshirt-os/redshirt/types"
)

func TestPushFindExtractRoundTrip(t *testing.T) {
	q := New()
	mid := types.MessageId(42)
	q.Push(mid, Notification{Data: []byte("hello")})

	waitSet := []types.WaitEntry{
		types.EmptyEntry(),
		types.NewAnswerEntry(types.MessageId(99)),
		types.NewAnswerEntry(mid),
	}

	entry, ok := q.Find(waitSet)
	if !ok {
		t.Fatal("expected to find a match")
	}
	if entry.MessageId() != mid {
		t.Fatalf("expected match on %v, got %v", mid, entry.MessageId())
	}
	if entry.IndexInList() != 2 {
		t.Fatalf("expected index 2, got %d", entry.IndexInList())
	}

	n, ok := q.Extract(entry)
	if !ok {
		t.Fatal("expected Extract to succeed")
	}
	if string(n.Data) != "hello" {
		t.Fatalf("unexpected data %q", n.Data)
	}

	if q.Contains(mid) {
		t.Fatal("expected mid to be removed after Extract")
	}
}

func TestFindIsMatchOrderNotQueueOrder(t *testing.T) {
	q := New()
	first := types.MessageId(1)
	second := types.MessageId(2)
	q.Push(second, Notification{Data: []byte("second")})
	q.Push(first, Notification{Data: []byte("first")})

	// waitSet lists `second` before `first`; match order must follow the
	// wait set, not insertion order into the queue.
	waitSet := []types.WaitEntry{types.NewAnswerEntry(second), types.NewAnswerEntry(first)}

	entry, ok := q.Find(waitSet)
	if !ok || entry.MessageId() != second {
		t.Fatalf("expected match order to prefer %v, got %v (ok=%v)", second, entry.MessageId(), ok)
	}
}

func TestFindNoMatch(t *testing.T) {
	q := New()
	waitSet := []types.WaitEntry{types.NewAnswerEntry(types.MessageId(7))}
	if _, ok := q.Find(waitSet); ok {
		t.Fatal("expected no match on empty queue")
	}
}

func TestPushOverwritesPreviousNotification(t *testing.T) {
	q := New()
	mid := types.MessageId(1)
	q.Push(mid, Notification{Data: []byte("old")})
	q.Push(mid, Notification{Data: []byte("new")})

	if q.Len() != 1 {
		t.Fatalf("expected exactly one outstanding notification, got %d", q.Len())
	}

	entry, _ := q.Find([]types.WaitEntry{types.NewAnswerEntry(mid)})
	n, _ := q.Extract(entry)
	if string(n.Data) != "new" {
		t.Fatalf("expected latest push to win, got %q", n.Data)
	}
}
