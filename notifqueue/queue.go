// Package notifqueue implements the per-process Notifications Queue: a
// map from MessageId to a response payload awaiting delivery to whichever
// thread is (or will be) waiting on it.
//
// Grounded on original_source/kernel/core/src/scheduler/ipc/notifications_queue.rs:
// push stores a response keyed by MessageId; find scans the caller's wait
// set (not the whole queue) for the first MessageId present, so the cost
// is O(|wait set|); extract removes the stored response and returns it
// unchanged. The wait-set index of a match is available from
// Entry.IndexInList; nothing patches it into the delivered bytes.
package notifqueue

import (
	"sync"

	"github.com/redshirt-os/redshirt/types"
)

// Notification is a stored response: either payload bytes, or a failure
// (the Result<EncodedMessage, ()> of the original source).
type Notification struct {
	Data   []byte
	Failed bool
}

// Queue is one process's Notifications Queue. The zero value is not
// usable; use New.
type Queue struct {
	mu    sync.Mutex
	items map[types.MessageId]Notification
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{items: make(map[types.MessageId]Notification)}
}

// Push stores a response for mid, overwriting any previous one, so at most
// one response is queued per MessageId.
func (q *Queue) Push(mid types.MessageId, n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[mid] = n
}

// Entry is a found-but-not-yet-removed match, returned by Find.
type Entry struct {
	mid         types.MessageId
	indexInList int
}

// MessageId returns the MessageId the match was found for.
func (e Entry) MessageId() types.MessageId { return e.mid }

// IndexInList is the position within the wait set Find was given at which
// the match occurred. Extract does not write it into the notification.
func (e Entry) IndexInList() int { return e.indexInList }

// Find returns the first entry of waitSet whose Answer MessageId has a
// notification currently queued, scanning in waitSet order (the "match
// order, not FIFO" delivery rule). It does not remove anything; call
// Extract on the returned Entry to do so.
func (q *Queue) Find(waitSet []types.WaitEntry) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range waitSet {
		if w.Empty {
			continue
		}
		if _, ok := q.items[w.Answer]; ok {
			return Entry{mid: w.Answer, indexInList: i}, true
		}
	}
	return Entry{}, false
}

// Extract removes and returns the notification named by e, with its bytes
// unchanged; the match's wait-set index is not written into them.
func (q *Queue) Extract(e Entry) (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.items[e.mid]
	if !ok {
		return Notification{}, false
	}
	delete(q.items, e.mid)
	return n, true
}

// Contains reports whether a response for mid is currently queued, without
// removing it. It is used by invariant checks in tests.
func (q *Queue) Contains(mid types.MessageId) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.items[mid]
	return ok
}

// Len reports the number of outstanding notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
