// Package waitlist implements the per-process Waiting Threads List: a
// list of ThreadIds blocked in WaitNotifications, safe to iterate
// concurrently from multiple workers without any entry being handed to
// two iterators at once.
//
// Grounded on original_source/kernel/core/src/scheduler/ipc/waiting_threads.rs's
// three-deque design, translated into Go as a list plus a "currently
// borrowed" set: an Iterator auto-releases the entry it is holding when
// advanced to the next one (mirroring the Rust Entry's Drop impl firing at
// the end of a for-loop body), and skips any entry another live iterator
// currently holds. A thread's waiting entry is therefore offered to
// exactly one iterator at a time, and a second concurrent Access sweep
// still reaches every entry not presently held.
package waitlist

import (
	"fmt"
	"sync"

	"github.com/redshirt-os/redshirt/types"
)

// List is one process's Waiting Threads List. The zero value is not
// usable; use New.
type List struct {
	mu       sync.Mutex
	order    []types.ThreadId
	borrowed map[types.ThreadId]bool
}

// New creates an empty List.
func New() *List {
	return &List{borrowed: make(map[types.ThreadId]bool)}
}

// Push appends tid. It panics if tid is already present, matching the
// invariant that a thread appears in at most one Waiting Threads List
// entry at a time.
func (l *List) Push(tid types.ThreadId) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.order {
		if existing == tid {
			panic(fmt.Sprintf("waitlist: %v pushed while already present", tid))
		}
	}
	l.order = append(l.order, tid)
}

// Len reports how many threads are currently parked, whether or not any
// are presently borrowed by an iterator.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Entry is one thread handed to an Iterator by Next.
type Entry struct {
	it  *Iterator
	tid types.ThreadId
}

// ThreadId returns the entry's thread.
func (e Entry) ThreadId() types.ThreadId { return e.tid }

// Remove takes the thread out of the list permanently, instead of letting
// it be released back for a future Access sweep.
func (e Entry) Remove() {
	l := e.it.list
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, tid := range l.order {
		if tid == e.tid {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	delete(l.borrowed, e.tid)
	e.it.held = nil
}

// Iterator walks a List's entries, each visited at most once per Access
// sweep, skipping whatever another concurrent Iterator currently holds.
type Iterator struct {
	list    *List
	visited map[types.ThreadId]bool
	held    *types.ThreadId
}

// Access starts a new sweep over l.
func (l *List) Access() *Iterator {
	return &Iterator{list: l, visited: make(map[types.ThreadId]bool)}
}

// Next returns the next entry this iterator has not yet visited and no
// other live iterator currently holds, releasing whichever entry this
// iterator was previously holding. It returns ok=false once no such entry
// remains for this sweep.
func (it *Iterator) Next() (Entry, bool) {
	l := it.list
	l.mu.Lock()
	defer l.mu.Unlock()

	if it.held != nil {
		delete(l.borrowed, *it.held)
		it.held = nil
	}

	for _, tid := range l.order {
		if it.visited[tid] || l.borrowed[tid] {
			continue
		}
		it.visited[tid] = true
		l.borrowed[tid] = true
		held := tid
		it.held = &held
		return Entry{it: it, tid: tid}, true
	}
	return Entry{}, false
}

// Release ends the sweep early, giving back whatever entry is currently
// held without removing it from the list.
func (it *Iterator) Release() {
	l := it.list
	l.mu.Lock()
	defer l.mu.Unlock()
	if it.held != nil {
		delete(l.borrowed, *it.held)
		it.held = nil
	}
}
