// Package ifacemap implements the Interface Handlers Map: the kernel-wide
// registry from InterfaceHash to either the Pid currently handling it, or
// the set of requesters parked waiting for a handler to show up.
//
// Grounded on original_source/core/src/scheduler/ipc/interface_handlers.rs's
// InterfaceState (Process/Requested) state machine: Absent is modeled as
// "no map entry"; set_interface_handler performs a single atomic
// registration and drains any parked waiters for the caller to unblock;
// unregister drops back to Absent and reports who it was registered to.
package ifacemap

import (
	"fmt"
	"sync"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// ErrAlreadyRegistered is returned by SetHandler when the interface
// already has a registered handler.
var ErrAlreadyRegistered = fmt.Errorf("redshirt: ifacemap: interface already registered")

// Waiter is a requester parked on an interface that has not yet been
// registered: either a thread blocked waiting for the registration, or a
// message already emitted toward whatever handler eventually appears.
type Waiter struct {
	// Thread, if non-nil, is a parked thread waiting for registration.
	Thread *ThreadWaiter

	// Message, if Thread is nil, is a deferred message emission.
	Message *MessageWaiter
}

// ThreadWaiter parks a thread until the interface is registered.
type ThreadWaiter struct {
	Pid types.Pid
	Tid types.ThreadId
}

// MessageWaiter defers delivery of an already-emitted message until the
// interface is registered.
type MessageWaiter struct {
	EmitterPid types.Pid
	MessageId  *types.MessageId // nil for fire-and-forget
	Payload    []byte
}

type state struct {
	pid      types.Pid
	regID    types.InterfaceRegistrationId
	waiters  []Waiter
	assigned bool // true once a Pid has been assigned (Registered state)
}

// Map is the kernel-wide Interface Handlers Map.
type Map struct {
	mu        sync.Mutex
	ifces     map[ifacehash.InterfaceHash]*state
	nextRegID types.InterfaceRegistrationId
}

// New creates an empty Map.
func New() *Map {
	return &Map{ifces: make(map[ifacehash.InterfaceHash]*state)}
}

// Lookup reports whether iface is currently registered, and to whom.
func (m *Map) Lookup(iface ifacehash.InterfaceHash) (pid types.Pid, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, exists := m.ifces[iface]
	if !exists || !st.assigned {
		return 0, false
	}
	return st.pid, true
}

// InsertWaitingThread parks pid/tid on iface until a handler registers.
// It panics if iface is already Registered — the caller should check
// Lookup first; the Rust source panics here because it is only ever
// called on the Unregistered half of the state machine, so this mirrors
// that by panicking on programmer misuse too.
func (m *Map) InsertWaitingThread(iface ifacehash.InterfaceHash, pid types.Pid, tid types.ThreadId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateFor(iface)
	if st.assigned {
		panic("ifacemap: InsertWaitingThread called on an already-registered interface")
	}
	st.waiters = append(st.waiters, Waiter{Thread: &ThreadWaiter{Pid: pid, Tid: tid}})
}

// InsertWaitingMessage defers a message emission until iface is
// registered. Same misuse contract as InsertWaitingThread.
func (m *Map) InsertWaitingMessage(iface ifacehash.InterfaceHash, emitter types.Pid, mid *types.MessageId, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateFor(iface)
	if st.assigned {
		panic("ifacemap: InsertWaitingMessage called on an already-registered interface")
	}
	st.waiters = append(st.waiters, Waiter{Message: &MessageWaiter{EmitterPid: emitter, MessageId: mid, Payload: payload}})
}

// SetHandler atomically registers pid as iface's handler. On success it
// returns every waiter that had been parked, in the order they were
// inserted, for the caller to unblock. On failure (already registered) it
// returns ErrAlreadyRegistered and leaves state unchanged.
func (m *Map) SetHandler(iface ifacehash.InterfaceHash, pid types.Pid) ([]Waiter, types.InterfaceRegistrationId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateFor(iface)
	if st.assigned {
		return nil, 0, ErrAlreadyRegistered
	}

	drained := st.waiters
	st.waiters = nil
	st.assigned = true
	st.pid = pid
	m.nextRegID++
	st.regID = m.nextRegID
	return drained, st.regID, nil
}

// Unregister drops iface back to Absent, returning the Pid it had been
// registered to, if any.
func (m *Map) Unregister(iface ifacehash.InterfaceHash) (types.Pid, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.ifces[iface]
	if !ok || !st.assigned {
		return 0, false
	}
	pid := st.pid
	delete(m.ifces, iface)
	return pid, true
}

// UnregisterWithWaiters drops a Requested (never-registered) interface
// back to Absent, returning its parked waiters to be failed with
// InterfaceNotAvailable. It is a no-op if iface is Registered or Absent.
func (m *Map) UnregisterWithWaiters(iface ifacehash.InterfaceHash) []Waiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.ifces[iface]
	if !ok || st.assigned {
		return nil
	}
	delete(m.ifces, iface)
	return st.waiters
}

func (m *Map) stateFor(iface ifacehash.InterfaceHash) *state {
	st, ok := m.ifces[iface]
	if !ok {
		st = &state{}
		m.ifces[iface] = st
	}
	return st
}
