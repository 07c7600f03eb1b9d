// Package nativeprog lets host-side components masquerade as additional
// processes: a NativeProgram can register interfaces, emit and answer
// messages, and be notified of process death through the same IPC fabric
// real Wasm processes use.
//
// Grounded on original_source/core/src/native/collection.rs's
// Adapter/AdapterAbstract pattern: heterogeneous NativeProgram
// implementations are boxed behind one interface and the collection polls
// all of them for the next ready event. Rust polls futures; Go instead
// asks each program for its event channel and multiplexes over them with
// reflect.Select, which is the idiomatic Go analogue of "poll every
// registered future, return the first one ready."
package nativeprog

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// EventKind tags the variant of an Event.
type EventKind int

const (
	Emit EventKind = iota
	CancelMessage
	Answer
)

// Event is one action a NativeProgram wants the kernel to perform on its
// behalf.
type Event struct {
	Kind EventKind

	// Emit
	Interface        ifacehash.InterfaceHash
	MessageId        *types.MessageId // not read or written by the kernel, which allocates its own id for an Emit with ResponseExpected and does not report it back
	ResponseExpected bool
	Payload          []byte

	// CancelMessage / Answer
	Mid types.MessageId

	// Answer
	Data   []byte
	Failed bool
}

// NativeProgram is the contract a host-side pseudo-process implements.
type NativeProgram interface {
	// Events returns the channel the collection polls for this
	// program's next event. It must not be closed while the program is
	// registered.
	Events() <-chan Event

	// InterfaceMessage delivers a message the program is the registered
	// handler for. Returning rejected=true with a payload corresponds to
	// the original's Result<(), bytes> rejection.
	InterfaceMessage(iface ifacehash.InterfaceHash, mid *types.MessageId, emitter types.Pid, data []byte) (rejected bool, rejectPayload []byte)

	// ProcessDestroyed notifies the program that pid has died.
	ProcessDestroyed(pid types.Pid)

	// MessageResponse is the hook for the response to a message this
	// program emitted with a response expected. The kernel package does
	// not call it: responses to a NativeProgram's own messages are not
	// routed back to the program.
	MessageResponse(mid types.MessageId, data []byte, failed bool)
}

// Collection owns every registered NativeProgram, keyed by the Pid it
// masquerades as.
type Collection struct {
	mu       sync.RWMutex
	programs map[types.Pid]NativeProgram
	order    []types.Pid // stable iteration order for NextEvent's reflect.Select cases
}

// New creates an empty Collection.
func New() *Collection {
	return &Collection{programs: make(map[types.Pid]NativeProgram)}
}

// Push registers program under pid. It panics on a duplicate pid, per the
// contract.
func (c *Collection) Push(pid types.Pid, program NativeProgram) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.programs[pid]; exists {
		panic(fmt.Sprintf("nativeprog: duplicate native program registered for %v", pid))
	}
	c.programs[pid] = program
	c.order = append(c.order, pid)
}

// Get returns the program registered for pid, if any.
func (c *Collection) Get(pid types.Pid) (NativeProgram, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.programs[pid]
	return p, ok
}

// Broadcast calls ProcessDestroyed(pid) on every registered program.
func (c *Collection) Broadcast(pid types.Pid) {
	c.mu.RLock()
	programs := make([]NativeProgram, 0, len(c.programs))
	for _, p := range c.programs {
		programs = append(programs, p)
	}
	c.mu.RUnlock()

	for _, p := range programs {
		p.ProcessDestroyed(pid)
	}
}

// NextEvent blocks until some registered program has an event ready,
// returning which Pid it came from and the Event itself. It returns
// ok=false if no programs are registered.
func (c *Collection) NextEvent() (types.Pid, Event, bool) {
	c.mu.RLock()
	order := append([]types.Pid(nil), c.order...)
	programs := make(map[types.Pid]NativeProgram, len(order))
	for pid, p := range c.programs {
		programs[pid] = p
	}
	c.mu.RUnlock()

	if len(order) == 0 {
		return 0, Event{}, false
	}

	cases := make([]reflect.SelectCase, len(order))
	for i, pid := range order {
		cases[i] = reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(programs[pid].Events()),
		}
	}

	chosen, recv, recvOK := reflect.Select(cases)
	if !recvOK {
		// the chosen program's channel was closed; treat as no event
		// rather than panicking the worker.
		return order[chosen], Event{}, false
	}
	return order[chosen], recv.Interface().(Event), true
}
