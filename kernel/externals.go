package kernel

import (
	"sync"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// externalKey identifies one (interface, function) pair a process imported.
type externalKey struct {
	iface ifacehash.InterfaceHash
	fn    string
}

// external records what one Externals Index slot resolves back to.
type external struct {
	iface ifacehash.InterfaceHash
	fn    string
	sig   types.Signature
}

// externalsIndex is the Processes Collection's Externals Index: a
// process-local, append-only bijection between the small integers a Wasm
// module's imports are resolved to and the (interface, function, Signature)
// triple they name. It is process-local rather than kernel-wide because
// wazero resolves imports once per instantiation and two processes
// importing the same interface should not observe each other's indices.
//
// Grounded on spec component 4.3's Externals Index, scoped per-process to
// match wazero's per-instance import resolution rather than the single
// kernel-wide table the original sketches, since nothing in the spec
// requires indices to be comparable across processes.
type externalsIndex struct {
	mu      sync.Mutex
	byKey   map[externalKey]uint32
	entries []external
}

func newExternalsIndex() *externalsIndex {
	return &externalsIndex{byKey: make(map[externalKey]uint32)}
}

// assign returns the stable index for (iface, fn), allocating a fresh one
// on first sight.
func (e *externalsIndex) assign(iface ifacehash.InterfaceHash, fn string, sig types.Signature) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := externalKey{iface: iface, fn: fn}
	if idx, ok := e.byKey[k]; ok {
		return idx
	}
	idx := uint32(len(e.entries))
	e.entries = append(e.entries, external{iface: iface, fn: fn, sig: sig})
	e.byKey[k] = idx
	return idx
}

// lookup translates an index back to the (interface, function) pair it was
// assigned for.
func (e *externalsIndex) lookup(index uint32) (external, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if int(index) >= len(e.entries) {
		return external{}, false
	}
	return e.entries[index], true
}
