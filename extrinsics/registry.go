package extrinsics

import (
	"fmt"
	"sync"

	"github.com/redshirt-os/redshirt/ifacehash"
	"github.com/redshirt-os/redshirt/types"
)

// Token identifies one registered extrinsic for the lifetime of the
// Registry. Resolve returns it to the kernel's import dispatch, which
// hands it back unchanged to NewContext and InjectMessageResponse.
type Token uint32

type entry struct {
	sig      types.Signature
	strategy Strategy
}

// Registry implements the Extrinsics interface: an Extrinsics value is
// anything that can resolve an (interface, function) pair to a Token plus
// dispatch a call or a message response by Token. Registry is the base
// implementation; logging.Wrap and other decorators compose with it
// through this interface rather than subclassing it.
type Extrinsics interface {
	Resolve(iface ifacehash.InterfaceHash, fn string) (Token, types.Signature, bool)
	NewContext(tok Token, tid types.ThreadId, params []types.WasmValue, mem MemoryAccessor) (ctx any, action Action)
	InjectMessageResponse(tok Token, ctx any, response []byte, failed bool, mem MemoryAccessor) Action
}

var _ Extrinsics = (*Registry)(nil)

// Registry is a concrete, in-memory Extrinsics Registry.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[key]Token
	entries []entry // indexed by Token
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byKey: make(map[key]Token)}
}

// Register adds an extrinsic. It panics on a duplicate (interface,
// function) pair, per the contract: this is a programmer error caught at
// build time, not a runtime condition.
func (r *Registry) Register(iface ifacehash.InterfaceHash, fn string, sig types.Signature, strategy Strategy) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{iface: iface, fn: fn}
	if _, exists := r.byKey[k]; exists {
		panic(fmt.Sprintf("extrinsics: duplicate registration for %s", k))
	}

	tok := Token(len(r.entries))
	r.entries = append(r.entries, entry{sig: sig, strategy: strategy})
	r.byKey[k] = tok
	return tok
}

// Resolve implements Extrinsics.
func (r *Registry) Resolve(iface ifacehash.InterfaceHash, fn string) (Token, types.Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, ok := r.byKey[key{iface: iface, fn: fn}]
	if !ok {
		return 0, types.Signature{}, false
	}
	return tok, r.entries[tok].sig, true
}

// NewContext implements Extrinsics.
func (r *Registry) NewContext(tok Token, tid types.ThreadId, params []types.WasmValue, mem MemoryAccessor) (any, Action) {
	r.mu.RLock()
	strategy := r.entries[tok].strategy
	r.mu.RUnlock()
	return strategy.NewContext(tid, params, mem)
}

// InjectMessageResponse implements Extrinsics.
func (r *Registry) InjectMessageResponse(tok Token, ctx any, response []byte, failed bool, mem MemoryAccessor) Action {
	r.mu.RLock()
	strategy := r.entries[tok].strategy
	r.mu.RUnlock()
	if strategy.InjectMessageResponse == nil {
		panic(fmt.Sprintf("extrinsics: token %d never emits a message, InjectMessageResponse should not be called", tok))
	}
	return strategy.InjectMessageResponse(ctx, response, failed, mem)
}
