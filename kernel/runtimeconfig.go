package kernel

import (
	"sync"

	"github.com/tetratelabs/wazero"
)

// RuntimeConfigFactory builds the wazero.RuntimeConfig each process's
// wasmproc.PSM is instantiated with, with an emphasis on sharing a single
// wazero.CompilationCache across every process the kernel spawns: redshirt
// programs are expected to be started and stopped far more often than a
// conventional server embeds a Wasm runtime, so paying the compilation
// cost once per distinct module rather than once per process matters.
//
// Grounded on the teacher's WazeroRuntimeConfigFactory (wazero_config.go),
// generalized the same way as ModuleConfigFactory: one factory feeding
// every process's PSM instead of one factory feeding one Core.
type RuntimeConfigFactory struct {
	config wazero.RuntimeConfig
}

var (
	globalCompilationCacheMu sync.Mutex
	globalCompilationCache   wazero.CompilationCache
)

// globalCache returns the process-wide compilation cache, creating it on
// first use.
func globalCache() wazero.CompilationCache {
	globalCompilationCacheMu.Lock()
	defer globalCompilationCacheMu.Unlock()
	if globalCompilationCache == nil {
		globalCompilationCache = wazero.NewCompilationCache()
	}
	return globalCompilationCache
}

// SetGlobalCompilationCache overrides the process-wide compilation cache,
// e.g. with one backed by a directory on disk
// (wazero.NewCompilationCacheWithDir) so compiled modules survive restarts.
func SetGlobalCompilationCache(cache wazero.CompilationCache) {
	globalCompilationCacheMu.Lock()
	defer globalCompilationCacheMu.Unlock()
	globalCompilationCache = cache
}

// NewRuntimeConfigFactory creates a factory defaulted to the shared
// process-wide compilation cache, in compiler mode.
func NewRuntimeConfigFactory() *RuntimeConfigFactory {
	return &RuntimeConfigFactory{
		config: wazero.NewRuntimeConfigCompiler().WithCompilationCache(globalCache()),
	}
}

// Clone returns a copy of f; nil-safe.
func (f *RuntimeConfigFactory) Clone() *RuntimeConfigFactory {
	if f == nil {
		return nil
	}
	return &RuntimeConfigFactory{config: f.config}
}

// Build returns the wazero.RuntimeConfig this factory currently describes.
func (f *RuntimeConfigFactory) Build() wazero.RuntimeConfig {
	if f == nil {
		return wazero.NewRuntimeConfig()
	}
	return f.config
}

// Interpreter switches the runtime to the pure-Go interpreter, trading
// throughput for portability to platforms wazero's compiler doesn't
// support and for faster process startup when a module only runs once.
func (f *RuntimeConfigFactory) Interpreter() {
	f.config = wazero.NewRuntimeConfigInterpreter().WithCompilationCache(globalCache())
}

// Compiler switches the runtime to wazero's ahead-of-time compiler.
func (f *RuntimeConfigFactory) Compiler() {
	f.config = wazero.NewRuntimeConfigCompiler().WithCompilationCache(globalCache())
}

// SetCompilationCache overrides the cache this factory's config uses,
// independent of the process-wide default.
func (f *RuntimeConfigFactory) SetCompilationCache(cache wazero.CompilationCache) {
	f.config = f.config.WithCompilationCache(cache)
}

// SetCloseOnContextDone controls whether a cancelled context tears down
// in-flight guest calls. Neither this factory nor the kernel sets it; a
// thread parked on a host call waits on a channel, not on the context.
func (f *RuntimeConfigFactory) SetCloseOnContextDone(v bool) {
	f.config = f.config.WithCloseOnContextDone(v)
}
