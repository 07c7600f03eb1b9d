package kernel

import (
	"github.com/tetratelabs/wazero"

	"github.com/redshirt-os/redshirt/extrinsics"
	"github.com/redshirt-os/redshirt/extrinsics/wasilayer"
	"github.com/redshirt-os/redshirt/idpool"
	"github.com/redshirt-os/redshirt/internal/log"
)

// Config holds the kernel-wide knobs that are not part of any single
// process, following the teacher's Config.Clone()/OrDefault() idiom.
// Unlike the teacher, redshirt has no CLI and no JSON/proto config
// loaders: Config is built programmatically by the embedder.
type Config struct {
	// Workers is the number of worker goroutines contending for the
	// runnable FIFO. Defaults to 1 if zero or negative.
	Workers int

	// Seed feeds the ID Pool. A zero Seed is a valid, if predictable,
	// choice — useful for deterministic tests.
	Seed [idpool.SeedSize]byte

	// Extrinsics is consulted first in the import dispatch order. A nil
	// value means no extrinsics are registered.
	Extrinsics extrinsics.Extrinsics

	// RuntimeConfig configures each process's wazero.Runtime. Defaults
	// to wazero.NewRuntimeConfig() if nil.
	RuntimeConfig wazero.RuntimeConfig

	// ModuleConfig builds the wazero.ModuleConfig used to instantiate
	// each process. Defaults to a fresh wazero.NewModuleConfig() per
	// process if nil.
	ModuleConfig func() wazero.ModuleConfig

	// OverrideLogger is used in place of the package default logger
	// when set.
	OverrideLogger *log.Logger

	// LogExtrinsics wraps Extrinsics in extrinsics/logging.Logging when
	// set, bracketing every dispatch with a debug log line the way the
	// teacher brackets every transport/v1 call.
	LogExtrinsics bool

	// WASI enables the wasilayer WASI preview1 host module for every
	// process this kernel spawns.
	WASI bool

	// WASIFS, if set, mounts an in-memory extrinsics/wasilayer.FS as
	// every process's preopened root instead of the real host
	// filesystem. Only meaningful alongside WASI.
	WASIFS *wasilayer.FS
}

// Clone returns a shallow copy of c; nil-safe.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WorkersOrDefault returns c.Workers if positive, otherwise 1.
func (c *Config) WorkersOrDefault() int {
	if c == nil || c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// RuntimeConfigOrDefault returns c.RuntimeConfig if set, otherwise a
// compiler-mode config sharing the process-wide compilation cache (see
// RuntimeConfigFactory), so that running the same module as many
// short-lived processes doesn't recompile it every time.
func (c *Config) RuntimeConfigOrDefault() wazero.RuntimeConfig {
	if c == nil || c.RuntimeConfig == nil {
		return NewRuntimeConfigFactory().Build()
	}
	return c.RuntimeConfig
}

// NewModuleConfig builds a fresh wazero.ModuleConfig for one process,
// mounting c.WASIFS as the preopened root when set.
func (c *Config) NewModuleConfig() wazero.ModuleConfig {
	mc := wazero.NewModuleConfig()
	if c != nil && c.ModuleConfig != nil {
		mc = c.ModuleConfig()
	}
	if c != nil && c.WASIFS != nil {
		mc = mc.WithFSConfig(c.WASIFS.Mount())
	}
	return mc
}

// Logger returns c.OverrideLogger if set, otherwise the package default.
func (c *Config) Logger() *log.Logger {
	if c == nil {
		return log.GetDefaultLogger()
	}
	return log.OrDefault(c.OverrideLogger)
}
