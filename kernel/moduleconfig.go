package kernel

import (
	"crypto/rand"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
)

// ModuleConfigFactory builds the wazero.ModuleConfig used to instantiate
// every process, exposing the handful of knobs (stdio, env, preopened
// directories) an embedder running Wasm programs with real WASI needs
// without forcing it to speak the wazero API directly.
//
// Grounded on the teacher's WazeroModuleConfigFactory/WazeroRuntimeConfigFactory
// (wazero_config.go): same builder shape, generalized from "one factory
// wired into one Core" to "one factory shared by every process New spawns"
// by way of Config.ModuleConfig.
type ModuleConfigFactory struct {
	moduleConfig wazero.ModuleConfig
	fsconfig     wazero.FSConfig
}

// NewModuleConfigFactory creates a factory seeded with real wall clock,
// monotonic clock and random source access — the defaults a guest
// expecting a standard WASI environment needs, matching what the teacher
// wires into its own factory constructor.
func NewModuleConfigFactory() *ModuleConfigFactory {
	return &ModuleConfigFactory{
		moduleConfig: wazero.NewModuleConfig().WithSysWalltime().WithSysNanotime().WithSysNanosleep().WithRandSource(rand.Reader),
		fsconfig:     wazero.NewFSConfig(),
	}
}

// Clone returns a copy of f; nil-safe.
func (f *ModuleConfigFactory) Clone() *ModuleConfigFactory {
	if f == nil {
		return nil
	}
	return &ModuleConfigFactory{moduleConfig: f.moduleConfig, fsconfig: f.fsconfig}
}

// Build returns the wazero.ModuleConfig this factory currently describes.
func (f *ModuleConfigFactory) Build() wazero.ModuleConfig {
	if f == nil {
		return wazero.NewModuleConfig()
	}
	return f.moduleConfig.WithFSConfig(f.fsconfig)
}

// SetArgv sets the process's argv.
func (f *ModuleConfigFactory) SetArgv(argv []string) {
	f.moduleConfig = f.moduleConfig.WithArgs(argv...)
}

// SetEnv sets the process's environment variables.
func (f *ModuleConfigFactory) SetEnv(keys, values []string) {
	if len(keys) != len(values) {
		panic("redshirt: kernel: SetEnv: keys and values must have the same length")
	}
	for i := range keys {
		f.moduleConfig = f.moduleConfig.WithEnv(keys[i], values[i])
	}
}

func (f *ModuleConfigFactory) SetStdin(r io.Reader) { f.moduleConfig = f.moduleConfig.WithStdin(r) }
func (f *ModuleConfigFactory) InheritStdin()         { f.SetStdin(os.Stdin) }

func (f *ModuleConfigFactory) SetStdout(w io.Writer) { f.moduleConfig = f.moduleConfig.WithStdout(w) }
func (f *ModuleConfigFactory) InheritStdout()         { f.SetStdout(os.Stdout) }

func (f *ModuleConfigFactory) SetStderr(w io.Writer) { f.moduleConfig = f.moduleConfig.WithStderr(w) }
func (f *ModuleConfigFactory) InheritStderr()         { f.SetStderr(os.Stderr) }

// SetPreopenDir mounts the host directory at path into the guest at
// guestPath.
func (f *ModuleConfigFactory) SetPreopenDir(path, guestPath string) {
	f.fsconfig = f.fsconfig.WithDirMount(path, guestPath)
}

// SetFSConfig replaces the factory's wazero.FSConfig outright, for an
// embedder that wants to mount extrinsics/wasilayer.FS instead of a real
// host directory.
func (f *ModuleConfigFactory) SetFSConfig(fsconfig wazero.FSConfig) {
	f.fsconfig = fsconfig
}
