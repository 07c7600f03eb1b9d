// Package wasilayer provides the optional WASI preview1 surface a process
// may ask for, sitting behind the Extrinsics Registry's contract the same
// way the teacher's Core.WASIPreview1() sits behind its plain Core: it is
// not itself an interface handler, just a pre-instantiation step that
// wires wazero's WASI host module and an in-memory preopened filesystem,
// so a guest asking for WASI never reaches the host filesystem.
package wasilayer

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Instantiate registers the WASI preview1 host module on rt, mirroring
// the teacher's Core.WASIPreview1.
func Instantiate(ctx context.Context, rt wazero.Runtime) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("redshirt: wasilayer: wasi_snapshot_preview1.Instantiate: %w", err)
	}
	return nil
}

// FS is an in-memory filesystem preopened for a process's WASI layer.
// Nothing written to it escapes the process; nothing on the host
// filesystem is visible through it.
type FS struct {
	fs *memFS
}

// NewFS creates an empty in-memory filesystem seeded with the given
// path -> contents pairs.
func NewFS(seed map[string][]byte) (*FS, error) {
	f := newMemFS()
	for path, data := range seed {
		if errno := f.writeFile(path, data); errno != 0 {
			return nil, fmt.Errorf("redshirt: wasilayer: seeding %q: %s", path, errno)
		}
	}
	return &FS{fs: f}, nil
}

// Mount returns the FSConfig a wazero.ModuleConfig should use so the
// guest's preopened root resolves entirely inside this in-memory tree.
func (f *FS) Mount() wazero.FSConfig {
	return wazero.NewFSConfig().WithFSMount(f.fs, "/")
}
