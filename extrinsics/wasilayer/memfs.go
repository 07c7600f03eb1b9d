package wasilayer

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/blang/vfs/memfs"
	"github.com/tetratelabs/wazero/experimental/sys"
	wasys "github.com/tetratelabs/wazero/sys"
)

// memFS is a minimal in-memory implementation of wazero's experimental
// sys.FS, backed by github.com/blang/vfs/memfs. It implements only the
// handful of operations a process's preopened WASI root actually needs
// (open, read, write, mkdir, unlink, stat) — enough for a guest that
// treats its root as scratch space, not a general-purpose filesystem.
type memFS struct {
	fs *memfs.MemFS

	sys.UnimplementedFS
}

// newMemFS creates an empty in-memory filesystem.
func newMemFS() *memFS {
	return &memFS{fs: memfs.Create()}
}

// writeFile seeds path with content, creating it if necessary.
func (m *memFS) writeFile(path string, content []byte) sys.Errno {
	f, err := m.OpenFile(path, sys.O_WRONLY|sys.O_CREAT, 0o644)
	if err != 0 {
		return err
	}
	_, err = f.Write(content)
	return err
}

func toOsOpenFlag(oflag sys.Oflag) (flag int) {
	switch oflag & (sys.O_RDONLY | sys.O_RDWR | sys.O_WRONLY) {
	case sys.O_RDONLY:
		flag |= os.O_RDONLY
	case sys.O_RDWR:
		flag |= os.O_RDWR
	case sys.O_WRONLY:
		flag |= os.O_WRONLY
	}
	if oflag&sys.O_APPEND != 0 {
		flag |= os.O_APPEND
	}
	if oflag&sys.O_CREAT != 0 {
		flag |= os.O_CREATE
	}
	if oflag&sys.O_EXCL != 0 {
		flag |= os.O_EXCL
	}
	if oflag&sys.O_SYNC != 0 {
		flag |= os.O_SYNC
	}
	if oflag&sys.O_TRUNC != 0 {
		flag |= os.O_TRUNC
	}
	return flag
}

func (m *memFS) OpenFile(path string, flag sys.Oflag, perm fs.FileMode) (sys.File, sys.Errno) {
	f, err := m.fs.OpenFile(path, toOsOpenFlag(flag), perm)
	if err != nil {
		if errors.Is(err, memfs.ErrIsDirectory) {
			if flag&sys.O_WRONLY == 1 || flag&sys.O_RDWR == 1 {
				return nil, sys.EISDIR
			}
			return &memFSDir{fs: m.fs, path: path}, 0
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, sys.ENOENT
		}
		if errors.Is(err, os.ErrExist) {
			return nil, sys.EEXIST
		}
		return nil, sys.EINVAL
	}
	return &memFSFile{fl: f, path: path, fs: m.fs}, 0
}

func (m *memFS) Mkdir(path string, perm fs.FileMode) sys.Errno {
	if err := m.fs.Mkdir(path, perm); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return sys.EEXIST
		}
		return sys.EINVAL
	}
	return 0
}

func (m *memFS) Unlink(path string) sys.Errno {
	if err := m.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sys.ENOENT
		}
		return sys.EINVAL
	}
	return 0
}

func (m *memFS) Stat(path string) (wasys.Stat_t, sys.Errno) {
	return statMemFS(m.fs, path)
}

func statMemFS(mfs *memfs.MemFS, path string) (wasys.Stat_t, sys.Errno) {
	st, err := mfs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return wasys.Stat_t{}, sys.ENOENT
		}
		return wasys.Stat_t{}, sys.EIO
	}
	return wasys.NewStat_t(st), 0
}
