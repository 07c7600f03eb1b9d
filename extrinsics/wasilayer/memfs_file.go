package wasilayer

import (
	"errors"
	"io"
	"strings"

	"github.com/blang/vfs"
	"github.com/blang/vfs/memfs"
	"github.com/tetratelabs/wazero/experimental/sys"
	wasys "github.com/tetratelabs/wazero/sys"
)

type memFSFile struct {
	fs   *memfs.MemFS
	fl   vfs.File
	path string

	sys.UnimplementedFile
}

func (f *memFSFile) Stat() (wasys.Stat_t, sys.Errno) { return statMemFS(f.fs, f.path) }
func (f *memFSFile) IsDir() (bool, sys.Errno)         { return false, 0 }

func (f *memFSFile) Close() sys.Errno {
	if err := f.fl.Close(); err != nil {
		return sys.EIO
	}
	return 0
}

func (f *memFSFile) Read(buf []byte) (n int, errno sys.Errno) {
	n, err := f.fl.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, 0
		}
		return 0, sys.EBADF
	}
	return n, 0
}

func (f *memFSFile) Seek(offset int64, whence int) (newOffset int64, errno sys.Errno) {
	r, err := f.fl.Seek(offset, whence)
	if err != nil {
		if strings.Contains(err.Error(), "invalid whence") || strings.Contains(err.Error(), "negative position") {
			return 0, sys.EINVAL
		}
		if strings.Contains(err.Error(), "too far") {
			return 0, sys.EIO
		}
		return 0, sys.EINVAL
	}
	return r, 0
}

func (f *memFSFile) Write(buf []byte) (n int, errno sys.Errno) {
	n, err := f.fl.Write(buf)
	if err != nil {
		return 0, sys.EIO
	}
	return n, 0
}

type memFSDir struct {
	fs   *memfs.MemFS
	path string

	sys.UnimplementedFile
}

func (d *memFSDir) IsDir() (bool, sys.Errno)         { return true, 0 }
func (d *memFSDir) Stat() (wasys.Stat_t, sys.Errno) { return statMemFS(d.fs, d.path) }
