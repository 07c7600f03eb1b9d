package wasilayer

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
)

func TestInstantiateRegistersWasiHostModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if err := Instantiate(ctx, rt); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	if rt.Module("wasi_snapshot_preview1") == nil {
		t.Fatal("expected wasi_snapshot_preview1 host module to be registered")
	}
}

func TestNewFSSeedsAndMounts(t *testing.T) {
	fsys, err := NewFS(map[string][]byte{"/greeting.txt": []byte("hello")})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	f, errno := fsys.fs.OpenFile("/greeting.txt", 0, 0)
	if errno != 0 {
		t.Fatalf("OpenFile: errno %v", errno)
	}
	buf := make([]byte, 5)
	n, errno := f.Read(buf)
	if errno != 0 {
		t.Fatalf("Read: errno %v", errno)
	}
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("expected seeded contents %q, got %q", "hello", buf[:n])
	}

	if cfg := fsys.Mount(); cfg == nil {
		t.Fatal("expected Mount to return a non-nil FSConfig")
	}
}

func TestNewFSRejectsUnwritablePath(t *testing.T) {
	if _, err := NewFS(map[string][]byte{"/a/b/c.txt": []byte("x")}); err == nil {
		t.Fatal("expected seeding a path under a non-existent directory to fail")
	}
}
