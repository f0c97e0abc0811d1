package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type storeFactory struct {
	name string
	open func(t *testing.T) BlobStore
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "fs", open: func(t *testing.T) BlobStore { return newTestStore(t) }},
		{name: "leveldb", open: func(t *testing.T) BlobStore {
			store, err := OpenStore(BackendLevelDB, filepath.Join(t.TempDir(), "blobs.ldb"))
			if err != nil {
				t.Fatalf("open leveldb: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		}},
		{name: "leveldb-mem", open: func(t *testing.T) BlobStore {
			store, err := NewMemoryLevelDBStore()
			if err != nil {
				t.Fatalf("open leveldb: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		}},
		{name: "sqlite", open: func(t *testing.T) BlobStore {
			store, err := OpenStore(BackendSQLite, filepath.Join(t.TempDir(), "blobs.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		}},
	}
}

func TestBlobStoreWriteReadAppend(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			store := f.open(t)
			if err := store.Mkdir("responses"); err != nil {
				t.Fatalf("mkdir error: %v", err)
			}
			if !store.Exists("responses") {
				t.Fatalf("directory should exist after mkdir")
			}
			if err := store.Mkdir("responses"); err != nil {
				t.Fatalf("mkdir should be idempotent: %v", err)
			}

			if err := store.Write("responses/a.json", []byte("one")); err != nil {
				t.Fatalf("write error: %v", err)
			}
			if err := store.Write("responses/a.json", []byte("two")); err != nil {
				t.Fatalf("overwrite error: %v", err)
			}
			data, err := store.Read("responses/a.json")
			if err != nil || string(data) != "two" {
				t.Fatalf("read mismatch: %q %v", data, err)
			}

			for _, chunk := range []string{"x\n", "y\n"} {
				if err := store.Append("responses/log", []byte(chunk)); err != nil {
					t.Fatalf("append error: %v", err)
				}
			}
			data, err = store.Read("responses/log")
			if err != nil || string(data) != "x\ny\n" {
				t.Fatalf("append mismatch: %q %v", data, err)
			}
		})
	}
}

func TestBlobStoreMissing(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			store := f.open(t)
			if store.Exists("nope/a.json") {
				t.Fatalf("missing path reported as existing")
			}
			if _, err := store.Read("nope.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := store.Write("nope/a.json", []byte("x")); err == nil {
				t.Fatalf("write into a missing directory should fail")
			}
		})
	}
}

func TestFileStoreRejectsEscapes(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(filepath.Join(base, "root"))
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	if err := store.Write("../escape.json", []byte("x")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "escape.json")); err == nil {
		t.Fatalf("path escaped the store root")
	}
	if _, err := os.Stat(filepath.Join(base, "root", "escape.json")); err != nil {
		t.Fatalf("expected file inside the root: %v", err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	if err := store.Write("a.json", []byte("{}")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	if _, err := OpenStore("redis", t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

// newTestStore returns a file-backed BlobStore rooted in a temporary directory.
func newTestStore(t *testing.T) BlobStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
