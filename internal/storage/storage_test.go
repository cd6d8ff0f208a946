package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/config"
)

// exerciseStore runs the shared contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := config.CacheKey.QuizProgressKey("quiz-42")

	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, key, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, key, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"a":2}`)) {
		t.Fatalf("Get = %s, want last write", got)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")
	_ = s.Set(ctx, "k", value)
	value[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("store aliased caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "progress"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	p := s.path("quiz_progress_../../etc/passwd")
	if filepath.Dir(p) != dir {
		t.Fatalf("path %q escaped %q", p, dir)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenSelectsDriver(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.StorageMemory}
	s, closeFn, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("Open returned %T, want *MemoryStore", s)
	}

	cfg.StorageDriver = "etcd"
	if _, _, err := Open(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestPrefixStoreIsolatesNamespaces(t *testing.T) {
	base := NewMemoryStore()
	ctx := context.Background()
	alice := WithPrefix(base, "u1:")
	bob := WithPrefix(base, "u2:")

	exerciseStore(t, alice)

	_ = alice.Set(ctx, "k", []byte("a"))
	if _, err := bob.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob sees alice's key: %v", err)
	}
	if got, _ := base.Get(ctx, "u1:k"); string(got) != "a" {
		t.Fatalf("underlying key = %q", got)
	}
	if WithPrefix(base, "") != Store(base) {
		t.Fatal("empty prefix should return the store itself")
	}
}
