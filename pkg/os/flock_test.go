package os

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x", "test.lock")

	a, err := NewFileLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if err = a.TryLock(); err != nil {
		t.Fatalf("first lock has failed: %v", err)
	}

	b, err := NewFileLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if err = b.TryLock(); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}

	if err = a.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err = b.TryLock(); err != nil {
		t.Errorf("the lock should be free, %v", err)
	}
	_ = b.Unlock()
}
