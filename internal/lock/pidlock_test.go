package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "openphone-gw.lock")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		t.Fatalf("lock file does not contain a PID: %q", string(b))
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestAcquireIsExclusive(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "openphone-gw.lock")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := Acquire(lockPath); err == nil {
		t.Fatal("second Acquire succeeded, want failure while lock is held")
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = l2.Release()
}

func TestProbe(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "openphone-gw.lock")

	held, _, err := Probe(lockPath)
	if err != nil {
		t.Fatalf("Probe missing file: %v", err)
	}
	if held {
		t.Error("missing lock file reported as held")
	}

	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	held, pid, err := Probe(lockPath)
	if err != nil {
		t.Fatalf("Probe held lock: %v", err)
	}
	if !held {
		t.Error("held lock reported as free")
	}
	if pid != os.Getpid() {
		t.Errorf("probed pid = %d, want %d", pid, os.Getpid())
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	held, _, err = Probe(lockPath)
	if err != nil {
		t.Fatalf("Probe released lock: %v", err)
	}
	if held {
		t.Error("released lock reported as held")
	}
}
