package lock

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"S3Joiner/internal/objstore"
)

func TestObjectLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	a, err := NewObject(ObjectOptions{Store: store, Name: "clicks", TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if a.Key() != "locks/clicks.lock" {
		t.Errorf("key = %q", a.Key())
	}
	if err := a.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, ok := store.Get(a.Key()); !ok {
		t.Fatal("lock object not written")
	}

	b, _ := NewObject(ObjectOptions{Store: store, Name: "clicks", TTL: time.Hour})
	if err := b.Acquire(ctx); !errors.Is(err, ErrHeld) {
		t.Errorf("second Acquire err = %v, want ErrHeld", err)
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := a.Release(ctx); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, ok := store.Get(a.Key()); ok {
		t.Error("lock object not deleted")
	}
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
}

func TestObjectLocker_StaleTakeover(t *testing.T) {
	ctx := context.Background()
	written := time.Now().Add(-2 * time.Hour)
	store := objstore.NewMemoryWithClock(func() time.Time { return written })
	store.Set("locks/clicks.lock", []byte("2020-01-01T00:00:00Z"))
	written = time.Now()

	l, _ := NewObject(ObjectOptions{Store: store, Name: "clicks", TTL: time.Hour})
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire over stale lock: %v", err)
	}

	noTTL, _ := NewObject(ObjectOptions{Store: store, Name: "clicks"})
	if err := noTTL.Acquire(ctx); !errors.Is(err, ErrHeld) {
		t.Errorf("Acquire without TTL err = %v, want ErrHeld", err)
	}
}

func TestNewObject(t *testing.T) {
	if _, err := NewObject(ObjectOptions{}); err == nil {
		t.Error("expected error without store")
	}
	l, _ := NewObject(ObjectOptions{Store: objstore.NewMemory(), Name: "../etc"})
	if l.Key() != "locks/default.lock" {
		t.Errorf("unsafe name not replaced: %q", l.Key())
	}
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, _ := NewLocal(LocalOptions{Dir: dir, Name: "doctor", TTL: time.Hour})
	if err := a.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(a.Path()); err != nil {
		t.Fatalf("lock file: %v", err)
	}
	b, _ := NewLocal(LocalOptions{Dir: dir, Name: "doctor", TTL: time.Hour})
	if err := b.Acquire(ctx); !errors.Is(err, ErrHeld) {
		t.Errorf("second Acquire err = %v, want ErrHeld", err)
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(a.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}
}

func TestLocalLocker_StaleTakeover(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, _ := NewLocal(LocalOptions{Dir: dir, Name: "job", TTL: time.Minute})
	if err := os.WriteFile(a.Path(), []byte("1\n"), 0640); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(a.Path(), old, old); err != nil {
		t.Fatal(err)
	}
	if err := a.Acquire(ctx); err != nil {
		t.Fatalf("Acquire over stale lock: %v", err)
	}
	_ = a.Release(ctx)
}

func writeOwner(t *testing.T, path string, o localOwner) {
	t.Helper()
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatal(err)
	}
}

func TestLocalLocker_OwnerChecks(t *testing.T) {
	host, _ := os.Hostname()
	// Above the Linux pid_max, so never a running process.
	const deadPID = 1 << 30

	tests := []struct {
		name     string
		owner    localOwner
		ttl      time.Duration
		wantHeld bool
	}{
		{"dead owner on this host", localOwner{PID: deadPID, Host: host, Since: time.Now()}, 0, false},
		{"live owner on this host", localOwner{PID: os.Getpid(), Host: host, Since: time.Now()}, 0, true},
		{"owner on another host", localOwner{PID: deadPID, Host: "other-" + host, Since: time.Now()}, 0, true},
		{"owner on another host past ttl", localOwner{PID: deadPID, Host: "other-" + host, Since: time.Now().Add(-2 * time.Hour)}, time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := NewLocal(LocalOptions{Dir: t.TempDir(), Name: "clicks", TTL: tt.ttl})
			writeOwner(t, l.Path(), tt.owner)
			err := l.Acquire(context.Background())
			if tt.wantHeld {
				if !errors.Is(err, ErrHeld) {
					t.Errorf("Acquire err = %v, want ErrHeld", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire: %v", err)
			}
			if o, ok := readOwner(l.Path()); !ok || o.PID != os.Getpid() {
				t.Errorf("owner after takeover = %+v", o)
			}
		})
	}
}

func TestLocalLocker_ReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	l, _ := NewLocal(LocalOptions{Dir: t.TempDir(), Name: "clicks"})
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	host, _ := os.Hostname()
	writeOwner(t, l.Path(), localOwner{PID: os.Getpid() + 1, Host: host, Since: time.Now()})
	if err := l.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Errorf("foreign lock file removed: %v", err)
	}
}
