package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const DefaultLockDir = "/var/run/s3joiner"

// LocalLocker is a lock file <dir>/<name>.lock recording its owner. The file
// is stale when its owner process on this host is gone, or when it is older
// than TTL; a stale file is taken over.
type LocalLocker struct {
	mu    sync.Mutex
	path  string
	ttl   time.Duration
	owned bool
}

type LocalOptions struct {
	Dir  string
	Name string
	// TTL bounds how long a lock is honoured; zero trusts the owner pid alone.
	TTL time.Duration
}

type localOwner struct {
	PID   int       `json:"pid"`
	Host  string    `json:"host"`
	Since time.Time `json:"since"`
}

func NewLocal(opts LocalOptions) (*LocalLocker, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultLockDir
	}
	name := opts.Name
	if name == "" || filepath.Base(name) != name {
		name = "default"
	}
	return &LocalLocker{path: filepath.Join(dir, name+".lock"), ttl: opts.TTL}, nil
}

// Path is the lock file location.
func (l *LocalLocker) Path() string {
	return l.path
}

func (l *LocalLocker) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owned {
		return fmt.Errorf("%w: %s already held by this locker", ErrHeld, l.path)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	// One takeover at most: if a stale file reappears, someone else won.
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := l.create()
		if err == nil {
			l.owned = true
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
		stale, holder := l.inspect()
		if !stale {
			return fmt.Errorf("%w: %s (%s)", ErrHeld, l.path, holder)
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale lock %s: %w", l.path, err)
		}
	}
	return fmt.Errorf("%w: %s (taken over concurrently)", ErrHeld, l.path)
}

func (l *LocalLocker) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("create lock file: %w", err)
	}
	host, _ := os.Hostname()
	werr := json.NewEncoder(f).Encode(localOwner{PID: os.Getpid(), Host: host, Since: time.Now().UTC()})
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("write lock file: %w", werr)
	}
	return nil
}

// inspect reports whether the existing lock file may be taken over, and who
// holds it otherwise.
func (l *LocalLocker) inspect() (stale bool, holder string) {
	info, err := os.Stat(l.path)
	if err != nil {
		// Vanished between create and stat: retry.
		return true, ""
	}
	since := info.ModTime()
	owner, ok := readOwner(l.path)
	if ok && !owner.Since.IsZero() {
		since = owner.Since
	}
	if l.ttl > 0 && time.Since(since) > l.ttl {
		return true, ""
	}
	if !ok {
		return false, "unreadable owner, since " + since.Format(time.RFC3339)
	}
	host, _ := os.Hostname()
	if owner.Host == host && !processAlive(owner.PID) {
		return true, ""
	}
	return false, fmt.Sprintf("pid %d on %s since %s", owner.PID, owner.Host, since.Format(time.RFC3339))
}

func readOwner(path string) (localOwner, bool) {
	var o localOwner
	data, err := os.ReadFile(path)
	if err != nil || json.Unmarshal(data, &o) != nil || o.PID <= 0 {
		return localOwner{}, false
	}
	return o, true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Release removes the lock file unless another process has taken it over.
func (l *LocalLocker) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.owned {
		return nil
	}
	l.owned = false
	if owner, ok := readOwner(l.path); ok && owner.PID != os.Getpid() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
