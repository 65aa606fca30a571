package lock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

// ObjectStore is what ObjectLocker needs from a bucket.
type ObjectStore interface {
	objstore.Header
	objstore.Writer
	objstore.Deleter
}

// ObjectLocker is an advisory lock stored as locks/<name>.lock in the bucket.
// A lock older than TTL is considered stale and taken over. There is no
// compare-and-swap, so two hosts racing within the same instant can both win.
type ObjectLocker struct {
	store ObjectStore
	name  string
	ttl   time.Duration
	key   string
	mu    sync.Mutex
	held  bool
}

type ObjectOptions struct {
	Store ObjectStore
	Name  string
	TTL   time.Duration
}

func NewObject(opts ObjectOptions) (*ObjectLocker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("object lock: store is required")
	}
	name := opts.Name
	if name == "" || strings.ContainsAny(name, `/\`) {
		name = "default"
	}
	return &ObjectLocker{
		store: opts.Store,
		name:  name,
		ttl:   opts.TTL,
		key:   s3.LockKey(name),
	}, nil
}

func (l *ObjectLocker) Key() string {
	return l.key
}

func (l *ObjectLocker) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return fmt.Errorf("object lock already held by this process")
	}

	lastMod, err := l.store.HeadObject(ctx, l.key)
	if err != nil {
		return fmt.Errorf("object lock head: %w", err)
	}
	if lastMod != nil {
		if l.ttl <= 0 {
			return fmt.Errorf("%w: %s (another process may be running)", ErrHeld, l.key)
		}
		if time.Since(*lastMod) < l.ttl {
			return fmt.Errorf("%w: %s (held by another process)", ErrHeld, l.key)
		}
		if err := l.store.DeleteObject(ctx, l.key); err != nil {
			return fmt.Errorf("object lock stale but delete failed: %w", err)
		}
	}

	body := time.Now().UTC().Format(time.RFC3339)
	if err := l.store.PutObject(ctx, l.key, strings.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("object lock put: %w", err)
	}
	l.held = true
	return nil
}

func (l *ObjectLocker) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	if err := l.store.DeleteObject(ctx, l.key); err != nil {
		return fmt.Errorf("object lock release: %w", err)
	}
	l.held = false
	return nil
}

var (
	_ Locker = (*ObjectLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
