package lock

import (
	"context"
	"errors"
)

// ErrHeld is returned (wrapped) by Acquire when another holder owns the lock.
var ErrHeld = errors.New("lock held")

type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}
