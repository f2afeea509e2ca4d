// Package runlock guards a job against concurrent pipeline runs across
// processes.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shortgen/internal/domain"
)

// ErrLocked reports that another run already holds the key.
var ErrLocked = fmt.Errorf("runlock: key held by another run: %w", domain.ErrConflict)

// Locker hands out exclusive, releasable markers.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("runlock: key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

var _ Locker = (*LocalLocker)(nil)
