// Package lock provides the single-writer lock taken around payroll
// generation for one month.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrLocked = errors.New("lock is held by another run")

// Release gives a lock back. It is safe to call after the lock expired.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

type localEntry struct {
	token   string
	expires time.Time
}

// Local is an in-process Locker for single-node deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]localEntry), now: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && (entry.expires.IsZero() || now.Before(entry.expires)) {
		return nil, ErrLocked
	}

	entry := localEntry{token: uuid.NewString()}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	l.held[key] = entry

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.token == entry.token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
