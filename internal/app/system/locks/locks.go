// Package locks provides cooperative mutual exclusion with bounded waits.
//
// Multi-step sequences against the library and the item index (a full scan,
// folder creation, category edits) are not atomic, so they run under a single
// global lock. Event writes only need to serialize per item, so they use a
// keyed per-item lock and likes on different items proceed in parallel.
//
// Acquisition waits at most the configured duration (or until the context is
// done) and then fails; a caller that cannot get the lock must give up rather
// than queue indefinitely. Release is the returned func and is safe to call
// more than once.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired within the
// service's bounded wait.
var ErrTimeout = errors.New("lock acquisition timed out")

// DefaultWait is the acquisition bound used when New is given a
// non-positive wait.
const DefaultWait = 30 * time.Second

const globalKey = "\x00global"

type entry struct {
	ch   chan struct{} // capacity 1; a token in the channel means "held"
	refs int
}

// Service hands out the global and per-item locks.
type Service struct {
	wait time.Duration

	mu   sync.Mutex
	keys map[string]*entry
}

// New creates a lock service with the given acquisition bound.
func New(wait time.Duration) *Service {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Service{
		wait: wait,
		keys: make(map[string]*entry),
	}
}

// AcquireGlobal takes the global write lock. The returned release func must
// be called (normally via defer) on every success path.
func (s *Service) AcquireGlobal(ctx context.Context) (func(), error) {
	return s.acquire(ctx, globalKey)
}

// AcquireItem takes the lock for a single item.
func (s *Service) AcquireItem(ctx context.Context, itemID string) (func(), error) {
	return s.acquire(ctx, "item\x00"+itemID)
}

func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	e := s.keys[key]
	if e == nil {
		e = &entry{ch: make(chan struct{}, 1)}
		s.keys[key] = e
	}
	e.refs++
	s.mu.Unlock()

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.ch
				s.drop(key, e)
			})
		}
		return release, nil
	case <-ctx.Done():
		s.drop(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		s.drop(key, e)
		return nil, ErrTimeout
	}
}

// drop releases one reference to a key's entry, removing the entry when no
// holder or waiter remains so the key map does not grow unboundedly.
func (s *Service) drop(key string, e *entry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.keys, key)
	}
	s.mu.Unlock()
}
