package billing

import (
	"context"
	"sync"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
)

// Serializer hands out one processing slot per customer key, so events for
// the same customer apply strictly sequentially while distinct customers
// proceed in parallel. Acquire waits a bounded time for the slot; a timeout
// is surfaced as a retryable error so the provider redelivers instead of a
// handler blocking indefinitely.
type Serializer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewSerializer() *Serializer {
	return &Serializer{slots: make(map[string]*slot)}
}

// Acquire claims the slot for key, returning a release function. The caller
// must invoke release exactly once.
func (s *Serializer) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	sl.refs++
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			s.put(key, sl)
		}, nil
	case <-timer.C:
		s.put(key, sl)
		return nil, errors.NewSerializationTimeoutError(key, wait)
	case <-ctx.Done():
		s.put(key, sl)
		return nil, errors.NewSerializationTimeoutError(key, wait)
	}
}

func (s *Serializer) put(key string, sl *slot) {
	s.mu.Lock()
	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, key)
	}
	s.mu.Unlock()
}
