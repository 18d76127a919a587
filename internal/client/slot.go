package client

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// slot runs at most one background fetch at a time and hands its result to
// the next poll once the rate-limit window has passed. poll never blocks.
type slot[T any] struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	inFlight bool
	ready    bool
	result   T
	gen      uint64
}

func newSlot[T any](interval time.Duration) *slot[T] {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &slot[T]{limiter: rate.NewLimiter(limit, 1)}
}

// poll returns a completed result exactly once. Otherwise it may start fetch
// on its own goroutine and reports false. Nothing happens while a fetch is
// outstanding or while the window since the last launch is still open.
func (s *slot[T]) poll(fetch func() (T, error), onErr func(error)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.inFlight || s.limiter.Tokens() < 1 {
		return zero, false
	}
	if s.ready {
		out := s.result
		s.ready = false
		s.result = zero
		return out, true
	}
	if !s.limiter.Allow() {
		return zero, false
	}

	s.inFlight = true
	gen := s.gen
	go func() {
		res, err := fetch()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		if gen != s.gen {
			return
		}
		s.result = res
		s.ready = true
	}()
	return zero, false
}

// reset drops a completed result and any result still on its way.
func (s *slot[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.gen++
	s.ready = false
	s.result = zero
}

func (s *slot[T]) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
