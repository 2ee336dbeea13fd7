package httpclient

import (
	"context"
	"net/url"
	"sync"
)

// HostSemaphore is a per-host concurrency limiter shared by every outbound
// request in the process, so a burst of refreshes and relay attempts cannot
// pile onto one upstream.
//
//	release, err := GlobalHostSem.Acquire(ctx, rawURL)
//	if err != nil { ... }
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// GlobalHostSem is the shared per-host limiter. Default cap: 4 concurrent
// requests per host across the entire process.
var GlobalHostSem = NewHostSemaphore(4)

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Acquire blocks until a slot is available for the host of rawURL or ctx is done.
func (h *HostSemaphore) Acquire(ctx context.Context, rawURL string) (func(), error) {
	sem := h.semFor(rawURL)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HostSemaphore) semFor(host string) chan struct{} {
	// keep scheme+host only
	if u, err := url.Parse(host); err == nil {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	s, ok := h.sems[host]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[host] = s
	}
	h.mu.Unlock()
	return s
}
