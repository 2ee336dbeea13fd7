package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/indexer"
)

// Fetcher downloads a playlist body. Implemented by *fetch.Fetcher and *fetch.RelayFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// M3USource loads channels from a remote M3U playlist.
type M3USource struct {
	URL     string
	Fetcher Fetcher
	Timeout time.Duration

	header atomic.Pointer[indexer.Header]
}

func (s *M3USource) Name() string { return s.URL }

func (s *M3USource) Load(ctx context.Context) ([]catalog.Channel, error) {
	if strings.TrimSpace(s.URL) == "" {
		return nil, fmt.Errorf("no playlist URL configured")
	}
	raw, err := s.Fetcher.Fetch(ctx, s.URL, s.Timeout)
	if err != nil {
		return nil, err
	}
	h := indexer.PlaylistHeader(raw)
	s.header.Store(&h)
	return indexer.Parse(raw), nil
}

// Header returns the #EXTM3U attributes of the last playlist loaded.
func (s *M3USource) Header() indexer.Header {
	if h := s.header.Load(); h != nil {
		return *h
	}
	return indexer.Header{}
}

// StaticSource serves a fixed channel list.
type StaticSource struct {
	Label string
	List  []catalog.Channel
}

func (s *StaticSource) Name() string { return s.Label }

func (s *StaticSource) Load(context.Context) ([]catalog.Channel, error) {
	out := make([]catalog.Channel, len(s.List))
	copy(out, s.List)
	return out, nil
}

// MultiSource concatenates several sources in order. IDs from each source are
// shifted past the largest ID already emitted so they stay unique. A member
// that fails is replaced by its last good list, so one flaky source never
// shortens the result or shifts the IDs after it. Load fails when a member
// fails and has never loaded.
type MultiSource struct {
	Sources []Source
	// OnError is called for each failing member when set.
	OnError func(src Source, err error)

	mu   sync.Mutex
	last map[int][]catalog.Channel
}

func (m *MultiSource) Name() string {
	names := make([]string, 0, len(m.Sources))
	for _, s := range m.Sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, " + ")
}

func (m *MultiSource) Load(ctx context.Context) ([]catalog.Channel, error) {
	var out []catalog.Channel
	var errs []error
	maxID := 0
	for i, src := range m.Sources {
		chs, err := src.Load(ctx)
		if err != nil {
			if m.OnError != nil {
				m.OnError(src, err)
			}
			prev, ok := m.lastGood(i)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
				continue
			}
			chs = prev
		} else {
			m.remember(i, chs)
		}
		offset := maxID
		for _, ch := range chs {
			ch.ID += offset
			if ch.ID > maxID {
				maxID = ch.ID
			}
			out = append(out, ch)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (m *MultiSource) lastGood(i int) ([]catalog.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chs, ok := m.last[i]
	return chs, ok
}

func (m *MultiSource) remember(i int, chs []catalog.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.last = make(map[int][]catalog.Channel)
	}
	m.last[i] = append([]catalog.Channel(nil), chs...)
}
