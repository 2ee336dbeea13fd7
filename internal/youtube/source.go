package youtube

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/criollotv/criollotv/internal/catalog"
)

// Resolver finds the video currently live on a channel.
type Resolver interface {
	LiveVideoID(ctx context.Context, ref string) (string, error)
}

// StreamResolver turns a video ID into a direct media URL.
type StreamResolver interface {
	StreamURL(ctx context.Context, videoID string) (string, error)
}

// DefaultConcurrency bounds parallel page lookups in Source.Load.
const DefaultConcurrency = 4

// Source loads a YouTube live catalog. Channels keep catalog order and are
// numbered 1..n; a channel that is offline or fails to resolve is kept with an
// empty stream URL so clients can show it as unavailable.
type Source struct {
	Label    string
	Entries  []catalog.SectionEntry
	Resolver Resolver
	// Streams, when set, replaces embed URLs with direct media URLs.
	// A failure falls back to the embed URL.
	Streams     StreamResolver
	Concurrency int
	Log         *logrus.Entry
}

func (s *Source) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "youtube"
}

func (s *Source) Load(ctx context.Context) ([]catalog.Channel, error) {
	out := make([]catalog.Channel, len(s.Entries))
	errs := make([]error, len(s.Entries))
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, e := range s.Entries {
		i, e := i, e
		g.Go(func() error {
			url, err := s.resolve(gctx, e.Entry)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", e.Name, err)
				if s.Log != nil {
					s.Log.WithError(err).WithField("channel", e.Name).Debug("youtube channel not resolved")
				}
			}
			out[i] = e.Channel(i+1, url)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Entries) > 0 && allFailed(errs) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (s *Source) resolve(ctx context.Context, e catalog.Entry) (string, error) {
	ref := e.ChannelID
	if ref == "" {
		ref = e.URL
	}
	if ref == "" {
		return "", errors.New("no channel_id or url")
	}
	id, err := s.Resolver.LiveVideoID(ctx, ref)
	if err != nil {
		return "", err
	}
	if s.Streams != nil {
		if u, err := s.Streams.StreamURL(ctx, id); err == nil {
			return u, nil
		} else if s.Log != nil {
			s.Log.WithError(err).WithField("video", id).Debug("stream URL lookup failed, using embed")
		}
	}
	return EmbedURL(id), nil
}

// allFailed reports whether every entry failed for a reason other than being
// offline. A catalog where every channel is simply not live is still a valid load.
func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil || errors.Is(err, ErrNotLive) {
			return false
		}
	}
	return true
}
