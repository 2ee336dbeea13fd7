// Package player opens channels in an external playback engine.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/catalog"
)

// Session is the player overlay: at most one engine is alive at a time.
type Session struct {
	backends []Backend
	log      *logrus.Entry

	// OnFatal is called when a running engine dies on its own with an error.
	OnFatal func(*PlaybackError)
	// OnClose is called after Close, to restore browsing focus.
	OnClose func()
	// Qualities, when set, lists the renditions of a stream; Open then plays
	// the one PickQuality chooses for ScreenWidth.
	Qualities   QualityFunc
	ScreenWidth int

	mu      sync.Mutex
	ticket  Ticket
	id      string
	engine  Engine
	backend Backend
	channel catalog.Channel
	open    bool
	lastErr *PlaybackError
	quals   []Quality
	quality int
}

// Ticket identifies one request to open the player. Reserve hands them out;
// Close and every later Reserve void the earlier ones.
type Ticket uint64

// NewSession returns a session that probes backends in strategy order.
func NewSession(backends []Backend, log *logrus.Entry) *Session {
	ordered := make([]Backend, 0, len(backends))
	for _, s := range []Strategy{Adaptive, NativeHLS, Direct} {
		for _, b := range backends {
			if b.Strategy() == s {
				ordered = append(ordered, b)
			}
		}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{backends: ordered, log: log}
}

// Open plays ch, destroying whatever was playing first. A channel without a
// stream or an engine that fails to start leaves the session open with an
// inline error, returned as *PlaybackError.
func (s *Session) Open(ctx context.Context, ch catalog.Channel) error {
	return s.OpenTicket(ctx, s.Reserve(), ch)
}

// Reserve returns a ticket for a later OpenTicket. Reserve synchronously when
// the open itself runs in the background, so a Close in between cancels it.
func (s *Session) Reserve() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	return s.ticket
}

// OpenTicket is Open for a reserved ticket. It returns ErrSuperseded without
// touching the session when Close or another Reserve came after t.
func (s *Session) OpenTicket(ctx context.Context, t Ticket, ch catalog.Channel) error {
	var quals []Quality
	if s.Qualities != nil && ch.HasStream() {
		qs, err := s.Qualities(ctx, ch.StreamURL)
		if err != nil {
			s.log.WithError(err).WithField("channel", ch.Name).Warn("quality lookup failed, playing the channel URL")
		}
		quals = qs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.ticket {
		return ErrSuperseded
	}
	s.teardownLocked()

	s.id = uuid.NewString()
	s.channel = ch
	s.open = true
	s.quals, s.quality = quals, 0

	if !ch.HasStream() {
		return s.failLocked(&PlaybackError{Kind: ErrNoURL, Channel: ch.Name})
	}
	streamURL := ch.StreamURL
	if len(quals) > 0 {
		s.quality = PickQuality(quals, s.ScreenWidth)
		streamURL = quals[s.quality].URL
	}
	return s.startLocked(ctx, streamURL)
}

// SwitchQuality restarts playback of the current channel in the rendition
// labelled label.
func (s *Session) SwitchQuality(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	for i, q := range s.quals {
		if q.Label == label {
			if i == s.quality && s.engine != nil {
				return nil
			}
			s.teardownLocked()
			s.quality = i
			return s.startLocked(ctx, q.URL)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoQuality, label)
}

func (s *Session) startLocked(ctx context.Context, streamURL string) error {
	ch := s.channel
	log := s.log.WithFields(logrus.Fields{"session": s.id, "channel": ch.Name})
	b := s.pick(streamURL)
	if b == nil {
		return s.failLocked(&PlaybackError{Kind: ErrEngineFatal, Channel: ch.Name, Err: errors.New("no playback engine available")})
	}
	var eng Engine
	eng = b.New(func(err error) { s.engineExited(eng, err) })
	if err := eng.Load(ctx, streamURL, ch.Name); err != nil {
		eng.Destroy()
		log.WithError(err).WithField("engine", b.Name()).Warn("player start failed")
		return s.failLocked(&PlaybackError{Kind: ErrEngineFatal, Channel: ch.Name, Engine: b.Name(), Err: err})
	}
	s.engine, s.backend = eng, b
	fields := logrus.Fields{"engine": b.Name(), "strategy": b.Strategy().String()}
	if len(s.quals) > 0 {
		fields["quality"] = s.quals[s.quality].Label
	}
	log.WithFields(fields).Info("playback started")
	return nil
}

func (s *Session) pick(streamURL string) Backend {
	for _, b := range s.backends {
		if b.Available() && b.CanPlay(streamURL) {
			return b
		}
	}
	return nil
}

func (s *Session) failLocked(err *PlaybackError) error {
	s.lastErr = err
	return err
}

// engineExited handles an engine ending by itself. Exits of engines that are
// no longer current are ignored.
func (s *Session) engineExited(eng Engine, err error) {
	s.mu.Lock()
	if eng == nil || s.engine != eng {
		s.mu.Unlock()
		return
	}
	name := s.backend.Name()
	s.engine, s.backend = nil, nil
	var perr *PlaybackError
	if err != nil {
		perr = &PlaybackError{Kind: ErrEngineFatal, Channel: s.channel.Name, Engine: name, Err: err}
		s.lastErr = perr
		s.log.WithField("session", s.id).WithError(err).Warn("player engine died")
	}
	onFatal := s.OnFatal
	s.mu.Unlock()
	if perr != nil && onFatal != nil {
		onFatal(perr)
	}
}

// Close stops playback, releases the engine, clears the channel and restores
// focus. Closing a closed session is a no-op apart from the focus callback.
func (s *Session) Close() error {
	s.mu.Lock()
	s.ticket++
	err := s.teardownLocked()
	s.open = false
	s.channel = catalog.Channel{}
	s.lastErr = nil
	s.id = ""
	s.quals, s.quality = nil, 0
	onClose := s.OnClose
	s.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	return err
}

func (s *Session) teardownLocked() error {
	eng := s.engine
	s.engine, s.backend = nil, nil
	s.lastErr = nil
	if eng == nil {
		return nil
	}
	return eng.Destroy()
}

// IsOpen reports whether the player overlay is showing.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Playing reports whether an engine is alive.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil
}

// Channel returns the channel shown in the player.
func (s *Session) Channel() catalog.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Err returns the inline error, if any.
func (s *Session) Err() *PlaybackError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// EngineName returns the running engine's backend name.
func (s *Session) EngineName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return ""
	}
	return s.backend.Name()
}

// QualityLabels returns the labels of the current channel's renditions, best
// first, and the index of the one playing. Empty when the stream has none.
func (s *Session) QualityLabels() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, len(s.quals))
	for i, q := range s.quals {
		labels[i] = q.Label
	}
	return labels, s.quality
}

// ID returns the current session id, empty when closed.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
