package player

import (
	"errors"
	"fmt"
)

// Kinds of PlaybackError, for errors.Is.
var (
	ErrNoURL       = errors.New("channel has no stream URL")
	ErrEngineFatal = errors.New("playback engine failed")
)

var (
	// ErrSuperseded is returned by OpenTicket when the session was closed or
	// reopened after the ticket was reserved.
	ErrSuperseded = errors.New("player: open superseded")
	ErrNotOpen    = errors.New("player: not open")
	ErrNoQuality  = errors.New("player: no such quality")
)

// PlaybackError is shown inline in the player; it never ends the session.
type PlaybackError struct {
	Kind    error
	Channel string
	Engine  string
	Err     error
}

func (e *PlaybackError) Error() string {
	msg := e.Kind.Error()
	if e.Channel != "" {
		msg = e.Channel + ": " + msg
	}
	if e.Engine != "" {
		msg += " (" + e.Engine + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PlaybackError) Is(target error) bool { return target == e.Kind }

func (e *PlaybackError) Unwrap() error { return e.Err }
