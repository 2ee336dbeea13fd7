package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is(err, fetch.ErrTimeout) and friends.
var (
	ErrTimeout             = errors.New("timed out")
	ErrHTTPStatus          = errors.New("unexpected HTTP status")
	ErrInvalidContent      = errors.New("response is not an M3U playlist")
	ErrAllSourcesExhausted = errors.New("all playlist sources failed")
	ErrNetwork             = errors.New("network error")
)

// Error describes one failed playlist fetch.
type Error struct {
	Kind     error  // one of the Err* kinds above
	URL      string // URL that was requested
	Status   int    // set when Kind is ErrHTTPStatus
	Detail   string
	Err      error   // underlying cause, if any
	Attempts []error // per-source failures when Kind is ErrAllSourcesExhausted
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("fetch ")
	b.WriteString(e.URL)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Attempts) > 0 {
		b.WriteString(": ")
		for i, a := range e.Attempts {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(a.Error())
		}
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts)+1)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return append(out, e.Attempts...)
}

// resultLabel maps an error to the metrics result label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAllSourcesExhausted):
		return "exhausted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrHTTPStatus):
		return "http_status"
	case errors.Is(err, ErrInvalidContent):
		return "invalid_content"
	default:
		return "network"
	}
}
