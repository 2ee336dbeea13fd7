package player

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"runtime"
	"strings"
	"sync"
)

// Strategy is a way of getting a stream on screen, in preference order.
type Strategy int

const (
	Adaptive  Strategy = iota // adaptive-streaming engine (mpv)
	NativeHLS                 // plain HLS-capable player (ffplay)
	Direct                    // hand the URL to the system opener
)

func (s Strategy) String() string {
	switch s {
	case Adaptive:
		return "adaptive"
	case NativeHLS:
		return "native-hls"
	case Direct:
		return "direct"
	}
	return "unknown"
}

// Engine plays one stream. Load starts playback; Destroy stops it and frees
// its resources and must be safe to call more than once.
type Engine interface {
	Load(ctx context.Context, streamURL, title string) error
	Destroy() error
}

// Backend creates engines of one kind.
type Backend interface {
	Name() string
	Strategy() Strategy
	// Available reports whether the backend can run on this machine.
	Available() bool
	// CanPlay reports whether the backend handles streamURL.
	CanPlay(streamURL string) bool
	// New returns an engine. onExit is called once if playback ends on its
	// own, with a non-nil error when it ended badly.
	New(onExit func(error)) Engine
}

// ExecBackend runs an external player process.
type ExecBackend struct {
	Label    string
	Kind     Strategy
	Bin      string
	Args     func(streamURL, title string) []string
	PagesOK  bool // accepts web pages as well as media URLs
	lookPath func(string) (string, error)
}

func (b *ExecBackend) Name() string       { return b.Label }
func (b *ExecBackend) Strategy() Strategy { return b.Kind }

func (b *ExecBackend) Available() bool {
	lp := b.lookPath
	if lp == nil {
		lp = exec.LookPath
	}
	_, err := lp(b.Bin)
	return err == nil
}

func (b *ExecBackend) CanPlay(streamURL string) bool {
	return b.PagesOK || !LooksLikePage(streamURL)
}

func (b *ExecBackend) New(onExit func(error)) Engine {
	return &execEngine{backend: b, onExit: onExit}
}

type execEngine struct {
	backend *ExecBackend
	onExit  func(error)

	mu        sync.Mutex
	cancel    context.CancelFunc
	destroyed bool
	done      chan struct{}
}

func (e *execEngine) Load(ctx context.Context, streamURL, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return fmt.Errorf("%s: engine destroyed", e.backend.Label)
	}
	// The process outlives ctx: it runs until Destroy or until it exits.
	if err := ctx.Err(); err != nil {
		return err
	}
	pctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(pctx, e.backend.Bin, e.backend.Args(streamURL, title)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%s exec: %w", e.backend.Label, err)
	}
	e.cancel = cancel
	e.done = make(chan struct{})
	go func(done chan struct{}) {
		err := cmd.Wait()
		close(done)
		e.mu.Lock()
		destroyed := e.destroyed
		e.mu.Unlock()
		if destroyed || e.onExit == nil {
			return
		}
		if err != nil {
			e.onExit(fmt.Errorf("%s exited: %w", e.backend.Label, err))
			return
		}
		e.onExit(nil)
	}(e.done)
	return nil
}

func (e *execEngine) Destroy() error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil
	}
	e.destroyed = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// DefaultBackends returns the engines for a terminal client, one per
// strategy, in preference order.
func DefaultBackends() []Backend {
	opener := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		opener = "open"
	case "windows":
		opener = "explorer"
	}
	return []Backend{
		&ExecBackend{
			Label: "mpv", Kind: Adaptive, Bin: "mpv",
			Args: func(u, title string) []string {
				return []string{"--really-quiet", "--force-window=immediate", "--title=" + title, u}
			},
		},
		&ExecBackend{
			Label: "ffplay", Kind: NativeHLS, Bin: "ffplay",
			Args: func(u, title string) []string {
				return []string{"-autoexit", "-loglevel", "error", "-window_title", title, u}
			},
		},
		&ExecBackend{
			Label: opener, Kind: Direct, Bin: opener, PagesOK: true,
			Args: func(u, _ string) []string { return []string{u} },
		},
	}
}

// Select keeps the backends whose label is in names, in the order given.
// An empty names list returns all backends.
func Select(backends []Backend, names []string) []Backend {
	if len(names) == 0 {
		return backends
	}
	var out []Backend
	for _, n := range names {
		for _, b := range backends {
			if strings.EqualFold(b.Name(), n) {
				out = append(out, b)
			}
		}
	}
	return out
}

// LooksLikePage reports whether streamURL is a web page (an embed player or
// an HTML page) rather than a media stream.
func LooksLikePage(streamURL string) bool {
	u, err := url.Parse(streamURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if strings.HasSuffix(host, "youtube.com") && strings.HasPrefix(u.Path, "/embed/") {
		return true
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return true
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".html", ".htm", ".php", ".asp", ".aspx":
		return true
	}
	return false
}
