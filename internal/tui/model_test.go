package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/favorites"
	"github.com/criollotv/criollotv/internal/focus"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/player"
)

type fakeBackend struct{ opened []string }

func (b *fakeBackend) Name() string                  { return "fake" }
func (b *fakeBackend) Strategy() player.Strategy     { return player.Adaptive }
func (b *fakeBackend) Available() bool               { return true }
func (b *fakeBackend) CanPlay(string) bool           { return true }
func (b *fakeBackend) New(func(error)) player.Engine { return &fakeEngine{b: b} }

type fakeEngine struct{ b *fakeBackend }

func (e *fakeEngine) Load(_ context.Context, u, _ string) error {
	e.b.opened = append(e.b.opened, u)
	return nil
}
func (e *fakeEngine) Destroy() error { return nil }

var serverChannels = []catalog.Channel{
	{ID: 1, Name: "TN", Category: "Noticias", StreamURL: "http://x/tn.m3u8"},
	{ID: 2, Name: "C5N", Category: "Noticias", StreamURL: "http://x/c5n.m3u8"},
	{ID: 3, Name: "Telefe", Category: "Aire", StreamURL: "http://x/telefe.m3u8"},
}

func newServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/api/auth/hwid", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"isAdmin": false})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newModel(t *testing.T, baseURL string) (*Model, *fakeBackend) {
	t.Helper()
	be := &fakeBackend{}
	m := New(Options{
		Client:    NewClient(baseURL, "dev1"),
		Favorites: favorites.NewFileStore(filepath.Join(t.TempDir(), "favorites.json")),
		Session:   player.NewSession([]player.Backend{be}, logging.Discard()),
		Log:       logging.Discard(),
	})
	m.Update(m.loadChannels()())
	m.Update(m.loadFavorites()())
	return m, be
}

func press(m *Model, keys ...string) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, last = m.Update(msg)
	}
	return last
}

func okBody() map[string]any {
	return map[string]any{"success": true, "channels": serverChannels}
}

func TestModel_firstLoadFocusesFirstCategory(t *testing.T) {
	m, _ := newModel(t, newServer(t, 200, okBody()).URL)
	if m.loading || len(m.channels) != 3 {
		t.Fatalf("loading=%v channels=%d", m.loading, len(m.channels))
	}
	f := m.ui.focused
	if f == nil || f.kind != itemCategory || f.category != catalog.AllCategories {
		t.Fatalf("focused = %+v", f)
	}
	if !strings.Contains(m.View(), "Noticias") {
		t.Fatal("view lacks category row")
	}
}

func TestModel_openAndClosePlayer(t *testing.T) {
	m, be := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "down", "down")
	if m.ui.focused == nil || m.ui.focused.kind != itemCard || m.ui.focused.ch.Name != "TN" {
		t.Fatalf("focused = %+v", m.ui.focused)
	}
	cmd := press(m, "enter")
	if m.nav.State() != focus.PlayerOpen || cmd == nil {
		t.Fatalf("state = %v", m.nav.State())
	}
	m.Update(cmd())
	if len(be.opened) != 1 || be.opened[0] != "http://x/tn.m3u8" {
		t.Fatalf("opened = %v", be.opened)
	}
	press(m, "down", "f")
	if len(m.fav) != 0 {
		t.Fatal("input leaked through player overlay")
	}
	if !strings.Contains(m.View(), "Reproduciendo") {
		t.Fatalf("player view = %q", m.View())
	}
	press(m, "esc")
	if m.nav.State() != focus.Browsing || m.session.IsOpen() {
		t.Fatal("player not closed")
	}
	if m.ui.focused == nil || m.ui.focused.kind != itemCategory {
		t.Fatalf("focus after close = %+v", m.ui.focused)
	}
}

func TestModel_closeBeforeOpenRuns(t *testing.T) {
	m, be := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "down", "down")
	open := press(m, "enter")
	press(m, "esc")
	m.Update(open())
	if m.nav.State() != focus.Browsing {
		t.Fatalf("state = %v", m.nav.State())
	}
	if m.session.IsOpen() || m.session.Playing() {
		t.Fatal("session left playing after the overlay closed")
	}
	if len(be.opened) != 0 {
		t.Fatalf("opened = %v", be.opened)
	}
}

func TestModel_cycleQuality(t *testing.T) {
	m, be := newModel(t, newServer(t, 200, okBody()).URL)
	m.session.ScreenWidth = 1280
	m.session.Qualities = func(_ context.Context, u string) ([]player.Quality, error) {
		return []player.Quality{
			{Label: "1080p", Height: 1080, URL: u + "?h=1080"},
			{Label: "720p", Height: 720, URL: u + "?h=720"},
		}, nil
	}
	press(m, "down", "down")
	m.Update(press(m, "enter")())
	if len(be.opened) != 1 || be.opened[0] != "http://x/tn.m3u8?h=720" {
		t.Fatalf("opened = %v", be.opened)
	}
	if v := m.View(); !strings.Contains(v, "720p") || !strings.Contains(v, "c calidad") {
		t.Fatalf("player view = %q", v)
	}
	cmd := press(m, "c")
	if cmd == nil {
		t.Fatal("no quality switch")
	}
	m.Update(cmd())
	if be.opened[len(be.opened)-1] != "http://x/tn.m3u8?h=1080" {
		t.Fatalf("opened = %v", be.opened)
	}
	if _, cur := m.session.QualityLabels(); cur != 0 {
		t.Fatalf("current quality = %d", cur)
	}
	if !strings.Contains(m.toast, "1080p") {
		t.Fatalf("toast = %q", m.toast)
	}
}

func TestModel_reloadReplacesHero(t *testing.T) {
	m, _ := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "down", "down")
	if m.ui.hero == nil || m.ui.hero.Name != "TN" {
		t.Fatalf("hero = %+v", m.ui.hero)
	}
	next := []catalog.Channel{
		{ID: 1, Name: "América", Category: "Aire", StreamURL: "http://x/america.m3u8"},
		{ID: 2, Name: "A24", Category: "Noticias", StreamURL: "http://x/a24.m3u8"},
	}
	m.Update(channelsMsg{channels: next})
	h := m.ui.hero
	if h == nil {
		t.Fatal("no hero after reload")
	}
	found := false
	for _, ch := range next {
		if ch.ID == h.ID && ch.Name == h.Name && ch.StreamURL == h.StreamURL {
			found = true
		}
	}
	if !found {
		t.Fatalf("hero %+v not from the reloaded list", *h)
	}
}

func TestModel_noStreamShowsInlineError(t *testing.T) {
	body := map[string]any{"success": true, "channels": []catalog.Channel{{ID: 1, Name: "Off", Category: "General"}}}
	m, be := newModel(t, newServer(t, 200, body).URL)
	press(m, "down", "down")
	cmd := press(m, "enter")
	m.Update(cmd())
	if len(be.opened) != 0 {
		t.Fatal("engine started for a channel without stream")
	}
	if !strings.Contains(m.View(), "No se pudo reproducir") {
		t.Fatalf("view = %q", m.View())
	}
}

func TestModel_toggleFavoriteAddsRow(t *testing.T) {
	m, _ := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "down", "down", "right", "f")
	if !m.fav[2] {
		t.Fatalf("favorites = %v", m.fav)
	}
	if m.nav.Grid().Index(secFavorites) < 0 {
		t.Fatal("favorites row missing")
	}
	set, err := m.favs.Load(context.Background())
	if err != nil || !set[2] {
		t.Fatalf("stored = %v, %v", set, err)
	}
}

func TestModel_categoryFilter(t *testing.T) {
	m, _ := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "right", "right", "enter")
	if m.category != "Aire" {
		t.Fatalf("category = %q", m.category)
	}
	g := m.nav.Grid()
	if g.Index(secRowPrefix+"Noticias") >= 0 || g.Index(secRowPrefix+"Aire") < 0 {
		t.Fatal("rows not filtered")
	}
	if r, c := m.nav.Position(); r != 0 || c != 2 {
		t.Fatalf("position = (%d,%d), want kept on the category button", r, c)
	}
}

func TestModel_searchEnterPlaysFirstResult(t *testing.T) {
	m, be := newModel(t, newServer(t, 200, okBody()).URL)
	press(m, "/")
	if m.nav.State() != focus.Searching {
		t.Fatalf("state = %v", m.nav.State())
	}
	press(m, "c", "5")
	if res := m.searchResults(); len(res) != 1 || res[0].Name != "C5N" {
		t.Fatalf("results = %v", res)
	}
	cmd := press(m, "enter")
	m.Update(cmd())
	if len(be.opened) != 1 || be.opened[0] != "http://x/c5n.m3u8" {
		t.Fatalf("opened = %v", be.opened)
	}
}

func TestModel_serverDownUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	m, _ := newModel(t, url)
	if !m.offline || len(m.channels) != len(catalog.Fallback()) {
		t.Fatalf("offline=%v channels=%d", m.offline, len(m.channels))
	}
}

func TestModel_loadErrorShowsEmptyState(t *testing.T) {
	body := map[string]any{"success": false, "error": "load channels: HTTP 500", "channels": []any{}}
	m, _ := newModel(t, newServer(t, 503, body).URL)
	if m.offline || len(m.channels) != 0 || !strings.Contains(m.emptyMsg, "HTTP 500") {
		t.Fatalf("offline=%v channels=%d msg=%q", m.offline, len(m.channels), m.emptyMsg)
	}
	if !strings.Contains(m.View(), "Sin canales") {
		t.Fatal("empty state not rendered")
	}
}

func TestDeviceIDStable(t *testing.T) {
	a, b := DeviceID(), DeviceID()
	if a == "" || a != b || len(a) != 16 {
		t.Fatalf("DeviceID = %q / %q", a, b)
	}
}
