// Package tui is a remote-control style terminal client for a criollotv server.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/favorites"
	"github.com/criollotv/criollotv/internal/focus"
	"github.com/criollotv/criollotv/internal/player"
)

// Model is the bubbletea model of the client.
type Model struct {
	client  *Client
	favs    favorites.Store
	session *player.Session
	log     *logrus.Entry

	channels []catalog.Channel
	category string
	fav      favorites.Set
	loading  bool
	emptyMsg string
	offline  bool
	isAdmin  bool

	nav   *focus.Navigator
	reg   *focus.Registry
	ui    *uiState
	fatal chan *player.PlaybackError

	toast    string
	toastSeq int
	width    int
	height   int
	quitting bool
}

// Options configures New.
type Options struct {
	Client    *Client
	Favorites favorites.Store
	Session   *player.Session
	Log       *logrus.Entry
}

func New(o Options) *Model {
	m := &Model{
		client:   o.Client,
		favs:     o.Favorites,
		session:  o.Session,
		log:      o.Log,
		category: catalog.AllCategories,
		fav:      favorites.Set{},
		loading:  true,
		nav:      focus.NewNavigator(secCategories),
		reg:      focus.NewRegistry(),
		ui:       &uiState{},
		fatal:    make(chan *player.PlaybackError, 1),
		width:    100,
		height:   30,
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}
	m.session.OnFatal = func(e *player.PlaybackError) {
		select {
		case m.fatal <- e:
		default:
		}
	}
	return m
}

type (
	channelsMsg struct {
		channels []catalog.Channel
		err      error
	}
	favoritesMsg struct {
		set favorites.Set
		err error
	}
	loginMsg struct {
		admin bool
		err   error
	}
	refreshedMsg struct {
		count int
		err   error
	}
	playerMsg  struct{ err error }
	qualityMsg struct {
		label string
		err   error
	}
	playerDiedMsg struct{ err *player.PlaybackError }
	toastDoneMsg  struct{ seq int }
)

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadChannels(), m.loadFavorites(), m.login(), m.waitFatal(), tea.SetWindowTitle("CriolloTV"))
}

func (m *Model) loadChannels() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		chs, err := c.Channels(ctx)
		return channelsMsg{channels: chs, err: err}
	}
}

func (m *Model) loadFavorites() tea.Cmd {
	s := m.favs
	return func() tea.Msg {
		set, err := s.Load(context.Background())
		return favoritesMsg{set: set, err: err}
	}
}

func (m *Model) login() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ok, err := c.Login(ctx)
		return loginMsg{admin: ok, err: err}
	}
}

func (m *Model) waitFatal() tea.Cmd {
	ch := m.fatal
	return func() tea.Msg { return playerDiedMsg{err: <-ch} }
}

func (m *Model) showToast(msg string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = msg
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return toastDoneMsg{seq: seq} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case channelsMsg:
		return m, m.handleChannels(msg)
	case favoritesMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("load favorites")
			return m, nil
		}
		if msg.set != nil {
			m.fav = msg.set
		}
		m.rebuild()
		return m, nil
	case loginMsg:
		m.isAdmin = msg.err == nil && msg.admin
		return m, nil
	case refreshedMsg:
		if msg.err != nil {
			return m, m.showToast("Error al actualizar: " + msg.err.Error())
		}
		return m, tea.Batch(m.showToast(fmt.Sprintf("%d canales actualizados", msg.count)), m.loadChannels())
	case playerMsg:
		return m, nil
	case qualityMsg:
		if msg.err != nil {
			return m, m.showToast("No se pudo cambiar la calidad")
		}
		return m, m.showToast("Calidad: " + msg.label)
	case playerDiedMsg:
		return m, m.waitFatal()
	case toastDoneMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleChannels(msg channelsMsg) tea.Cmd {
	m.loading = false
	m.emptyMsg = ""
	m.offline = false
	m.ui.hero = nil
	if msg.err != nil {
		if errors.Is(msg.err, ErrServerUnavailable) {
			m.log.WithError(msg.err).Warn("server unreachable, using fallback channels")
			m.channels = catalog.Fallback()
			m.offline = true
			m.rebuild()
			return m.showToast("Sin conexión: mostrando canales de respaldo")
		}
		m.channels = nil
		m.emptyMsg = msg.err.Error()
		m.rebuild()
		return nil
	}
	m.channels = msg.channels
	if len(m.channels) == 0 {
		m.emptyMsg = "No hay canales disponibles"
	}
	m.rebuild()
	return nil
}

func (m *Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyCtrlC {
		return m.quit()
	}
	switch m.nav.State() {
	case focus.Searching:
		return m.handleSearchKey(k)
	case focus.PlayerOpen:
		switch k.String() {
		case "esc", "backspace", "q":
			m.nav.Handle(focus.KeyBack)
			m.session.Close()
			m.rebuild()
		case "c":
			return m, m.nextQuality()
		}
		return m, nil
	}
	key, ok := keyFor(k.String())
	if !ok {
		if k.String() == "q" {
			return m.quit()
		}
		if k.String() == "R" && m.isAdmin {
			c := m.client
			return m, tea.Batch(m.showToast("Actualizando canales..."), func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				n, err := c.Refresh(ctx)
				return refreshedMsg{count: n, err: err}
			})
		}
		return m, nil
	}
	switch m.nav.Handle(key) {
	case focus.EventActivate:
		return m, m.activate()
	case focus.EventToggleFavorite:
		return m, m.toggleFavorite()
	}
	return m, nil
}

func (m *Model) handleSearchKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.nav.Handle(focus.KeyBack)
		m.rebuild()
	case tea.KeyBackspace:
		if m.nav.Query() == "" {
			m.nav.Handle(focus.KeyBack)
			m.rebuild()
		} else {
			m.nav.Backspace()
		}
	case tea.KeyEnter:
		if res := m.searchResults(); len(res) > 0 {
			m.nav.Handle(focus.KeyBack)
			m.rebuild()
			return m, m.openPlayer(res[0])
		}
	case tea.KeySpace:
		m.nav.Type(" ")
	case tea.KeyRunes:
		m.nav.Type(string(k.Runes))
	}
	return m, nil
}

func keyFor(s string) (focus.Key, bool) {
	switch s {
	case "up", "k":
		return focus.KeyUp, true
	case "down", "j":
		return focus.KeyDown, true
	case "left", "h":
		return focus.KeyLeft, true
	case "right", "l":
		return focus.KeyRight, true
	case "enter", " ":
		return focus.KeyActivate, true
	case "esc", "backspace":
		return focus.KeyBack, true
	case "/", "r":
		return focus.KeySearch, true
	case "f":
		return focus.KeyFavorite, true
	}
	return 0, false
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.session.Close()
	if err := m.favs.Persist(context.Background()); err != nil {
		m.log.WithError(err).Warn("persist favorites")
	}
	return m, tea.Quit
}

func (m *Model) activate() tea.Cmd {
	it := m.ui.focused
	if it == nil {
		return nil
	}
	switch it.kind {
	case itemCategory:
		m.category = it.category
		m.rebuild()
	case itemPlay:
		if m.ui.hero != nil {
			return m.openPlayer(*m.ui.hero)
		}
	case itemInfo:
		if h := m.ui.hero; h != nil {
			return m.showToast(fmt.Sprintf("📺 %s - %s", h.Name, h.Category))
		}
	case itemCard:
		return m.openPlayer(it.ch)
	case itemHome:
		m.category = catalog.AllCategories
		m.rebuild()
		m.nav.Anchor()
	case itemSearch:
		m.nav.Handle(focus.KeySearch)
	case itemFavorites:
		if len(m.fav.IDs()) == 0 {
			return m.showToast("No tenés favoritos todavía. Presioná F sobre un canal para agregarlo.")
		}
		if r := m.nav.Grid().Index(secFavorites); r >= 0 {
			if el, ok := m.nav.Grid().At(r, 0); ok {
				m.nav.FocusElement(el)
				m.nav.Grid().Focus(r, 0)
			}
		}
	}
	return nil
}

// openPlayer reserves the session before returning, so closing the overlay
// before the command runs cancels the open.
func (m *Model) openPlayer(ch catalog.Channel) tea.Cmd {
	m.nav.PlayerOpened()
	s := m.session
	t := s.Reserve()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return playerMsg{err: s.OpenTicket(ctx, t, ch)}
	}
}

// nextQuality cycles to the next rendition of the playing channel.
func (m *Model) nextQuality() tea.Cmd {
	labels, cur := m.session.QualityLabels()
	if len(labels) < 2 {
		return nil
	}
	label := labels[(cur+1)%len(labels)]
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return qualityMsg{label: label, err: s.SwitchQuality(ctx, label)}
	}
}

func (m *Model) toggleFavorite() tea.Cmd {
	it := m.ui.focused
	if it == nil || it.kind != itemCard {
		return nil
	}
	ctx := context.Background()
	on, err := m.favs.Toggle(ctx, it.ch.ID)
	if err == nil {
		err = m.favs.Persist(ctx)
	}
	if err != nil {
		m.log.WithError(err).Warn("toggle favorite")
		return m.showToast("No se pudo guardar el favorito")
	}
	if on {
		m.fav[it.ch.ID] = true
	} else {
		delete(m.fav, it.ch.ID)
	}
	m.rebuild()
	if on {
		return m.showToast("⭐ Agregado a favoritos")
	}
	return m.showToast("Eliminado de favoritos")
}

func (m *Model) searchResults() []catalog.Channel {
	if m.nav.Query() == "" {
		return nil
	}
	return catalog.Filter(m.channels, catalog.AllCategories, m.nav.Query())
}

// rebuild re-registers every focusable element and hands the new grid to
// the navigator.
func (m *Model) rebuild() {
	m.reg.Reset()
	m.ui.focused, m.ui.visible = nil, nil

	var cats []focus.Element
	for _, c := range catalog.Categories(m.channels) {
		label := c
		if c == catalog.AllCategories {
			label = "Inicio"
		}
		cats = append(cats, &item{kind: itemCategory, label: label, category: c, ui: m.ui})
	}
	m.reg.Set(secCategories, cats...)

	if m.ui.hero == nil && len(m.channels) > 0 {
		ch := m.channels[0]
		m.ui.hero = &ch
	}
	if m.ui.hero != nil {
		m.reg.Set(secHero,
			&item{kind: itemPlay, label: "▶ Ver ahora", ui: m.ui},
			&item{kind: itemInfo, label: "ⓘ Info", ui: m.ui},
		)
	}

	if m.category == catalog.AllCategories {
		var favs []focus.Element
		for _, ch := range catalog.Pick(m.channels, m.fav) {
			favs = append(favs, &item{kind: itemCard, label: ch.Name, ch: ch, ui: m.ui})
		}
		m.reg.Set(secFavorites, favs...)
	}
	order, rows := catalog.GroupByCategory(catalog.Filter(m.channels, m.category, ""))
	for _, cat := range order {
		var cards []focus.Element
		for _, ch := range rows[cat] {
			cards = append(cards, &item{kind: itemCard, label: ch.Name, ch: ch, ui: m.ui})
		}
		m.reg.Set(secRowPrefix+cat, cards...)
	}

	m.reg.Set(secBottom,
		&item{kind: itemHome, label: "Inicio", ui: m.ui},
		&item{kind: itemSearch, label: "Buscar", ui: m.ui},
		&item{kind: itemFavorites, label: "Favoritos", ui: m.ui},
	)
	m.nav.Rebuild(m.reg.Grid())
	if m.ui.focused == nil {
		if el, ok := m.nav.Focused(); ok {
			el.Focus()
			el.ScrollIntoView()
		}
	}
}

// Run starts the full-screen client and blocks until the user quits or ctx ends.
func Run(ctx context.Context, o Options) error {
	m := New(o)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		m.session.Close()
		return nil
	}
	return err
}
