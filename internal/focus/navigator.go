package focus

// State of the navigator.
type State int

const (
	Browsing State = iota
	Searching
	PlayerOpen
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Searching:
		return "searching"
	case PlayerOpen:
		return "playerOpen"
	}
	return "unknown"
}

// Key is a remote-control input.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyActivate
	KeyBack
	KeySearch
	KeyFavorite
)

// Event tells the caller what an input did.
type Event int

const (
	EventNone Event = iota
	EventMoved
	EventActivate       // run the focused element's action
	EventToggleFavorite // toggle favorite on the focused element
	EventClosePlayer
	EventSearchOpened
	EventSearchClosed
	EventQueryChanged
)

// Navigator tracks the focused position and input mode. It owns no I/O: the
// caller acts on the returned Event and calls Rebuild when the layout changes.
type Navigator struct {
	// AnchorSections are tried in order when resetting focus; the first one
	// present in the grid gets focus at column 0. Row 0 otherwise.
	AnchorSections []string

	grid     *Grid
	row, col int
	state    State
	query    string
	built    bool
	resetDue bool
}

func NewNavigator(anchors ...string) *Navigator {
	return &Navigator{AnchorSections: anchors, grid: Rebuild()}
}

func (n *Navigator) State() State         { return n.state }
func (n *Navigator) Query() string        { return n.query }
func (n *Navigator) Grid() *Grid          { return n.grid }
func (n *Navigator) Position() (int, int) { return n.row, n.col }

// Focused returns the element under focus.
func (n *Navigator) Focused() (Element, bool) {
	return n.grid.At(n.row, n.col)
}

// Rebuild installs a new layout. The previous position is kept (clamped),
// except on the first build and after a modal closed, which reset to the anchor.
func (n *Navigator) Rebuild(g *Grid) {
	if g == nil {
		g = Rebuild()
	}
	n.grid = g
	if !n.built || n.resetDue {
		n.built = true
		n.resetDue = false
		n.row, n.col = n.anchor()
	} else {
		n.row, n.col = g.Clamp(n.row, n.col)
	}
	if n.state == Browsing {
		n.grid.Focus(n.row, n.col)
	}
}

// Anchor moves focus to the anchor.
func (n *Navigator) Anchor() {
	n.row, n.col = n.anchor()
	n.grid.Focus(n.row, n.col)
}

func (n *Navigator) anchor() (int, int) {
	for _, name := range n.AnchorSections {
		if r := n.grid.Index(name); r >= 0 {
			return r, 0
		}
	}
	return 0, 0
}

// FocusElement records el as focused, for focus changes not made by keys.
func (n *Navigator) FocusElement(el Element) bool {
	r, c, ok := n.grid.Locate(el)
	if ok {
		n.row, n.col = r, c
	}
	return ok
}

// PlayerOpened switches to PlayerOpen. Input other than Back is ignored
// until the player closes.
func (n *Navigator) PlayerOpened() {
	n.state = PlayerOpen
}

// Handle applies a key.
func (n *Navigator) Handle(k Key) Event {
	switch n.state {
	case PlayerOpen:
		if k != KeyBack {
			return EventNone
		}
		n.state = Browsing
		n.resetDue = true
		n.Anchor()
		return EventClosePlayer
	case Searching:
		if k != KeyBack {
			return EventNone
		}
		n.state = Browsing
		n.query = ""
		n.resetDue = true
		n.Anchor()
		return EventSearchClosed
	}
	switch k {
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		r, c := n.grid.Move(n.row, n.col, Direction(k-KeyUp))
		if r == n.row && c == n.col {
			return EventNone
		}
		n.row, n.col = r, c
		n.grid.Focus(r, c)
		return EventMoved
	case KeyActivate:
		if _, ok := n.Focused(); ok {
			return EventActivate
		}
	case KeyFavorite:
		if _, ok := n.Focused(); ok {
			return EventToggleFavorite
		}
	case KeySearch:
		n.state = Searching
		return EventSearchOpened
	}
	return EventNone
}

// Type appends text to the search query while searching.
func (n *Navigator) Type(s string) Event {
	if n.state != Searching || s == "" {
		return EventNone
	}
	n.query += s
	return EventQueryChanged
}

// Backspace removes the last rune of the search query.
func (n *Navigator) Backspace() Event {
	if n.state != Searching || n.query == "" {
		return EventNone
	}
	r := []rune(n.query)
	n.query = string(r[:len(r)-1])
	return EventQueryChanged
}
