// Package focus implements directional (remote-control style) navigation over
// rows of focusable elements.
package focus

// Element is anything that can take focus.
type Element interface {
	Focus()
	ScrollIntoView()
}

// Direction of a move.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// Section is a named row of elements.
type Section struct {
	Name     string
	Elements []Element
}

// Grid is an immutable 2D layout: rows in display order, each a non-empty
// list of elements. Positions outside the grid are never returned.
type Grid struct {
	rows  [][]Element
	names []string
}

// Rebuild lays out sections top to bottom, dropping empty ones.
func Rebuild(sections ...Section) *Grid {
	g := &Grid{}
	for _, s := range sections {
		if len(s.Elements) == 0 {
			continue
		}
		row := make([]Element, len(s.Elements))
		copy(row, s.Elements)
		g.rows = append(g.rows, row)
		g.names = append(g.names, s.Name)
	}
	return g
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	if g == nil {
		return 0
	}
	return len(g.rows)
}

// RowLen returns the length of row r, or 0 when r is out of range.
func (g *Grid) RowLen(r int) int {
	if r < 0 || r >= g.Rows() {
		return 0
	}
	return len(g.rows[r])
}

// Name returns the section name of row r.
func (g *Grid) Name(r int) string {
	if r < 0 || r >= g.Rows() {
		return ""
	}
	return g.names[r]
}

// Index returns the row holding the named section, or -1.
func (g *Grid) Index(name string) int {
	for i := 0; i < g.Rows(); i++ {
		if g.names[i] == name {
			return i
		}
	}
	return -1
}

// At returns the element at (r, c).
func (g *Grid) At(r, c int) (Element, bool) {
	if c < 0 || c >= g.RowLen(r) {
		return nil, false
	}
	return g.rows[r][c], true
}

// Clamp maps any position into the grid. An empty grid yields (0, 0).
func (g *Grid) Clamp(r, c int) (int, int) {
	n := g.Rows()
	if n == 0 {
		return 0, 0
	}
	r = clamp(r, 0, n-1)
	return r, clamp(c, 0, len(g.rows[r])-1)
}

// Move returns the position reached from (r, c) in direction d. Up and Down
// keep the column where the target row allows it; moves past an edge are
// no-ops. There is no wraparound.
func (g *Grid) Move(r, c int, d Direction) (int, int) {
	r, c = g.Clamp(r, c)
	if g.Rows() == 0 {
		return 0, 0
	}
	switch d {
	case Up:
		if r > 0 {
			r--
		}
	case Down:
		if r < len(g.rows)-1 {
			r++
		}
	case Left:
		if c > 0 {
			c--
		}
	case Right:
		if c < len(g.rows[r])-1 {
			c++
		}
	}
	return r, min(c, len(g.rows[r])-1)
}

// Focus focuses the element at (r, c) and scrolls it into view.
func (g *Grid) Focus(r, c int) bool {
	el, ok := g.At(r, c)
	if !ok {
		return false
	}
	el.Focus()
	el.ScrollIntoView()
	return true
}

// Locate returns the position of el.
func (g *Grid) Locate(el Element) (int, int, bool) {
	for r, row := range g.rows {
		for c, e := range row {
			if e == el {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
