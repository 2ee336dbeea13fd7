package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/criollotv/criollotv/internal/focus"
)

const (
	cardWidth  = 18
	cardHeight = 4 // border included
	rowHeight  = cardHeight + 1
)

var (
	accent     = lipgloss.Color("#e50914")
	muted      = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	rowTitle   = lipgloss.NewStyle().Bold(true).PaddingLeft(1)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	btnStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(muted)
	btnFocus   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#ffffff"))
	btnActive  = btnStyle.Foreground(lipgloss.Color("#ffffff")).Underline(true)
	cardStyle  = lipgloss.NewStyle().Width(cardWidth).Height(cardHeight-2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#333333")).Padding(0, 1)
	toastStyle = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#333333")).Foreground(lipgloss.Color("#ffffff"))
	panel      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.nav.State() {
	case focus.PlayerOpen:
		return m.viewPlayer()
	case focus.Searching:
		return m.viewSearch()
	}
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	if m.loading {
		b.WriteString(mutedStyle.Render("  Cargando canales..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.viewHero())
		b.WriteString("\n")
		if m.emptyMsg != "" {
			b.WriteString(panel.Render(errStyle.Render("Sin canales") + "\n" + m.emptyMsg))
			b.WriteString("\n")
		}
		b.WriteString(m.viewRows())
	}
	b.WriteString(m.viewSection(secBottom, " "))
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m *Model) viewHeader() string {
	badge := ""
	if m.isAdmin {
		badge = " " + toastStyle.Render("ADMIN")
	}
	if m.offline {
		badge += " " + errStyle.Render("sin conexión")
	}
	return titleStyle.Render("CriolloTV") + badge + "  " + m.viewSection(secCategories, "")
}

func (m *Model) viewHero() string {
	h := m.ui.hero
	if h == nil {
		return ""
	}
	color := h.Color
	if color == "" {
		color = "#1a1a2e"
	}
	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(h.Name)
	desc := h.Description
	if desc == "" {
		desc = h.Category
	}
	body := name + "  " + mutedStyle.Render(desc) + "\n" + m.viewSection(secHero, " ")
	return panel.Width(max(20, m.width-4)).Render(body)
}

// viewSection renders a row of buttons.
func (m *Model) viewSection(name, sep string) string {
	g := m.nav.Grid()
	r := g.Index(name)
	if r < 0 {
		return ""
	}
	var parts []string
	for c := 0; c < g.RowLen(r); c++ {
		el, _ := g.At(r, c)
		it := el.(*item)
		style := btnStyle
		if it.kind == itemCategory && it.category == m.category {
			style = btnActive
		}
		if it == m.ui.focused {
			style = btnFocus
		}
		parts = append(parts, style.Render(it.label))
	}
	return strings.Join(parts, sep)
}

func isCardRow(name string) bool {
	return name == secFavorites || strings.HasPrefix(name, secRowPrefix)
}

func (m *Model) viewRows() string {
	g := m.nav.Grid()
	var rows []int
	for r := 0; r < g.Rows(); r++ {
		if isCardRow(g.Name(r)) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return ""
	}
	fit := max(1, (m.height-16)/(rowHeight+1))
	start := 0
	if m.ui.visible != nil {
		if vr, _, ok := g.Locate(m.ui.visible); ok {
			for i, r := range rows {
				if r == vr && i >= fit {
					start = i - fit + 1
				}
			}
		}
	}
	var b strings.Builder
	for _, r := range rows[start:min(len(rows), start+fit)] {
		title := strings.TrimPrefix(g.Name(r), secRowPrefix)
		if g.Name(r) == secFavorites {
			title = favoritesTitle
		}
		b.WriteString(rowTitle.Render(title))
		b.WriteString("\n")
		b.WriteString(m.viewCards(r))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewCards(r int) string {
	g := m.nav.Grid()
	n := g.RowLen(r)
	fit := max(1, (m.width-2)/(cardWidth+4))
	start := 0
	if m.ui.visible != nil {
		if vr, vc, ok := g.Locate(m.ui.visible); ok && vr == r && vc >= fit {
			start = vc - fit + 1
		}
	}
	var cards []string
	for c := start; c < min(n, start+fit); c++ {
		el, _ := g.At(r, c)
		cards = append(cards, m.viewCard(el.(*item)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) viewCard(it *item) string {
	ch := it.ch
	style := cardStyle
	if ch.Color != "" {
		style = style.BorderForeground(lipgloss.Color(ch.Color))
	}
	if it == m.ui.focused {
		style = style.BorderForeground(lipgloss.Color("#ffffff")).Bold(true)
	}
	name := truncate(ch.Name, cardWidth-4)
	if m.fav[ch.ID] {
		name = "⭐" + truncate(ch.Name, cardWidth-6)
	}
	status := errStyle.Render("● EN VIVO")
	if !ch.HasStream() {
		status = mutedStyle.Render("sin señal")
	}
	return style.Render(name + "\n" + status)
}

func (m *Model) viewSearch() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Buscar") + "  " + m.nav.Query() + "█\n\n")
	res := m.searchResults()
	if m.nav.Query() != "" && len(res) == 0 {
		b.WriteString(mutedStyle.Render("  Sin resultados"))
	}
	for i, ch := range res {
		if i >= max(1, m.height-6) {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  ... y %d más", len(res)-i)))
			break
		}
		line := fmt.Sprintf("  %s  %s", ch.Name, mutedStyle.Render(ch.Category))
		if i == 0 {
			line = btnFocus.Render(ch.Name) + "  " + mutedStyle.Render(ch.Category)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("enter ver primero · esc cerrar"))
	return b.String()
}

func (m *Model) viewPlayer() string {
	ch := m.session.Channel()
	var body strings.Builder
	body.WriteString(titleStyle.Render(ch.Name) + "\n")
	if ch.Description != "" {
		body.WriteString(mutedStyle.Render(ch.Description) + "\n")
	}
	body.WriteString("\n")
	switch {
	case m.session.Err() != nil:
		body.WriteString(errStyle.Render("No se pudo reproducir") + "\n" + m.session.Err().Error())
	case m.session.Playing():
		body.WriteString("Reproduciendo en " + m.session.EngineName())
	default:
		body.WriteString(mutedStyle.Render("Cargando..."))
	}
	hint := "esc volver"
	if labels, cur := m.session.QualityLabels(); len(labels) > 0 {
		body.WriteString("\n" + mutedStyle.Render("Calidad: ") + labels[cur])
		if len(labels) > 1 {
			hint = "c calidad · " + hint
		}
	}
	body.WriteString("\n\n" + mutedStyle.Render(hint))
	return panel.Width(max(30, m.width-4)).Render(body.String())
}

func (m *Model) viewFooter() string {
	help := "←↑↓→ navegar · enter ver · f favorito · / buscar · q salir"
	if m.isAdmin {
		help += " · R actualizar"
	}
	out := mutedStyle.Render(help)
	if m.toast != "" {
		out = toastStyle.Render(m.toast) + "\n" + out
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
