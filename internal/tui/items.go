package tui

import "github.com/criollotv/criollotv/internal/catalog"

type itemKind int

const (
	itemCategory itemKind = iota
	itemPlay
	itemInfo
	itemCard
	itemHome
	itemSearch
	itemFavorites
)

// Section names, in display order.
const (
	secCategories = "categories"
	secHero       = "hero"
	secFavorites  = "favorites"
	secRowPrefix  = "row:"
	secBottom     = "bottom"
)

const favoritesTitle = "⭐ Mis Favoritos"

// item is one focusable thing on screen.
type item struct {
	kind     itemKind
	label    string
	category string
	ch       catalog.Channel
	ui       *uiState
}

func (it *item) Focus() {
	it.ui.focused = it
	if it.kind == itemCard {
		ch := it.ch
		it.ui.hero = &ch
	}
}

func (it *item) ScrollIntoView() { it.ui.visible = it }

// uiState is what focus changes write to.
type uiState struct {
	focused *item
	visible *item
	hero    *catalog.Channel
}
