// Package favorites keeps the set of channel IDs a viewer has starred.
package favorites

import (
	"context"
	"sort"
)

// Set is a set of channel IDs.
type Set map[int]bool

// IDs returns the members in ascending order.
func (s Set) IDs() []int {
	out := make([]int, 0, len(s))
	for id, ok := range s {
		if ok {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Store is the favorites contract shared by the server and the terminal client.
type Store interface {
	// Load returns the current set.
	Load(ctx context.Context) (Set, error)
	// Toggle flips membership of id and reports whether it is now a favorite.
	Toggle(ctx context.Context, id int) (bool, error)
	// Persist flushes pending changes to durable storage.
	Persist(ctx context.Context) error
}
