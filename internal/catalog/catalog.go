package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCategory is assigned to channels whose playlist entry has no group-title.
	DefaultCategory = "General"
	// DefaultName is used when an entry carries neither a display name nor tvg-name.
	DefaultName = "Canal"
	// AllCategories is the pseudo-category that selects every channel.
	AllCategories = "all"
)

// Channel is one playable entry in the directory. IDs are unique within a
// snapshot; they are not stable across reloads.
type Channel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Logo        string `json:"logo"`
	StreamURL   string `json:"streamUrl"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"` // card accent (static catalog only)
}

// HasStream reports whether the channel can be handed to a player.
func (c Channel) HasStream() bool {
	return strings.TrimSpace(c.StreamURL) != ""
}

// Snapshot is one complete, immutable result of loading the channel list.
// A newer snapshot supersedes an older one; snapshots are never merged.
type Snapshot struct {
	Channels  []Channel `json:"channels"`
	FetchedAt time.Time `json:"fetched_at"`
	SourceURL string    `json:"source_url,omitempty"`
}

// NewSnapshot copies channels so later edits by the caller cannot leak in.
func NewSnapshot(channels []Channel, sourceURL string, fetchedAt time.Time) *Snapshot {
	out := make([]Channel, len(channels))
	copy(out, channels)
	return &Snapshot{Channels: out, FetchedAt: fetchedAt, SourceURL: sourceURL}
}

// ChannelsCopy returns a copy of the snapshot's channels for read-only use.
func (s *Snapshot) ChannelsCopy() []Channel {
	if s == nil {
		return nil
	}
	out := make([]Channel, len(s.Channels))
	copy(out, s.Channels)
	return out
}

// Age returns how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// Save writes the snapshot to path as JSON using a temp-file-then-rename strategy
// so readers never see a partially-written file.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, "snapshot")
}

// LoadSnapshot reads a snapshot previously written by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	return &s, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and renames
// it over path. what prefixes error messages (e.g. "snapshot", "settings").
func WriteFileAtomic(path string, data []byte, what string) error {
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, "."+what+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%s save: create temp: %w", what, err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("%s save: write: %w", what, writeErr)
		}
		return fmt.Errorf("%s save: close: %w", what, closeErr)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s save: chmod: %w", what, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s save: rename: %w", what, err)
	}
	return nil
}

// Categories returns AllCategories followed by each distinct category in
// first-seen order.
func Categories(channels []Channel) []string {
	out := []string{AllCategories}
	seen := make(map[string]bool)
	for _, ch := range channels {
		if ch.Category == "" || seen[ch.Category] {
			continue
		}
		seen[ch.Category] = true
		out = append(out, ch.Category)
	}
	return out
}

// Filter returns the channels in category (AllCategories or "" for every one)
// whose name, description or category contains query, case-insensitively.
func Filter(channels []Channel, category, query string) []Channel {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Channel
	for _, ch := range channels {
		if category != "" && category != AllCategories && ch.Category != category {
			continue
		}
		if q != "" && !matches(ch, q) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func matches(ch Channel, q string) bool {
	return strings.Contains(strings.ToLower(ch.Name), q) ||
		strings.Contains(strings.ToLower(ch.Description), q) ||
		strings.Contains(strings.ToLower(ch.Category), q)
}

// GroupByCategory splits channels into rows keyed by category, preserving the
// first-seen category order and the channel order inside each row.
func GroupByCategory(channels []Channel) (order []string, rows map[string][]Channel) {
	rows = make(map[string][]Channel)
	for _, ch := range channels {
		if _, ok := rows[ch.Category]; !ok {
			order = append(order, ch.Category)
		}
		rows[ch.Category] = append(rows[ch.Category], ch)
	}
	return order, rows
}

// Pick returns the channels whose IDs are in ids, in channel order.
func Pick(channels []Channel, ids map[int]bool) []Channel {
	var out []Channel
	for _, ch := range channels {
		if ids[ch.ID] {
			out = append(out, ch)
		}
	}
	return out
}

// ByID finds a channel by ID.
func ByID(channels []Channel, id int) (Channel, bool) {
	for _, ch := range channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return Channel{}, false
}
