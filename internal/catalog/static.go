package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry methods in a static catalog.
const (
	MethodDirect  = "direct_url"      // stream_url is played as-is
	MethodYouTube = "youtube_channel" // resolved to the channel's current live video
)

// Static is a hand-maintained channel catalog loaded from YAML. Sections map
// to categories and keep their file order.
type Static struct {
	Sections []Section `yaml:"sections"`
}

// Section is one category of a static catalog.
type Section struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"channels"`
}

// Entry is one channel definition in a static catalog.
type Entry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Logo        string `yaml:"logo"`
	Color       string `yaml:"color"`
	URL         string `yaml:"url"`        // page URL (youtube /live page for youtube_channel)
	StreamURL   string `yaml:"stream_url"` // for direct_url
	Method      string `yaml:"method"`
	ChannelID   string `yaml:"channel_id"` // YouTube channel ID (UC...) or handle
	Disabled    bool   `yaml:"disabled"`
}

// LoadStatic reads and validates a static catalog file.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Static
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("static catalog %s: %w", path, err)
	}
	for i := range s.Sections {
		sec := &s.Sections[i]
		if strings.TrimSpace(sec.Name) == "" {
			sec.Name = DefaultCategory
		}
		for j := range sec.Entries {
			e := &sec.Entries[j]
			if strings.TrimSpace(e.Name) == "" {
				return nil, fmt.Errorf("static catalog %s: section %q entry %d has no name", path, sec.Name, j+1)
			}
			if e.Method == "" {
				if e.ChannelID != "" {
					e.Method = MethodYouTube
				} else {
					e.Method = MethodDirect
				}
			}
			if e.Method != MethodDirect && e.Method != MethodYouTube {
				return nil, fmt.Errorf("static catalog %s: %s: unknown method %q", path, e.Name, e.Method)
			}
		}
	}
	return &s, nil
}

// Channels flattens the enabled direct entries into channels numbered 1..n in
// file order. YouTube entries are skipped; they need resolving first.
func (s *Static) Channels() []Channel {
	var out []Channel
	for _, sec := range s.Sections {
		for _, e := range sec.Entries {
			if e.Disabled || e.Method != MethodDirect {
				continue
			}
			out = append(out, e.channel(len(out)+1, sec.Name, e.StreamURL))
		}
	}
	return out
}

// YouTube returns the enabled youtube_channel entries with their section name.
func (s *Static) YouTube() []SectionEntry {
	var out []SectionEntry
	for _, sec := range s.Sections {
		for _, e := range sec.Entries {
			if e.Disabled || e.Method != MethodYouTube {
				continue
			}
			out = append(out, SectionEntry{Section: sec.Name, Entry: e})
		}
	}
	return out
}

// SectionEntry pairs an entry with the section it came from.
type SectionEntry struct {
	Section string
	Entry
}

// Channel builds a channel for the entry with the given id and stream URL.
func (e SectionEntry) Channel(id int, streamURL string) Channel {
	return e.Entry.channel(id, e.Section, streamURL)
}

func (e Entry) channel(id int, category, streamURL string) Channel {
	return Channel{
		ID:          id,
		Name:        e.Name,
		Category:    category,
		Logo:        e.Logo,
		StreamURL:   streamURL,
		Description: e.Description,
		Color:       e.Color,
	}
}

// Fallback is the built-in list shown when no source is reachable and nothing
// has ever been loaded.
func Fallback() []Channel {
	return []Channel{
		{ID: 1, Category: "Noticias", Name: "TN", Description: "Todo Noticias", StreamURL: "https://5900.tv/tnok/", Color: "#e30613"},
		{ID: 2, Category: "Noticias", Name: "C5N", Description: "Canal 5 Noticias", StreamURL: "https://5900.tv/c5n-en-vivo/", Color: "#005baa"},
		{ID: 3, Category: "Noticias", Name: "LN+", Description: "La Nación Más", StreamURL: "https://5900.tv/la-nacion-ln-en-vivo-las-24-horas/", Color: "#003087"},
	}
}
