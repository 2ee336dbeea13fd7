package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/criollotv/criollotv/internal/catalog"
)

// Settings is the small state an admin can change at runtime.
type Settings struct {
	M3UURL string `json:"m3uUrl"`
}

// SettingsStore persists Settings as JSON. A missing or unreadable file yields
// the defaults.
type SettingsStore struct {
	path       string
	defaultURL string

	mu      sync.RWMutex
	current Settings
}

// NewSettingsStore returns a store for path; defaultURL is used when the file
// has no URL.
func NewSettingsStore(path, defaultURL string) *SettingsStore {
	return &SettingsStore{path: path, defaultURL: defaultURL, current: Settings{M3UURL: defaultURL}}
}

// Load reads the file into memory. A missing file is not an error. On a
// decode error the defaults stay in place and the error is returned.
func (s *SettingsStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.Get(), nil
		}
		return s.Get(), fmt.Errorf("settings load: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return s.Get(), fmt.Errorf("settings load %s: %w", s.path, err)
	}
	if strings.TrimSpace(out.M3UURL) == "" {
		out.M3UURL = s.defaultURL
	}
	s.mu.Lock()
	s.current = out
	s.mu.Unlock()
	return out, nil
}

// Get returns the in-memory settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save writes next to disk, then makes it current.
func (s *SettingsStore) Save(next Settings) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := catalog.WriteFileAtomic(s.path, data, "settings"); err != nil {
		return err
	}
	s.current = next
	return nil
}
