package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/criollotv/criollotv/internal/catalog"
)

// FileStore keeps favorites in memory and writes them to a JSON array of IDs
// on Persist.
type FileStore struct {
	path string

	mu     sync.Mutex
	set    Set
	loaded bool
	dirty  bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, set: Set{}}
}

func (f *FileStore) Load(context.Context) (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return nil, err
	}
	return f.copyLocked(), nil
}

func (f *FileStore) loadLocked() error {
	if f.loaded {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("favorites load: %w", err)
	}
	set := Set{}
	if len(data) > 0 {
		var ids []int
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("favorites load %s: %w", f.path, err)
		}
		for _, id := range ids {
			set[id] = true
		}
	}
	f.set = set
	f.loaded = true
	return nil
}

func (f *FileStore) copyLocked() Set {
	out := make(Set, len(f.set))
	for id := range f.set {
		out[id] = true
	}
	return out
}

func (f *FileStore) Toggle(_ context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return false, err
	}
	now := !f.set[id]
	if now {
		f.set[id] = true
	} else {
		delete(f.set, id)
	}
	f.dirty = true
	return now, nil
}

func (f *FileStore) Persist(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}
	data, err := json.Marshal(f.set.IDs())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("favorites save: %w", err)
	}
	if err := catalog.WriteFileAtomic(f.path, data, "favorites"); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
