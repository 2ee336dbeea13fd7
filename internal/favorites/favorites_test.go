package favorites

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	set, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 0 {
		t.Fatalf("fresh store not empty: %v", set)
	}
	for _, id := range []int{3, 1, 2} {
		on, err := s.Toggle(ctx, id)
		if err != nil || !on {
			t.Fatalf("Toggle(%d) = %v, %v", id, on, err)
		}
	}
	on, err := s.Toggle(ctx, 2)
	if err != nil || on {
		t.Fatalf("second Toggle(2) = %v, %v", on, err)
	}
	if err := s.Persist(ctx); err != nil {
		t.Fatal(err)
	}
	set, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(set.IDs(), []int{1, 3}) {
		t.Errorf("IDs = %v, want [1 3]", set.IDs())
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "favorites.json")
	exerciseStore(t, NewFileStore(path))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[1,3]" {
		t.Errorf("file = %q", data)
	}
	set, err := NewFileStore(path).Load(context.Background())
	if err != nil || !reflect.DeepEqual(set.IDs(), []int{1, 3}) {
		t.Errorf("reload = %v, %v", set, err)
	}
}

func TestFileStore_toggleWithoutPersistIsNotDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	s := NewFileStore(path)
	if _, err := s.Toggle(context.Background(), 9); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file written before Persist: %v", err)
	}
}

func TestFileStore_corruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(context.Background(), filepath.Join(t.TempDir(), "favorites.db"))
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore(t *testing.T) {
	db := openTestDB(t)
	s, err := db.ForDevice("Device-A")
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestSQLiteStore_devicesAreIsolated(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a, _ := db.ForDevice("a")
	b, _ := db.ForDevice("b")
	aUpper, _ := db.ForDevice(" A ")
	if _, err := a.Toggle(ctx, 5); err != nil {
		t.Fatal(err)
	}
	setB, err := b.Load(ctx)
	if err != nil || len(setB) != 0 {
		t.Errorf("device b sees %v, %v", setB, err)
	}
	setA, err := aUpper.Load(ctx)
	if err != nil || !setA[5] {
		t.Errorf("normalized device lost favorite: %v, %v", setA, err)
	}
	if _, err := db.ForDevice("  "); err == nil {
		t.Error("expected error for blank device")
	}
}
