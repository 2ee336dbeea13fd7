package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS favorites (
	device     TEXT    NOT NULL,
	channel_id INTEGER NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (device, channel_id)
)`

// DB stores favorites for many devices in one SQLite database.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating if needed) the SQLite database at path. Use
// ":memory:" for a throwaway database.
func OpenDB(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("favorites db: open: %w", err)
	}
	// a :memory: database lives and dies with its connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("favorites db: schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// ForDevice returns the Store of one device. device is normalized like HWIDs.
func (d *DB) ForDevice(device string) (Store, error) {
	device = strings.ToLower(strings.TrimSpace(device))
	if device == "" {
		return nil, errors.New("favorites: device id required")
	}
	return &deviceStore{db: d.db, device: device}, nil
}

// deviceStore writes through on Toggle, so Persist has nothing to flush.
type deviceStore struct {
	db     *sql.DB
	device string
}

func (s *deviceStore) Load(ctx context.Context) (Set, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id FROM favorites WHERE device = ?`, s.device)
	if err != nil {
		return nil, fmt.Errorf("favorites load: %w", err)
	}
	defer rows.Close()
	set := Set{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("favorites load: %w", err)
		}
		set[id] = true
	}
	return set, rows.Err()
}

func (s *deviceStore) Toggle(ctx context.Context, id int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("favorites toggle: %w", err)
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE device = ? AND channel_id = ?`, s.device, id)
	if err != nil {
		return false, fmt.Errorf("favorites toggle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("favorites toggle: %w", err)
	}
	added := n == 0
	if added {
		if _, err := tx.ExecContext(ctx, `INSERT INTO favorites (device, channel_id, created_at) VALUES (?, ?, ?)`,
			s.device, id, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return false, fmt.Errorf("favorites toggle: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("favorites toggle: commit: %w", err)
	}
	return added, nil
}

func (s *deviceStore) Persist(context.Context) error { return nil }
