// Package store persists library snapshots in a local SQLite database
// and manages numbered backup copies of it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/zotsync/internal/dbx"
	"github.com/dmitrijs2005/zotsync/internal/library"
)

// Store reads and writes library snapshots. One store maps to one
// database file.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	key          TEXT PRIMARY KEY,
	kind         INTEGER NOT NULL,
	version      INTEGER NOT NULL,
	data         TEXT NOT NULL,
	changed_from TEXT NOT NULL,
	dirty        INTEGER NOT NULL DEFAULT 0,
	fresh        INTEGER NOT NULL DEFAULT 0,
	deleted      INTEGER NOT NULL DEFAULT 0,
	local_md5    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS meta (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored snapshot with st, atomically.
func (s *Store) Save(ctx context.Context, st *library.State) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM objects`); err != nil {
			return fmt.Errorf("clear objects: %w", err)
		}
		for _, o := range st.Objects {
			data, err := json.Marshal(o.Data)
			if err != nil {
				return fmt.Errorf("encode %s data: %w", o.Key, err)
			}
			changed, err := json.Marshal(o.ChangedFrom)
			if err != nil {
				return fmt.Errorf("encode %s baselines: %w", o.Key, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO objects (key, kind, version, data, changed_from, dirty, fresh, deleted, local_md5)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				o.Key, int(o.Kind), o.Version, string(data), string(changed),
				boolInt(o.Dirty), boolInt(o.Fresh), boolInt(o.Deleted), o.LocalMD5)
			if err != nil {
				return fmt.Errorf("insert %s: %w", o.Key, err)
			}
		}
		if err := s.saveMeta(ctx, tx, "version", st.Version); err != nil {
			return err
		}
		if err := s.saveMeta(ctx, tx, "item_types", st.ItemTypes); err != nil {
			return err
		}
		if err := s.saveMeta(ctx, tx, "item_fields", st.ItemFields); err != nil {
			return err
		}
		return s.saveMeta(ctx, tx, "creator_types", st.CreatorTypes)
	})
}

func (s *Store) saveMeta(ctx context.Context, tx dbx.DBTX, name string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, string(value))
	if err != nil {
		return fmt.Errorf("upsert meta %s: %w", name, err)
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context, name string, out any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read meta %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("decode meta %s: %w", name, err)
	}
	return true, nil
}

// Load reads the stored snapshot. The second return is false when the
// store has never been saved to.
func (s *Store) Load(ctx context.Context) (*library.State, bool, error) {
	st := &library.State{Version: -1}
	found, err := s.loadMeta(ctx, "version", &st.Version)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if _, err := s.loadMeta(ctx, "item_types", &st.ItemTypes); err != nil {
		return nil, false, err
	}
	if _, err := s.loadMeta(ctx, "item_fields", &st.ItemFields); err != nil {
		return nil, false, err
	}
	if _, err := s.loadMeta(ctx, "creator_types", &st.CreatorTypes); err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, kind, version, data, changed_from, dirty, fresh, deleted, local_md5
		FROM objects ORDER BY key`)
	if err != nil {
		return nil, false, fmt.Errorf("select objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o                    library.ObjectState
			kind                 int
			data, changed        string
			dirty, fresh, remove int
		)
		if err := rows.Scan(&o.Key, &kind, &o.Version, &data, &changed, &dirty, &fresh, &remove, &o.LocalMD5); err != nil {
			return nil, false, fmt.Errorf("scan object: %w", err)
		}
		o.Kind = library.Kind(kind)
		if err := json.Unmarshal([]byte(data), &o.Data); err != nil {
			return nil, false, fmt.Errorf("decode %s data: %w", o.Key, err)
		}
		if err := json.Unmarshal([]byte(changed), &o.ChangedFrom); err != nil {
			return nil, false, fmt.Errorf("decode %s baselines: %w", o.Key, err)
		}
		o.Dirty = dirty != 0
		o.Fresh = fresh != 0
		o.Deleted = remove != 0
		st.Objects = append(st.Objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return st, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
