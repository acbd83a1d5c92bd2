// Package history is the append-only scan history log.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Item is one persisted scan. Items are never updated after insertion.
type Item struct {
	ID         int64  `json:"id"`
	ImageRef   string `json:"image_ref"`
	Prediction string `json:"prediction"`
	Confidence string `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
}

// Error wraps every failure of a store operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrIDAssigned = errors.New("id is assigned by the store")

type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string
}

// Inserter is the write side of the store used by the recorder.
type Inserter interface {
	Insert(ctx context.Context, item Item) (int64, error)
}

// Store serializes writes behind a mutex and runs each operation in its own
// transaction, so readers see either a whole record or none of it.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
	d  dialect
}

// Open applies pending migrations and connects to the store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, dsn, err := resolve(cfg)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	if err := migrateUp(d, dsn); err != nil {
		return nil, &Error{Op: "migrate", Err: err}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{Op: "open", Err: err}
	}

	return &Store{db: db, d: d}, nil
}

// Insert appends item and returns its new id once the write is committed.
func (s *Store) Insert(ctx context.Context, item Item) (int64, error) {
	if item.ID != 0 {
		return 0, &Error{Op: "insert", Err: ErrIDAssigned}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &Error{Op: "insert", Err: err}
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.d.insert, item.ImageRef, item.Prediction, item.Confidence, item.Timestamp).Scan(&id)
	if err != nil {
		return 0, &Error{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &Error{Op: "insert", Err: err}
	}

	return id, nil
}

// ListAllDescendingByTime returns every item, newest first; equal
// timestamps are ordered by descending id. On error no items are returned.
func (s *Store) ListAllDescendingByTime(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.d.list)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ImageRef, &it.Prediction, &it.Confidence, &it.Timestamp); err != nil {
			return nil, &Error{Op: "list", Err: err}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	return items, nil
}

// ClearAll deletes every item. It cannot be undone. Ids are not reused.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, s.d.clear); err != nil {
		return &Error{Op: "clear", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
