package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ivanehh/datapipe/pkg/db"
	"github.com/ivanehh/datapipe/pkg/fsops"
)

const (
	createDocuments = `CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at TEXT NOT NULL,
	body TEXT NOT NULL
)`
	insertDocument = `INSERT INTO documents (saved_at, body) VALUES (?, ?)`
	latestDocument = `SELECT body FROM documents ORDER BY id DESC LIMIT 1`
)

// SQLiteHandler keeps every saved value as a JSON document row; Read returns the newest one.
// Each Save creates the table if needed and inserts its row in one transaction.
type SQLiteHandler struct {
	filename string
}

func NewSQLiteHandler(filename string) *SQLiteHandler {
	return &SQLiteHandler{filename: filename}
}

func (h *SQLiteHandler) open(ctx context.Context) (*db.DB, error) {
	database, err := db.New(ctx, db.Source{Driver: db.SQLite, Addr: h.filename})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", fsops.ErrIO, h.filename, err)
	}
	return database, nil
}

func (h *SQLiteHandler) Read() (any, error) {
	if err := ensureExists(h.filename); err != nil {
		return nil, err
	}
	ctx := context.Background()
	database, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	body, err := db.QueryRow(ctx, database, latestDocument, func(r *sql.Row) (string, error) {
		var s string
		err := r.Scan(&s)
		return s, err
	})
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, fmt.Errorf("%w: no documents in %s", fsops.ErrNotFound, h.filename)
		}
		return nil, fmt.Errorf("%w: %s: %w", fsops.ErrIO, h.filename, err)
	}
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, malformed(h.filename, "json document", err)
	}
	return v, nil
}

func (h *SQLiteHandler) Save(data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
	}
	ctx := context.Background()
	database, err := h.open(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	err = database.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createDocuments); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertDocument, time.Now().UTC().Format(time.RFC3339), string(body))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", fsops.ErrIO, h.filename, err)
	}
	return nil
}
