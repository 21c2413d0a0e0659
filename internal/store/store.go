// Package store persists the symbol registry in a SQLite database so later
// runs can look up and resolve names without rebuilding.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/registry"
)

// DefaultCacheSize is the lookup cache size used when none is given.
const DefaultCacheSize = 1024

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	documents  INTEGER NOT NULL,
	objects    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	fullname TEXT PRIMARY KEY,
	docname  TEXT NOT NULL,
	objtype  TEXT NOT NULL,
	build_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_objects_docname ON objects(docname);
`

// Build describes one saved build.
type Build struct {
	ID        string
	StartedAt time.Time
	Documents int
	Objects   int
}

// lookup is a cached Lookup result. Misses are cached too.
type lookup struct {
	entry model.Entry
	ok    bool
}

// Store is a registry database. It satisfies registry.Lookuper, so a
// resolver can run directly against it.
type Store struct {
	conn   *sql.DB
	path   string
	cache  *lru.Cache[string, lookup]
	logger *slog.Logger
}

// Open opens or creates the database at path, creating parent directories.
// cacheSize <= 0 selects DefaultCacheSize; a nil logger discards output.
func Open(path string, cacheSize int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; SQLite serializes anyway.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	cache, err := lru.New[string, lookup](cacheSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	logger.Debug("opened registry database", "path", path)
	return &Store{conn: conn, path: path, cache: cache, logger: logger}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Lookup returns the saved entry for fullName. Database errors are logged
// and reported as a miss.
func (s *Store) Lookup(fullName string) (model.Entry, bool) {
	if c, ok := s.cache.Get(fullName); ok {
		return c.entry, c.ok
	}

	var doc, kind string
	err := s.conn.QueryRow(`SELECT docname, objtype FROM objects WHERE fullname = ?`, fullName).Scan(&doc, &kind)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.cache.Add(fullName, lookup{})
		return model.Entry{}, false
	case err != nil:
		s.logger.Error("registry lookup failed", "name", fullName, "err", err)
		return model.Entry{}, false
	}

	entry := model.Entry{Doc: doc, Kind: model.SymbolKind(kind)}
	s.cache.Add(fullName, lookup{entry: entry, ok: true})
	return entry, true
}

// Save replaces every saved object with recs in one transaction and records
// the build.
func (s *Store) Save(ctx context.Context, recs []registry.Record, documents int) (Build, error) {
	b := Build{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Documents: documents,
		Objects:   len(recs),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM objects`); err != nil {
			return fmt.Errorf("failed to clear objects: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO objects (fullname, docname, objtype, build_id) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range recs {
			if _, err := stmt.ExecContext(ctx, r.Name, r.Doc, string(r.Kind), b.ID); err != nil {
				return fmt.Errorf("failed to insert %s: %w", r.Name, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO builds (id, started_at, documents, objects) VALUES (?, ?, ?, ?)`,
			b.ID, b.StartedAt.Format(timeLayout), b.Documents, b.Objects)
		if err != nil {
			return fmt.Errorf("failed to record build: %w", err)
		}
		return nil
	})
	s.cache.Purge()
	if err != nil {
		return Build{}, err
	}

	s.logger.Info("saved registry", "build", b.ID, "objects", b.Objects, "path", s.path)
	return b, nil
}

// Records returns every saved object sorted by name.
func (s *Store) Records(ctx context.Context) ([]registry.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT fullname, docname, objtype FROM objects ORDER BY fullname`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var recs []registry.Record
	for rows.Next() {
		var r registry.Record
		var kind string
		if err := rows.Scan(&r.Name, &r.Doc, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		r.Kind = model.SymbolKind(kind)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Load registers every saved object into reg and returns how many there were.
func (s *Store) Load(ctx context.Context, reg registry.Registry) (int, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return 0, err
	}
	registry.Merge(reg, recs)
	return len(recs), nil
}

// LastBuild returns the most recently saved build, if any.
func (s *Store) LastBuild(ctx context.Context) (Build, bool, error) {
	var b Build
	var started string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, started_at, documents, objects FROM builds ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&b.ID, &started, &b.Documents, &b.Objects)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, false, nil
	}
	if err != nil {
		return Build{}, false, fmt.Errorf("failed to query builds: %w", err)
	}
	if b.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Build{}, false, fmt.Errorf("bad build timestamp %q: %w", started, err)
	}
	return b, true, nil
}

// inventoryEntry is one docs.json object.
type inventoryEntry struct {
	Doc  string `json:"doc"`
	Kind string `json:"kind"`
}

// inventory is the docs.json document.
type inventory struct {
	Build   string                    `json:"build,omitempty"`
	Objects map[string]inventoryEntry `json:"objects"`
}

// ExportJSON writes the saved objects to w as a docs.json inventory.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	recs, err := s.Records(ctx)
	if err != nil {
		return err
	}
	inv := inventory{Objects: make(map[string]inventoryEntry, len(recs))}
	for _, r := range recs {
		inv.Objects[r.Name] = inventoryEntry{Doc: r.Doc, Kind: string(r.Kind)}
	}
	b, ok, err := s.LastBuild(ctx)
	if err != nil {
		return err
	}
	if ok {
		inv.Build = b.ID
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(inv); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back if it fails.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "err", err, "rollback_err", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
