// Package sqlite provides a storage service backed by a SQLite database
// through the generic key-value adapter. Objects live in a single table
// keyed by (namespace, name).
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/raw/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (namespace, name)
);
`

// Builder configures a sqlite service.
type Builder struct {
	path string
	root string
}

// New starts building a sqlite service.
func New() *Builder { return &Builder{} }

// Path sets the database file. Required. Use ":memory:" for an
// in-memory database.
func (b *Builder) Path(path string) *Builder {
	b.path = path
	return b
}

// Root sets the working directory; all operations happen under it.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Build opens the database, creates the schema and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.path == "" {
		return nil, errs.New(errs.KindConfigInvalid, "path is required but not set").
			WithContext("service", string(raw.SchemeSqlite))
	}

	db, err := sql.Open("sqlite", b.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.New(errs.KindConfigInvalid, "open sqlite db").
			WithContext("service", string(raw.SchemeSqlite)).
			WithContext("path", b.path).
			WithSource(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.New(errs.KindConfigInvalid, "create sqlite schema").
			WithContext("service", string(raw.SchemeSqlite)).
			WithSource(err)
	}

	return kv.NewBackend(&store{
		meta: raw.NewMetadata(
			raw.SchemeSqlite,
			b.root,
			raw.CapRead|raw.CapWrite|raw.CapList|raw.CapBlocking,
		).WithName(b.path),
		db: db,
	}), nil
}

type store struct {
	meta raw.Metadata
	db   *sql.DB
}

func (s *store) Metadata() raw.Metadata { return s.meta }

func (s *store) Close() error { return s.db.Close() }

func (s *store) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM objects WHERE namespace = ? AND name = ?`,
		namespace, name,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "sqlite get").WithSource(err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, namespace, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (namespace, name, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, name) DO UPDATE SET value = excluded.value
	`, namespace, name, value)
	if err != nil {
		return errs.New(errs.KindUnexpected, "sqlite set").WithSource(err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, namespace, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM objects WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	if err != nil {
		return errs.New(errs.KindUnexpected, "sqlite delete").WithSource(err)
	}
	return nil
}

func (s *store) Scan(ctx context.Context, namespace string) ([]kv.ScanEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, length(value) FROM objects WHERE namespace = ? ORDER BY name`,
		namespace,
	)
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "sqlite scan").WithSource(err)
	}
	defer rows.Close()

	var entries []kv.ScanEntry
	for rows.Next() {
		var entry kv.ScanEntry
		if err := rows.Scan(&entry.Name, &entry.Size); err != nil {
			return nil, errs.New(errs.KindUnexpected, "sqlite scan row").WithSource(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindUnexpected, "sqlite scan").WithSource(err)
	}
	return entries, nil
}
