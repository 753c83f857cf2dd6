// Package pebble provides a storage service backed by Pebble (CockroachDB's
// LSM engine) through the generic key-value adapter.
package pebble

import (
	"context"

	"github.com/cockroachdb/pebble/v2"
	"github.com/sirupsen/logrus"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/raw/kv"
)

const nsSeparator = "\x00"

// Builder configures a pebble service.
type Builder struct {
	dataDir string
	root    string
	logger  *logrus.Logger
}

// New starts building a pebble service.
func New() *Builder { return &Builder{} }

// DataDir sets the directory holding the database files. Required.
func (b *Builder) DataDir(dir string) *Builder {
	b.dataDir = dir
	return b
}

// Root sets the working directory; all operations happen under it.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Logger routes pebble's internal logging.
func (b *Builder) Logger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// Build opens the database and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.dataDir == "" {
		return nil, errs.New(errs.KindConfigInvalid, "datadir is required but not set").
			WithContext("service", string(raw.SchemePebble))
	}
	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := pebble.Open(b.dataDir, &pebble.Options{
		Logger: pebbleLogger{logger},
	})
	if err != nil {
		return nil, errs.New(errs.KindConfigInvalid, "open pebble db").
			WithContext("service", string(raw.SchemePebble)).
			WithContext("datadir", b.dataDir).
			WithSource(err)
	}

	return kv.NewBackend(&store{
		meta: raw.NewMetadata(
			raw.SchemePebble,
			b.root,
			raw.CapRead|raw.CapWrite|raw.CapList|raw.CapBlocking,
		).WithName(b.dataDir),
		db: db,
	}), nil
}

type store struct {
	meta raw.Metadata
	db   *pebble.DB
}

func (s *store) Metadata() raw.Metadata { return s.meta }

func (s *store) Close() error { return s.db.Close() }

func key(namespace, name string) []byte {
	return []byte(namespace + nsSeparator + name)
}

func (s *store) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	value, closer, err := s.db.Get(key(namespace, name))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "pebble get").WithSource(err)
	}
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, errs.New(errs.KindUnexpected, "pebble get close").WithSource(err)
	}
	return out, nil
}

func (s *store) Set(ctx context.Context, namespace, name string, value []byte) error {
	if err := s.db.Set(key(namespace, name), value, pebble.Sync); err != nil {
		return errs.New(errs.KindUnexpected, "pebble set").WithSource(err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, namespace, name string) error {
	if err := s.db.Delete(key(namespace, name), pebble.Sync); err != nil {
		return errs.New(errs.KindUnexpected, "pebble delete").WithSource(err)
	}
	return nil
}

func (s *store) Scan(ctx context.Context, namespace string) ([]kv.ScanEntry, error) {
	prefix := []byte(namespace + nsSeparator)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "pebble iterator").WithSource(err)
	}
	defer it.Close()

	var entries []kv.ScanEntry
	for it.First(); it.Valid(); it.Next() {
		entries = append(entries, kv.ScanEntry{
			Name: string(it.Key()[len(prefix):]),
			Size: int64(len(it.Value())),
		})
	}
	if err := it.Error(); err != nil {
		return nil, errs.New(errs.KindUnexpected, "pebble scan").WithSource(err)
	}
	return entries, nil
}

// prefixEnd returns the exclusive upper bound for a prefix scan. It
// increments the last byte of the prefix; nil if every byte overflows.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// pebbleLogger adapts logrus to pebble's Logger interface.
type pebbleLogger struct {
	l *logrus.Logger
}

func (p pebbleLogger) Infof(format string, args ...interface{})  { p.l.Debugf(format, args...) }
func (p pebbleLogger) Errorf(format string, args ...interface{}) { p.l.Errorf(format, args...) }
func (p pebbleLogger) Fatalf(format string, args ...interface{}) { p.l.Fatalf(format, args...) }
