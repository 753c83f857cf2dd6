// Package badger provides a storage service backed by BadgerDB through the
// generic key-value adapter.
package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/raw/kv"
)

// Keys are namespace and name joined by a NUL byte, which cannot appear in
// either side, so a prefix scan of one namespace never leaks deeper paths.
const nsSeparator = "\x00"

// Builder configures a badger service.
type Builder struct {
	dataDir string
	root    string
	logger  *logrus.Logger
}

// New starts building a badger service.
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

// Logger routes badger's internal logging. Defaults to the logrus standard
// logger at warn level.
func (b *Builder) Logger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// Build opens the database and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.dataDir == "" {
		return nil, errs.New(errs.KindConfigInvalid, "datadir is required but not set").
			WithContext("service", string(raw.SchemeBadger))
	}
	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts := badger.DefaultOptions(b.dataDir).
		WithLogger(badgerLogger{logger}).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.New(errs.KindConfigInvalid, "open badger db").
			WithContext("service", string(raw.SchemeBadger)).
			WithContext("datadir", b.dataDir).
			WithSource(err)
	}

	return kv.NewBackend(&store{
		meta: raw.NewMetadata(
			raw.SchemeBadger,
			b.root,
			raw.CapRead|raw.CapWrite|raw.CapList|raw.CapBlocking,
		).WithName(b.dataDir),
		db: db,
	}), nil
}

type store struct {
	meta raw.Metadata
	db   *badger.DB
}

func (s *store) Metadata() raw.Metadata { return s.meta }

func (s *store) Close() error { return s.db.Close() }

func key(namespace, name string) []byte {
	return []byte(namespace + nsSeparator + name)
}

func (s *store) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(namespace, name))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		if err == nil && value == nil {
			value = []byte{}
		}
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "badger get").WithSource(err)
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, namespace, name string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(namespace, name), value)
	})
	if err != nil {
		return errs.New(errs.KindUnexpected, "badger set").WithSource(err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, namespace, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key(namespace, name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return errs.New(errs.KindUnexpected, "badger delete").WithSource(err)
	}
	return nil
}

func (s *store) Scan(ctx context.Context, namespace string) ([]kv.ScanEntry, error) {
	prefix := []byte(namespace + nsSeparator)
	var entries []kv.ScanEntry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		// Sizes come from the index; values stay on disk.
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			entries = append(entries, kv.ScanEntry{
				Name: string(item.Key()[len(prefix):]),
				Size: item.ValueSize(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "badger scan").WithSource(err)
	}
	return entries, nil
}

// badgerLogger adapts logrus to badger's Logger interface.
type badgerLogger struct {
	l *logrus.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }
