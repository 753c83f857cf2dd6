package raw

// Scheme identifies a backend kind. It is immutable once a backend is built
// and is used as the service label in metrics, logs and error context.
type Scheme string

const (
	SchemeMemory  Scheme = "memory"
	SchemeFs      Scheme = "fs"
	SchemeBadger  Scheme = "badger"
	SchemePebble  Scheme = "pebble"
	SchemeSqlite  Scheme = "sqlite"
	SchemeS3      Scheme = "s3"
	SchemeWebhdfs Scheme = "webhdfs"
)

func (s Scheme) String() string { return string(s) }
