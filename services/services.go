// Package services constructs accessors for every supported scheme from
// flat string options, the form configuration files and command lines
// naturally produce.
package services

import (
	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/badger"
	"github.com/stratum-storage/stratum/services/fs"
	"github.com/stratum-storage/stratum/services/memory"
	"github.com/stratum-storage/stratum/services/pebble"
	"github.com/stratum-storage/stratum/services/s3"
	"github.com/stratum-storage/stratum/services/sqlite"
	"github.com/stratum-storage/stratum/services/webhdfs"
)

// Option keys understood by Create. Each service documents which of them
// it requires.
const (
	OptRoot      = "root"
	OptDataDir   = "datadir"
	OptPath      = "path"
	OptBucket    = "bucket"
	OptEndpoint  = "endpoint"
	OptRegion    = "region"
	OptAccessKey = "access_key"
	OptSecretKey = "secret_key"
	OptUsername  = "username"
)

// Create builds an accessor for scheme from options.
func Create(scheme raw.Scheme, options map[string]string) (raw.Accessor, error) {
	opt := func(key string) string { return options[key] }

	switch scheme {
	case raw.SchemeMemory:
		return memory.New().Root(opt(OptRoot)).Build()
	case raw.SchemeFs:
		return fs.New().Root(opt(OptRoot)).Build()
	case raw.SchemeBadger:
		return badger.New().DataDir(opt(OptDataDir)).Root(opt(OptRoot)).Build()
	case raw.SchemePebble:
		return pebble.New().DataDir(opt(OptDataDir)).Root(opt(OptRoot)).Build()
	case raw.SchemeSqlite:
		return sqlite.New().Path(opt(OptPath)).Root(opt(OptRoot)).Build()
	case raw.SchemeS3:
		b := s3.New().
			Bucket(opt(OptBucket)).
			Root(opt(OptRoot)).
			Credentials(opt(OptAccessKey), opt(OptSecretKey))
		if endpoint := opt(OptEndpoint); endpoint != "" {
			b = b.Endpoint(endpoint)
		}
		if region := opt(OptRegion); region != "" {
			b = b.Region(region)
		}
		return b.Build()
	case raw.SchemeWebhdfs:
		b := webhdfs.New().Endpoint(opt(OptEndpoint)).Root(opt(OptRoot))
		if username := opt(OptUsername); username != "" {
			b = b.Username(username)
		}
		return b.Build()
	default:
		return nil, errs.Newf(errs.KindConfigInvalid, "unknown scheme %q", scheme)
	}
}
