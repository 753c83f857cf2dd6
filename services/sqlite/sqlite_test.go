package sqlite_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/servicetest"
	"github.com/stratum-storage/stratum/services/sqlite"
)

func TestSqliteService(t *testing.T) {
	servicetest.RunSuite(t, func() (raw.Accessor, func() error, error) {
		acc, err := sqlite.New().Path(filepath.Join(t.TempDir(), "objects.db")).Build()
		if err != nil {
			return nil, nil, err
		}
		return acc, acc.(io.Closer).Close, nil
	})
}

func TestPathRequired(t *testing.T) {
	_, err := sqlite.New().Build()
	require.Error(t, err)
}
