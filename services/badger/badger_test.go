package badger_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/badger"
	"github.com/stratum-storage/stratum/services/servicetest"
)

func TestBadgerService(t *testing.T) {
	servicetest.RunSuite(t, func() (raw.Accessor, func() error, error) {
		acc, err := badger.New().DataDir(t.TempDir()).Build()
		if err != nil {
			return nil, nil, err
		}
		return acc, acc.(io.Closer).Close, nil
	})
}

func TestDataDirRequired(t *testing.T) {
	_, err := badger.New().Build()
	require.Error(t, err)
}
