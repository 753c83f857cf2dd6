package memory_test

import (
	"testing"

	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/memory"
	"github.com/stratum-storage/stratum/services/servicetest"
)

func TestMemoryService(t *testing.T) {
	servicetest.RunSuite(t, func() (raw.Accessor, func() error, error) {
		acc, err := memory.New().Build()
		return acc, func() error { return nil }, err
	})
}

func TestMetadata(t *testing.T) {
	acc, err := memory.New().Root("/data").Build()
	if err != nil {
		t.Fatal(err)
	}
	meta := acc.Metadata()
	if meta.Scheme() != raw.SchemeMemory {
		t.Fatalf("scheme = %q", meta.Scheme())
	}
	if meta.Root() != "/data/" {
		t.Fatalf("root = %q", meta.Root())
	}
	if !meta.Supports(raw.CapRead | raw.CapWrite | raw.CapList) {
		t.Fatal("missing capabilities")
	}
}
