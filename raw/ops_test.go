package raw_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum/raw"
)

func TestRangeResolve(t *testing.T) {
	resolve := func(r raw.BytesRange, total int64) (int64, int64) {
		offset, length := r.Resolve(total)
		return offset, length
	}

	offset, length := resolve(raw.FullRange(), 100)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(100), length)

	offset, length = resolve(raw.RangeOf(10, 20), 100)
	assert.Equal(t, int64(10), offset)
	assert.Equal(t, int64(20), length)

	offset, length = resolve(raw.RangeFrom(40), 100)
	assert.Equal(t, int64(40), offset)
	assert.Equal(t, int64(60), length)

	// Suffix addressing selects the tail.
	offset, length = resolve(raw.RangeSuffix(10), 100)
	assert.Equal(t, int64(90), offset)
	assert.Equal(t, int64(10), length)

	// Windows are clamped to the object.
	offset, length = resolve(raw.RangeOf(90, 50), 100)
	assert.Equal(t, int64(90), offset)
	assert.Equal(t, int64(10), length)

	offset, length = resolve(raw.RangeFrom(200), 100)
	assert.Equal(t, int64(100), offset)
	assert.Equal(t, int64(0), length)

	offset, length = resolve(raw.RangeSuffix(500), 100)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(100), length)
}

func TestRangeValidate(t *testing.T) {
	assert.NoError(t, raw.FullRange().Validate())
	assert.NoError(t, raw.RangeOf(0, 0).Validate())
	assert.Error(t, raw.RangeOf(-1, 10).Validate())
	assert.Error(t, raw.RangeOf(0, -10).Validate())
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "full", raw.FullRange().String())
	assert.Equal(t, "10-29", raw.RangeOf(10, 20).String())
	assert.Equal(t, "40-", raw.RangeFrom(40).String())
	assert.Equal(t, "-10", raw.RangeSuffix(10).String())
}

func TestWriteMultipartArgsValidate(t *testing.T) {
	require.NoError(t, raw.WriteMultipartArgs{UploadID: "u", PartNumber: 1}.Validate())
	require.Error(t, raw.WriteMultipartArgs{UploadID: "u", PartNumber: 0}.Validate())
	require.Error(t, raw.WriteMultipartArgs{UploadID: "u", PartNumber: 1, Size: -1}.Validate())
}

func TestCapability(t *testing.T) {
	caps := raw.CapRead | raw.CapWrite | raw.CapList

	assert.True(t, caps.Has(raw.CapRead))
	assert.True(t, caps.Has(raw.CapRead|raw.CapList))
	assert.False(t, caps.Has(raw.CapPresign))
	assert.False(t, caps.Has(raw.CapRead|raw.CapPresign))
}

func TestMetadata(t *testing.T) {
	meta := raw.NewMetadata(raw.SchemeFs, "data", raw.CapRead|raw.CapWrite).WithName("primary")

	assert.Equal(t, raw.SchemeFs, meta.Scheme())
	assert.Equal(t, "/data/", meta.Root())
	assert.Equal(t, "primary", meta.Name())
	assert.True(t, meta.Supports(raw.CapRead))
	assert.False(t, meta.Supports(raw.CapList))
}
