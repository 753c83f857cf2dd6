package kv_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/raw/kv"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path, namespace, name string
	}{
		{"/dir1/dir2/file.txt", "/dir1/dir2", "file.txt"},
		{"/file.txt", "/", "file.txt"},
		{"/dir/file.txt", "/dir", "file.txt"},
	}
	for _, c := range cases {
		namespace, name := kv.SplitPath(c.path)
		assert.Equal(t, c.namespace, namespace, "path %q", c.path)
		assert.Equal(t, c.name, name, "path %q", c.path)
		assert.Equal(t, c.path, kv.JoinPath(namespace, name), "path %q", c.path)
	}
}

// mapStore is a minimal in-memory Store for adapter tests.
type mapStore struct {
	meta raw.Metadata
	data map[string]map[string][]byte
}

func newMapStore(caps raw.Capability) *mapStore {
	return &mapStore{
		meta: raw.NewMetadata(raw.SchemeMemory, "/", caps),
		data: map[string]map[string][]byte{},
	}
}

func (s *mapStore) Metadata() raw.Metadata { return s.meta }

func (s *mapStore) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	value, ok := s.data[namespace][name]
	if !ok {
		return nil, nil
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *mapStore) Set(ctx context.Context, namespace, name string, value []byte) error {
	if s.data[namespace] == nil {
		s.data[namespace] = map[string][]byte{}
	}
	s.data[namespace][name] = value
	return nil
}

func (s *mapStore) Delete(ctx context.Context, namespace, name string) error {
	delete(s.data[namespace], name)
	return nil
}

func (s *mapStore) Scan(ctx context.Context, namespace string) ([]kv.ScanEntry, error) {
	var entries []kv.ScanEntry
	for name, value := range s.data[namespace] {
		entries = append(entries, kv.ScanEntry{Name: name, Size: int64(len(value))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

var ctx = context.Background()

func TestBackendRoundTrip(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite | raw.CapList))

	_, err := b.Write(ctx, "dir/a.txt", raw.WriteArgs{Size: 5}, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	_, rc, err := b.Read(ctx, "dir/a.txt", raw.ReadArgs{})
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, []byte("hello"), got)

	stat, err := b.Stat(ctx, "dir/a.txt", raw.StatArgs{})
	require.NoError(t, err)
	require.Equal(t, raw.ModeFile, stat.Meta.Mode())
	require.Equal(t, int64(5), stat.Meta.ContentLength())
}

func TestBackendWriteUnknownSize(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	// A negative size declares an unknown stream length; the backend sizes
	// from the stream itself.
	res, err := b.Write(ctx, "chunked.txt", raw.WriteArgs{Size: -1}, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Written)

	_, rc, err := b.Read(ctx, "chunked.txt", raw.ReadArgs{})
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestBackendReadAbsent(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	_, _, err := b.Read(ctx, "missing.txt", raw.ReadArgs{})
	require.Error(t, err)
	require.True(t, errs.IsObjectNotFound(err))
}

func TestBackendEmptyValueIsNotAbsent(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	_, err := b.Create(ctx, "empty.txt", raw.CreateArgs{Mode: raw.ModeFile})
	require.NoError(t, err)

	_, rc, err := b.Read(ctx, "empty.txt", raw.ReadArgs{})
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBackendRangeAppliedInMemory(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	_, err := b.Write(ctx, "r.bin", raw.WriteArgs{Size: 10}, bytes.NewReader([]byte("0123456789")))
	require.NoError(t, err)

	read := func(rng raw.BytesRange) string {
		res, rc, err := b.Read(ctx, "r.bin", raw.ReadArgs{Range: rng})
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, int64(len(got)), res.Meta.ContentLength())
		return string(got)
	}

	assert.Equal(t, "2345", read(raw.RangeOf(2, 4)))
	assert.Equal(t, "789", read(raw.RangeSuffix(3)))
	assert.Equal(t, "56789", read(raw.RangeFrom(5)))
}

func TestBackendDirSemantics(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	// Directories are implicit: creating and deleting them is a no-op,
	// stat always reports them present.
	_, err := b.Create(ctx, "dir/", raw.CreateArgs{Mode: raw.ModeDir})
	require.NoError(t, err)

	stat, err := b.Stat(ctx, "dir/", raw.StatArgs{})
	require.NoError(t, err)
	require.Equal(t, raw.ModeDir, stat.Meta.Mode())

	_, err = b.Delete(ctx, "dir/", raw.DeleteArgs{})
	require.NoError(t, err)
}

func TestBackendList(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite | raw.CapList))

	for _, name := range []string{"dir/a", "dir/b", "dir/c"} {
		_, err := b.Write(ctx, name, raw.WriteArgs{Size: 1}, bytes.NewReader([]byte("x")))
		require.NoError(t, err)
	}

	_, pager, err := b.List(ctx, "dir/", raw.ListArgs{})
	require.NoError(t, err)

	page, err := pager.NextPage(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, len(page))
	require.Equal(t, "dir/a", page[0].Path)
	require.Equal(t, int64(1), page[0].Meta.ContentLength())

	page, err = pager.NextPage(ctx)
	require.NoError(t, err)
	require.Nil(t, page)
}

func TestBackendListUnsupported(t *testing.T) {
	b := kv.NewBackend(newMapStore(raw.CapRead | raw.CapWrite))

	_, _, err := b.List(ctx, "dir/", raw.ListArgs{})
	require.Error(t, err)
	require.True(t, errs.IsUnsupported(err))
}
