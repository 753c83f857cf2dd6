package fs_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/fs"
	"github.com/stratum-storage/stratum/services/servicetest"
)

func TestFsService(t *testing.T) {
	servicetest.RunSuite(t, func() (raw.Accessor, func() error, error) {
		acc, err := fs.New().Root(t.TempDir()).Build()
		return acc, func() error { return nil }, err
	})
}

func TestRootRequired(t *testing.T) {
	_, err := fs.New().Build()
	require.Error(t, err)
}

func TestRootCreated(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does", "not", "exist")
	_, err := fs.New().Root(root).Build()
	require.NoError(t, err)

	fi, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func newOperator(t *testing.T) *stratum.Operator {
	t.Helper()
	acc, err := fs.New().Root(t.TempDir()).Build()
	require.NoError(t, err)
	return stratum.NewOperator(acc).Finish()
}

func TestRemoveAllNested(t *testing.T) {
	ctx := context.Background()
	op := newOperator(t)

	for _, name := range []string{"tree/a.txt", "tree/sub/b.txt", "tree/sub/deep/c.txt"} {
		require.NoError(t, op.Object(name).WriteBytes(ctx, []byte(name)))
	}

	require.NoError(t, op.Batch().RemoveAll(ctx, "tree/"))

	exists, err := op.Object("tree/").Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListWithoutTrailingSlash(t *testing.T) {
	ctx := context.Background()
	op := newOperator(t)

	require.NoError(t, op.Object("dir/a.txt").WriteBytes(ctx, []byte("a")))
	require.NoError(t, op.Object("dir/sub/b.txt").WriteBytes(ctx, []byte("b")))

	pager, err := op.Object("dir").List(ctx)
	require.NoError(t, err)
	page, err := pager.NextPage(ctx)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "dir/a.txt", page[0].Path)
	require.Equal(t, "dir/sub/", page[1].Path)
}

func TestMultipart(t *testing.T) {
	ctx := context.Background()
	op := newOperator(t)
	obj := op.Object("assembled.bin")

	upload, err := obj.CreateMultipart(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, upload.UploadID())

	first := bytes.Repeat([]byte("a"), 1024)
	second := bytes.Repeat([]byte("b"), 512)

	p1, err := upload.WritePart(ctx, 1, int64(len(first)), bytes.NewReader(first))
	require.NoError(t, err)
	p2, err := upload.WritePart(ctx, 2, int64(len(second)), bytes.NewReader(second))
	require.NoError(t, err)

	require.NoError(t, upload.Complete(ctx, []raw.Part{p1, p2}))

	got, err := obj.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, first...), second...), got)
}

func TestMultipartAbort(t *testing.T) {
	ctx := context.Background()
	op := newOperator(t)
	obj := op.Object("aborted.bin")

	upload, err := obj.CreateMultipart(ctx)
	require.NoError(t, err)
	_, err = upload.WritePart(ctx, 1, 4, bytes.NewReader([]byte("dead")))
	require.NoError(t, err)
	require.NoError(t, upload.Abort(ctx))

	exists, err := obj.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	// Writing to an aborted upload is rejected.
	_, err = upload.WritePart(ctx, 2, 4, bytes.NewReader([]byte("beef")))
	require.Error(t, err)
}

func TestUploadsHiddenFromListing(t *testing.T) {
	ctx := context.Background()
	op := newOperator(t)

	_, err := op.Object("pending.bin").CreateMultipart(ctx)
	require.NoError(t, err)
	require.NoError(t, op.Object("visible.txt").WriteBytes(ctx, []byte("x")))

	pager, err := op.Object("").List(ctx)
	require.NoError(t, err)
	page, err := pager.NextPage(ctx)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "visible.txt", page[0].Path)
}
