package stratum_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	stratum "github.com/stratum-storage/stratum"
	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services/memory"
)

var ctx = context.Background()

func newMemoryOperator(t *testing.T) *stratum.Operator {
	t.Helper()
	acc, err := memory.New().Build()
	require.NoError(t, err)
	return stratum.NewOperator(acc).Finish()
}

// panicAccessor blows up on any dispatched operation. Wrapping it with an
// operator proves that capability gating rejects calls before they reach the
// backend.
type panicAccessor struct {
	raw.UnsupportedAccessor
}

func (panicAccessor) Create(context.Context, string, raw.CreateArgs) (raw.CreateResult, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) Read(context.Context, string, raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) Write(context.Context, string, raw.WriteArgs, io.Reader) (raw.WriteResult, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) Delete(context.Context, string, raw.DeleteArgs) (raw.DeleteResult, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) List(context.Context, string, raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) Presign(string, raw.PresignArgs) (raw.PresignResult, error) {
	panic("dispatched past capability gate")
}

func (panicAccessor) CreateMultipart(context.Context, string, raw.CreateMultipartArgs) (raw.CreateMultipartResult, error) {
	panic("dispatched past capability gate")
}

func TestCapabilityGateRejectsBeforeDispatch(t *testing.T) {
	acc := panicAccessor{raw.UnsupportedAccessor{
		Meta: raw.NewMetadata(raw.SchemeMemory, "/", 0),
	}}
	op := stratum.NewOperator(acc).Finish()
	obj := op.Object("a.txt")

	require.True(t, errs.IsUnsupported(obj.Create(ctx)))
	require.True(t, errs.IsUnsupported(obj.Delete(ctx)))

	_, err := obj.Read(ctx)
	require.True(t, errs.IsUnsupported(err))
	require.True(t, errs.IsUnsupported(obj.WriteBytes(ctx, []byte("x"))))

	_, err = obj.List(ctx)
	require.True(t, errs.IsUnsupported(err))
	_, err = obj.Presign(raw.PresignArgs{})
	require.True(t, errs.IsUnsupported(err))
	_, err = obj.CreateMultipart(ctx)
	require.True(t, errs.IsUnsupported(err))

	_, err = op.Batch().WalkTopDown("/")
	require.True(t, errs.IsUnsupported(err))
	_, err = op.Batch().WalkBottomUp("/")
	require.True(t, errs.IsUnsupported(err))
}

// untypedErrAccessor fails stat with a bare error to exercise the error
// enrichment the operator always attaches.
type untypedErrAccessor struct {
	raw.UnsupportedAccessor
	err error
}

func (a untypedErrAccessor) Stat(context.Context, string, raw.StatArgs) (raw.StatResult, error) {
	return raw.StatResult{}, a.err
}

func TestOperatorEnrichesErrors(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	acc := untypedErrAccessor{
		UnsupportedAccessor: raw.UnsupportedAccessor{
			Meta: raw.NewMetadata(raw.SchemeMemory, "/", raw.CapRead),
		},
		err: cause,
	}
	op := stratum.NewOperator(acc).Finish()

	_, err := op.Object("a.txt").Stat(ctx)
	require.Error(t, err)
	require.Equal(t, errs.KindUnexpected, errs.KindOf(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "operation=stat")
	require.Contains(t, err.Error(), "path=a.txt")
}

// stutterStream returns (0, nil) before every payload chunk, which the
// operator's read normalization must absorb.
type stutterStream struct {
	chunks []string
	stall  bool
}

func (s *stutterStream) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	if !s.stall {
		s.stall = true
		return 0, nil
	}
	s.stall = false
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

func (s *stutterStream) Close() error { return nil }

type stutterAccessor struct {
	raw.UnsupportedAccessor
}

func (a stutterAccessor) Stat(context.Context, string, raw.StatArgs) (raw.StatResult, error) {
	return raw.StatResult{}, nil
}

func (a stutterAccessor) Read(context.Context, string, raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	return raw.ReadResult{}, &stutterStream{chunks: []string{"hello ", "world"}}, nil
}

func TestOperatorNormalizesReadStreams(t *testing.T) {
	acc := stutterAccessor{raw.UnsupportedAccessor{
		Meta: raw.NewMetadata(raw.SchemeMemory, "/", raw.CapRead),
	}}
	op := stratum.NewOperator(acc).Finish()

	r, err := op.Object("a.txt").Read(ctx)
	require.NoError(t, err)
	defer r.Close()

	// The raw stream answers (0, nil) first; the operator's stream never
	// does.
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.NotZero(t, n)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(buf[:n])+string(rest))
}

// orderAccessor tags each stat call so layer application order is observable.
type orderAccessor struct {
	raw.Accessor
	name string
	log  *[]string
}

func (a orderAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	*a.log = append(*a.log, a.name)
	return a.Accessor.Stat(ctx, path, args)
}

func TestBuilderAppliesLayersInsideOut(t *testing.T) {
	acc, err := memory.New().Build()
	require.NoError(t, err)

	var order []string
	tag := func(name string) raw.Layer {
		return raw.LayerFunc(func(inner raw.Accessor) raw.Accessor {
			return orderAccessor{Accessor: inner, name: name, log: &order}
		})
	}

	op := stratum.NewOperator(acc).
		Layer(tag("inner")).
		Layer(tag("outer")).
		Finish()

	require.NoError(t, op.Object("a.txt").WriteBytes(ctx, []byte("x")))
	_, err = op.Object("a.txt").Stat(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestOperatorCheck(t *testing.T) {
	op := newMemoryOperator(t)
	require.NoError(t, op.Check(ctx))

	// Backends without listing are only probed for metadata.
	gateless := stratum.NewOperator(panicAccessor{raw.UnsupportedAccessor{
		Meta: raw.NewMetadata(raw.SchemeMemory, "/", raw.CapRead),
	}}).Finish()
	require.NoError(t, gateless.Check(ctx))
}

func TestOperatorMetadata(t *testing.T) {
	op := newMemoryOperator(t)
	md := op.Metadata()
	require.Equal(t, raw.SchemeMemory, md.Scheme())
	require.Equal(t, "/", md.Root())
	require.True(t, md.CanRead())
	require.True(t, md.CanWrite())
	require.True(t, md.CanList())
	require.False(t, md.CanPresign())
	require.False(t, md.CanMultipart())
}

// countingAccessor tracks delete and list dispatches under the operator's
// auto-attached layers.
type countingAccessor struct {
	raw.Accessor
	deletes int
	lists   int
}

func (a *countingAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	a.deletes++
	return a.Accessor.Delete(ctx, path, args)
}

func (a *countingAccessor) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	a.lists++
	return a.Accessor.List(ctx, path, args)
}

func TestRemoveAllLeafSkipsListing(t *testing.T) {
	inner, err := memory.New().Build()
	require.NoError(t, err)
	counting := &countingAccessor{Accessor: inner}
	op := stratum.NewOperator(counting).Finish()

	require.NoError(t, op.Object("a.txt").WriteBytes(ctx, []byte("x")))
	require.NoError(t, op.Batch().RemoveAll(ctx, "a.txt"))

	require.Equal(t, 1, counting.deletes)
	require.Equal(t, 0, counting.lists)

	exists, err := op.Object("a.txt").Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRemoveAllAbsentIsNoop(t *testing.T) {
	op := newMemoryOperator(t)
	require.NoError(t, op.Batch().RemoveAll(ctx, "nothing-here.txt"))
}

func TestRemoveAllDirectory(t *testing.T) {
	op := newMemoryOperator(t)
	for _, name := range []string{"dir/a.txt", "dir/b.txt", "dir/c.txt"} {
		require.NoError(t, op.Object(name).WriteBytes(ctx, []byte("x")))
	}
	require.NoError(t, op.Object("keep.txt").WriteBytes(ctx, []byte("x")))

	require.NoError(t, op.Batch().RemoveAll(ctx, "dir/"))

	for _, name := range []string{"dir/a.txt", "dir/b.txt", "dir/c.txt"} {
		exists, err := op.Object(name).Exists(ctx)
		require.NoError(t, err)
		require.False(t, exists, name)
	}
	exists, err := op.Object("keep.txt").Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)
}

func drainWalker(t *testing.T, pager raw.Pager) []string {
	t.Helper()
	var paths []string
	for {
		page, err := pager.NextPage(ctx)
		require.NoError(t, err)
		if page == nil {
			return paths
		}
		require.NotEmpty(t, page)
		for _, e := range page {
			paths = append(paths, e.Path)
		}
	}
}

func TestBatchWalk(t *testing.T) {
	op := newMemoryOperator(t)
	want := []string{"a.txt", "b.txt", "c.txt"}
	for _, name := range want {
		require.NoError(t, op.Object(name).WriteBytes(ctx, []byte("x")))
	}

	// The walked directory itself is part of the traversal: first for
	// top-down, last for bottom-up.
	down, err := op.Batch().WalkTopDown("/")
	require.NoError(t, err)
	got := drainWalker(t, down)
	require.Equal(t, "/", got[0])
	files := append([]string(nil), got[1:]...)
	sort.Strings(files)
	require.Equal(t, want, files)

	up, err := op.Batch().WalkBottomUp("/")
	require.NoError(t, err)
	got = drainWalker(t, up)
	require.Equal(t, "/", got[len(got)-1])
	files = append([]string(nil), got[:len(got)-1]...)
	sort.Strings(files)
	require.Equal(t, want, files)
}

func TestObjectRoundTripThroughOperator(t *testing.T) {
	op := newMemoryOperator(t)
	obj := op.Object("notes/today.txt")

	payload := strings.Repeat("stratum ", 64)
	require.NoError(t, obj.WriteBytes(ctx, []byte(payload)))

	meta, err := obj.Stat(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), meta.ContentLength())

	data, err := obj.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, payload, string(data))

	window, err := obj.ReadRange(ctx, raw.RangeOf(0, 7))
	require.NoError(t, err)
	defer window.Close()
	head, err := io.ReadAll(window)
	require.NoError(t, err)
	require.Equal(t, "stratum", string(head))
}
