// Package servicetest runs the same behavioral suite against any service.
// Each service's tests hand it a generator and get full contract coverage:
// roundtrips, range reads, listing, deletes and recursive removal.
package servicetest

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum"
	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

var ctx = context.Background()

// AccessorGen builds a fresh, empty accessor for one suite test. The
// closer releases whatever the accessor holds open.
type AccessorGen func() (acc raw.Accessor, closer func() error, err error)

type suite struct {
	*testing.T
	op *stratum.Operator
}

// RunSuite runs every suite test against accessors produced by gen.
func RunSuite(t *testing.T, gen AccessorGen) {
	st := reflect.TypeOf(&suite{})
	for i := 0; i < st.NumMethod(); i++ {
		m := st.Method(i)
		if !strings.HasPrefix(m.Name, "Test") {
			continue
		}
		acc, closer, err := gen()
		if err != nil {
			t.Fatal(err)
		}
		t.Run(strings.TrimPrefix(m.Name, "Test"), func(t *testing.T) {
			m.Func.Call([]reflect.Value{reflect.ValueOf(&suite{
				T:  t,
				op: stratum.NewOperator(acc).Finish(),
			})})
		})
		if err := closer(); err != nil {
			t.Fatal(err)
		}
	}
}

func (t *suite) listNames(path string) []string {
	pager, err := t.op.Object(path).List(ctx)
	require.NoError(t.T, err)

	var names []string
	for {
		page, err := pager.NextPage(ctx)
		require.NoError(t.T, err)
		if page == nil {
			break
		}
		require.NotEmpty(t.T, page, "pager returned an empty intermediate page")
		for _, entry := range page {
			names = append(names, entry.Path)
		}
	}
	sort.Strings(names)
	return names
}

func (t *suite) TestRoundTrip() {
	data := []byte("hello stratum")
	obj := t.op.Object("roundtrip.txt")

	require.NoError(t.T, obj.WriteBytes(ctx, data))

	got, err := obj.ReadAll(ctx)
	require.NoError(t.T, err)
	require.Equal(t.T, data, got)

	meta, err := obj.Stat(ctx)
	require.NoError(t.T, err)
	require.Equal(t.T, raw.ModeFile, meta.Mode())
	require.Equal(t.T, int64(len(data)), meta.ContentLength())
}

func (t *suite) TestOverwrite() {
	obj := t.op.Object("overwrite.txt")
	require.NoError(t.T, obj.WriteBytes(ctx, []byte("first")))
	require.NoError(t.T, obj.WriteBytes(ctx, []byte("second, longer")))

	got, err := obj.ReadAll(ctx)
	require.NoError(t.T, err)
	require.Equal(t.T, []byte("second, longer"), got)
}

func (t *suite) TestEmptyObject() {
	obj := t.op.Object("empty.txt")
	require.NoError(t.T, obj.Create(ctx))

	exists, err := obj.Exists(ctx)
	require.NoError(t.T, err)
	require.True(t.T, exists)

	got, err := obj.ReadAll(ctx)
	require.NoError(t.T, err)
	require.Empty(t.T, got)
}

func (t *suite) TestStatAbsent() {
	_, err := t.op.Object("nope.txt").Stat(ctx)
	require.Error(t.T, err)
	require.True(t.T, errs.IsObjectNotFound(err))

	exists, err := t.op.Object("nope.txt").Exists(ctx)
	require.NoError(t.T, err)
	require.False(t.T, exists)
}

func (t *suite) TestReadAbsent() {
	_, err := t.op.Object("nope.txt").ReadAll(ctx)
	require.Error(t.T, err)
	require.True(t.T, errs.IsObjectNotFound(err))
}

func (t *suite) TestDeleteAbsent() {
	require.NoError(t.T, t.op.Object("nope.txt").Delete(ctx))
}

func (t *suite) TestDelete() {
	obj := t.op.Object("gone.txt")
	require.NoError(t.T, obj.WriteBytes(ctx, []byte("x")))
	require.NoError(t.T, obj.Delete(ctx))

	exists, err := obj.Exists(ctx)
	require.NoError(t.T, err)
	require.False(t.T, exists)
}

func (t *suite) TestRangeRead() {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	obj := t.op.Object("ranged.bin")
	require.NoError(t.T, obj.WriteBytes(ctx, data))

	read := func(rng raw.BytesRange) []byte {
		rc, err := obj.ReadRange(ctx, rng)
		require.NoError(t.T, err)
		got, err := io.ReadAll(rc)
		require.NoError(t.T, err)
		require.NoError(t.T, rc.Close())
		return got
	}

	require.True(t.T, bytes.Equal(data[10:30], read(raw.RangeOf(10, 20))))
	require.True(t.T, bytes.Equal(data[40:], read(raw.RangeFrom(40))))
	require.True(t.T, bytes.Equal(data[90:], read(raw.RangeSuffix(10))))
	require.True(t.T, bytes.Equal(data, read(raw.FullRange())))
}

func (t *suite) TestList() {
	if !t.op.Metadata().CanList() {
		t.Skip("service cannot list")
	}
	for _, name := range []string{"dir/a.txt", "dir/b.txt", "dir/c.txt"} {
		require.NoError(t.T, t.op.Object(name).WriteBytes(ctx, []byte(name)))
	}

	names := t.listNames("dir/")
	require.Equal(t.T, []string{"dir/a.txt", "dir/b.txt", "dir/c.txt"}, names)
}

func (t *suite) TestPagerExhaustion() {
	if !t.op.Metadata().CanList() {
		t.Skip("service cannot list")
	}
	require.NoError(t.T, t.op.Object("dir/only.txt").WriteBytes(ctx, []byte("x")))

	pager, err := t.op.Object("dir/").List(ctx)
	require.NoError(t.T, err)
	for {
		page, err := pager.NextPage(ctx)
		require.NoError(t.T, err)
		if page == nil {
			break
		}
	}
	// Done stays done.
	for i := 0; i < 3; i++ {
		page, err := pager.NextPage(ctx)
		require.NoError(t.T, err)
		require.Nil(t.T, page)
	}
}

func (t *suite) TestRemoveAll() {
	if !t.op.Metadata().CanList() {
		t.Skip("service cannot list")
	}
	for _, name := range []string{"tree/a.txt", "tree/b.txt", "tree/c.txt"} {
		require.NoError(t.T, t.op.Object(name).WriteBytes(ctx, []byte(name)))
	}

	require.NoError(t.T, t.op.Batch().RemoveAll(ctx, "tree/"))

	for _, name := range []string{"tree/a.txt", "tree/b.txt", "tree/c.txt"} {
		exists, err := t.op.Object(name).Exists(ctx)
		require.NoError(t.T, err)
		require.False(t.T, exists, "%s survived removal", name)
	}
}

func (t *suite) TestRemoveAllLeaf() {
	require.NoError(t.T, t.op.Object("leaf.txt").WriteBytes(ctx, []byte("x")))
	require.NoError(t.T, t.op.Batch().RemoveAll(ctx, "leaf.txt"))

	exists, err := t.op.Object("leaf.txt").Exists(ctx)
	require.NoError(t.T, err)
	require.False(t.T, exists)
}

func (t *suite) TestRemoveAllAbsent() {
	require.NoError(t.T, t.op.Batch().RemoveAll(ctx, "never/was/"))
}
