package layers_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-storage/stratum/layers"
	"github.com/stratum-storage/stratum/raw"
)

// stutterReader returns (0, nil) between real reads, the behavior the
// completion layer exists to hide.
type stutterReader struct {
	chunks [][]byte
	next   int
	turn   bool

	closes int
}

func (r *stutterReader) Read(p []byte) (int, error) {
	if r.next >= len(r.chunks) {
		return 0, io.EOF
	}
	r.turn = !r.turn
	if r.turn {
		return 0, nil
	}
	n := copy(p, r.chunks[r.next])
	r.next++
	return n, nil
}

func (r *stutterReader) Close() error {
	r.closes++
	return nil
}

func completeRead(t *testing.T, src io.ReadCloser) (io.ReadCloser, *stubAccessor) {
	t.Helper()
	stub := newStubAccessor()
	stub.readFn = func() (raw.ReadResult, io.ReadCloser, error) {
		return raw.ReadResult{}, src, nil
	}
	acc := layers.CompleteReadLayer{}.Layer(stub)

	_, rc, err := acc.Read(ctx, "a.txt", raw.ReadArgs{})
	require.NoError(t, err)
	return rc, stub
}

func TestCompleteReadNeverReturnsZeroNil(t *testing.T) {
	src := &stutterReader{chunks: [][]byte{[]byte("ab"), []byte("cd")}}
	rc, _ := completeRead(t, src)

	buf := make([]byte, 2)
	for {
		n, err := rc.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotZero(t, n, "read returned (0, nil)")
	}
}

func TestCompleteReadStickyEOF(t *testing.T) {
	src := &stutterReader{chunks: [][]byte{[]byte("x")}}
	rc, _ := completeRead(t, src)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got)

	for i := 0; i < 3; i++ {
		n, err := rc.Read(make([]byte, 4))
		require.Zero(t, n)
		require.Equal(t, io.EOF, err)
	}
}

func TestCompleteReadIdempotentClose(t *testing.T) {
	src := &stutterReader{chunks: [][]byte{[]byte("x")}}
	rc, _ := completeRead(t, src)

	require.NoError(t, rc.Close())
	require.NoError(t, rc.Close())
	require.Equal(t, 1, src.closes, "inner stream closed exactly once")
}
