package layers

import (
	"context"
	"io"
	"sync"

	"github.com/stratum-storage/stratum/raw"
)

// CompleteReadLayer normalizes read streams so that end-of-stream is never
// ambiguous: a read never returns (0, nil), a short read near the end is
// followed deterministically by io.EOF, reads after EOF keep returning
// io.EOF, and Close is safe to call more than once.
type CompleteReadLayer struct{}

func (CompleteReadLayer) Layer(inner raw.Accessor) raw.Accessor {
	return &completeReadAccessor{Accessor: inner}
}

type completeReadAccessor struct {
	raw.Accessor
}

func (a *completeReadAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	res, r, err := a.Accessor.Read(ctx, path, args)
	if err != nil {
		return res, nil, err
	}
	return res, &completeReader{inner: r}, nil
}

type completeReader struct {
	inner     io.ReadCloser
	eof       bool
	closeOnce sync.Once
	closeErr  error
}

func (r *completeReader) Read(p []byte) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := r.inner.Read(p)
		if err == io.EOF {
			r.eof = true
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
		if err != nil {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
		// (0, nil) is legal for io.Reader but ambiguous for callers; retry
		// until the stream produces bytes or terminates.
	}
}

func (r *completeReader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.inner.Close()
	})
	return r.closeErr
}
