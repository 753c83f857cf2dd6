package layers_test

import (
	"context"
	"io"

	"github.com/stratum-storage/stratum/raw"
)

var ctx = context.Background()

// stubAccessor lets each test script exactly one behavior per operation and
// records how often it was hit.
type stubAccessor struct {
	raw.UnsupportedAccessor

	statCalls int
	statFn    func() (raw.StatResult, error)

	readCalls int
	readFn    func() (raw.ReadResult, io.ReadCloser, error)

	writeCalls int
	writeFn    func(r io.Reader) (raw.WriteResult, error)

	deleteCalls int
	deleteFn    func() (raw.DeleteResult, error)
}

func newStubAccessor() *stubAccessor {
	return &stubAccessor{
		UnsupportedAccessor: raw.UnsupportedAccessor{
			Meta: raw.NewMetadata(raw.SchemeMemory, "/",
				raw.CapRead|raw.CapWrite|raw.CapList|raw.CapBlocking),
		},
	}
}

func (s *stubAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	s.statCalls++
	if s.statFn != nil {
		return s.statFn()
	}
	return raw.StatResult{Meta: raw.NewObjectMetadata(raw.ModeFile)}, nil
}

func (s *stubAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	s.readCalls++
	if s.readFn != nil {
		return s.readFn()
	}
	return raw.ReadResult{}, io.NopCloser(nil), nil
}

func (s *stubAccessor) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	s.writeCalls++
	if s.writeFn != nil {
		return s.writeFn(r)
	}
	return raw.WriteResult{}, nil
}

func (s *stubAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	s.deleteCalls++
	if s.deleteFn != nil {
		return s.deleteFn()
	}
	return raw.DeleteResult{}, nil
}
