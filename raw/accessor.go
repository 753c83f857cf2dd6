// Package raw holds the contract every storage backend and layer implements:
// the Accessor interface, its argument and result types, the pager and walker
// machinery, and path helpers. Callers normally use the Operator facade in
// the parent package; package raw is for backend and layer implementors.
package raw

import (
	"context"
	"io"

	"github.com/stratum-storage/stratum/errs"
)

// Accessor is the primitive polymorphic storage interface. Implementations
// must be safe for concurrent use, must return typed errors for expected
// failure modes, and must fail an operation outside their declared
// capability set with an Unsupported error before attempting any I/O.
//
// Go's goroutine model makes synchronous execution the natural asynchronous
// substrate, so one context-taking method set serves both execution modes;
// backends declaring CapBlocking guarantee the work completes inline with no
// network suspension.
type Accessor interface {
	// Metadata returns the accessor's identity and capability set. It
	// performs no I/O and must be callable before any capability check.
	Metadata() Metadata

	// Create makes a file or directory marker. Directories are addressed by
	// slash-terminated paths.
	Create(ctx context.Context, path string, args CreateArgs) (CreateResult, error)

	// Read opens a byte window of an object. The returned stream must be
	// closed by the caller exactly once.
	Read(ctx context.Context, path string, args ReadArgs) (ReadResult, io.ReadCloser, error)

	// Write stores the contents of r at path. The accessor consumes r but
	// does not close it.
	Write(ctx context.Context, path string, args WriteArgs, r io.Reader) (WriteResult, error)

	// Stat resolves the metadata of an object.
	Stat(ctx context.Context, path string, args StatArgs) (StatResult, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, path string, args DeleteArgs) (DeleteResult, error)

	// List opens a paginated cursor over one directory. The pager is owned
	// by the caller and is not resumable across calls.
	List(ctx context.Context, path string, args ListArgs) (ListResult, Pager, error)

	// Presign builds a signed request descriptor without performing I/O.
	Presign(path string, args PresignArgs) (PresignResult, error)

	// CreateMultipart starts a staged upload and returns its id.
	CreateMultipart(ctx context.Context, path string, args CreateMultipartArgs) (CreateMultipartResult, error)

	// WriteMultipart uploads one part of a staged upload.
	WriteMultipart(ctx context.Context, path string, args WriteMultipartArgs, r io.Reader) (WriteMultipartResult, error)

	// CompleteMultipart assembles previously written parts into the object.
	CompleteMultipart(ctx context.Context, path string, args CompleteMultipartArgs) (CompleteMultipartResult, error)

	// AbortMultipart discards a staged upload and its parts.
	AbortMultipart(ctx context.Context, path string, args AbortMultipartArgs) (AbortMultipartResult, error)
}

// Layer transforms an inner accessor into an outer one that implements the
// identical contract while adding behavior. Layers are applied inside-out,
// once, before first use; the composed chain is immutable thereafter.
type Layer interface {
	Layer(inner Accessor) Accessor
}

// LayerFunc adapts a plain function to the Layer interface.
type LayerFunc func(Accessor) Accessor

func (f LayerFunc) Layer(inner Accessor) Accessor { return f(inner) }

// ErrUnsupported builds the error an accessor returns for an operation
// outside its capability set.
func ErrUnsupported(scheme Scheme, op Operation) error {
	return errs.New(errs.KindUnsupported, "operation is not supported by this backend").
		WithContext("service", string(scheme)).
		WithContext("operation", string(op))
}

// UnsupportedAccessor implements every Accessor method by returning an
// Unsupported error. Backends embed it and override the operations they
// actually support, which keeps the fail-fast capability invariant intact
// for everything else.
type UnsupportedAccessor struct {
	Meta Metadata
}

func (u UnsupportedAccessor) Metadata() Metadata { return u.Meta }

func (u UnsupportedAccessor) Create(ctx context.Context, path string, args CreateArgs) (CreateResult, error) {
	return CreateResult{}, ErrUnsupported(u.Meta.Scheme(), OpCreate)
}

func (u UnsupportedAccessor) Read(ctx context.Context, path string, args ReadArgs) (ReadResult, io.ReadCloser, error) {
	return ReadResult{}, nil, ErrUnsupported(u.Meta.Scheme(), OpRead)
}

func (u UnsupportedAccessor) Write(ctx context.Context, path string, args WriteArgs, r io.Reader) (WriteResult, error) {
	return WriteResult{}, ErrUnsupported(u.Meta.Scheme(), OpWrite)
}

func (u UnsupportedAccessor) Stat(ctx context.Context, path string, args StatArgs) (StatResult, error) {
	return StatResult{}, ErrUnsupported(u.Meta.Scheme(), OpStat)
}

func (u UnsupportedAccessor) Delete(ctx context.Context, path string, args DeleteArgs) (DeleteResult, error) {
	return DeleteResult{}, ErrUnsupported(u.Meta.Scheme(), OpDelete)
}

func (u UnsupportedAccessor) List(ctx context.Context, path string, args ListArgs) (ListResult, Pager, error) {
	return ListResult{}, nil, ErrUnsupported(u.Meta.Scheme(), OpList)
}

func (u UnsupportedAccessor) Presign(path string, args PresignArgs) (PresignResult, error) {
	return PresignResult{}, ErrUnsupported(u.Meta.Scheme(), OpPresign)
}

func (u UnsupportedAccessor) CreateMultipart(ctx context.Context, path string, args CreateMultipartArgs) (CreateMultipartResult, error) {
	return CreateMultipartResult{}, ErrUnsupported(u.Meta.Scheme(), OpCreateMultipart)
}

func (u UnsupportedAccessor) WriteMultipart(ctx context.Context, path string, args WriteMultipartArgs, r io.Reader) (WriteMultipartResult, error) {
	return WriteMultipartResult{}, ErrUnsupported(u.Meta.Scheme(), OpWriteMultipart)
}

func (u UnsupportedAccessor) CompleteMultipart(ctx context.Context, path string, args CompleteMultipartArgs) (CompleteMultipartResult, error) {
	return CompleteMultipartResult{}, ErrUnsupported(u.Meta.Scheme(), OpCompleteMultipart)
}

func (u UnsupportedAccessor) AbortMultipart(ctx context.Context, path string, args AbortMultipartArgs) (AbortMultipartResult, error) {
	return AbortMultipartResult{}, ErrUnsupported(u.Meta.Scheme(), OpAbortMultipart)
}
