// Package layers provides composable accessor decorators: metrics, logging,
// retry, error enrichment and read-completion guarantees. Every layer
// preserves the accessor contract exactly; it may observe and annotate a
// call but never changes its observable result.
package layers

import (
	"context"
	"errors"
	"io"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// ErrorContextLayer enriches every error leaving the chain with the backend
// scheme, the operation and the path. The original kind and source chain are
// preserved; non-typed errors are promoted to Unexpected with the original
// as source.
type ErrorContextLayer struct{}

func (ErrorContextLayer) Layer(inner raw.Accessor) raw.Accessor {
	return &errCtxAccessor{Accessor: inner, scheme: inner.Metadata().Scheme()}
}

type errCtxAccessor struct {
	raw.Accessor
	scheme raw.Scheme
}

func (a *errCtxAccessor) enrich(err error, op raw.Operation, path string) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		e = errs.New(errs.KindUnexpected, "backend returned an untyped error").WithSource(err)
	}
	return e.
		WithContext("service", string(a.scheme)).
		WithContext("operation", string(op)).
		WithContext("path", path)
}

func (a *errCtxAccessor) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	res, err := a.Accessor.Create(ctx, path, args)
	return res, a.enrich(err, raw.OpCreate, path)
}

func (a *errCtxAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	res, r, err := a.Accessor.Read(ctx, path, args)
	return res, r, a.enrich(err, raw.OpRead, path)
}

func (a *errCtxAccessor) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	res, err := a.Accessor.Write(ctx, path, args, r)
	return res, a.enrich(err, raw.OpWrite, path)
}

func (a *errCtxAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	res, err := a.Accessor.Stat(ctx, path, args)
	return res, a.enrich(err, raw.OpStat, path)
}

func (a *errCtxAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	res, err := a.Accessor.Delete(ctx, path, args)
	return res, a.enrich(err, raw.OpDelete, path)
}

func (a *errCtxAccessor) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	res, pager, err := a.Accessor.List(ctx, path, args)
	if err != nil {
		return res, nil, a.enrich(err, raw.OpList, path)
	}
	return res, &errCtxPager{inner: pager, acc: a, path: path}, nil
}

func (a *errCtxAccessor) Presign(path string, args raw.PresignArgs) (raw.PresignResult, error) {
	res, err := a.Accessor.Presign(path, args)
	return res, a.enrich(err, raw.OpPresign, path)
}

func (a *errCtxAccessor) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (raw.CreateMultipartResult, error) {
	res, err := a.Accessor.CreateMultipart(ctx, path, args)
	return res, a.enrich(err, raw.OpCreateMultipart, path)
}

func (a *errCtxAccessor) WriteMultipart(ctx context.Context, path string, args raw.WriteMultipartArgs, r io.Reader) (raw.WriteMultipartResult, error) {
	res, err := a.Accessor.WriteMultipart(ctx, path, args, r)
	return res, a.enrich(err, raw.OpWriteMultipart, path)
}

func (a *errCtxAccessor) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (raw.CompleteMultipartResult, error) {
	res, err := a.Accessor.CompleteMultipart(ctx, path, args)
	return res, a.enrich(err, raw.OpCompleteMultipart, path)
}

func (a *errCtxAccessor) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (raw.AbortMultipartResult, error) {
	res, err := a.Accessor.AbortMultipart(ctx, path, args)
	return res, a.enrich(err, raw.OpAbortMultipart, path)
}

type errCtxPager struct {
	inner raw.Pager
	acc   *errCtxAccessor
	path  string
}

func (p *errCtxPager) NextPage(ctx context.Context) ([]raw.Entry, error) {
	page, err := p.inner.NextPage(ctx)
	if err != nil {
		return nil, p.acc.enrich(err, raw.OpList, p.path)
	}
	return page, nil
}
