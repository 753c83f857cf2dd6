package layers

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stratum-storage/stratum/raw"
)

// LoggingLayer logs every operation with structured fields: debug on
// success, warn on failure. The log stream is an observability side
// channel only; results and errors pass through unchanged.
type LoggingLayer struct {
	Logger logrus.FieldLogger
}

// NewLoggingLayer builds a logging layer; a nil logger falls back to the
// logrus standard logger.
func NewLoggingLayer(logger logrus.FieldLogger) *LoggingLayer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggingLayer{Logger: logger}
}

func (l *LoggingLayer) Layer(inner raw.Accessor) raw.Accessor {
	return &loggingAccessor{
		Accessor: inner,
		logger:   l.Logger.WithField("service", string(inner.Metadata().Scheme())),
	}
}

type loggingAccessor struct {
	raw.Accessor
	logger logrus.FieldLogger
}

func (a *loggingAccessor) log(op raw.Operation, path string, start time.Time, err error) {
	entry := a.logger.WithFields(logrus.Fields{
		"operation": string(op),
		"path":      path,
		"elapsed":   time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("operation failed")
		return
	}
	entry.Debug("operation finished")
}

func (a *loggingAccessor) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	start := time.Now()
	res, err := a.Accessor.Create(ctx, path, args)
	a.log(raw.OpCreate, path, start, err)
	return res, err
}

func (a *loggingAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	start := time.Now()
	res, r, err := a.Accessor.Read(ctx, path, args)
	a.log(raw.OpRead, path, start, err)
	return res, r, err
}

func (a *loggingAccessor) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	start := time.Now()
	res, err := a.Accessor.Write(ctx, path, args, r)
	a.log(raw.OpWrite, path, start, err)
	return res, err
}

func (a *loggingAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	start := time.Now()
	res, err := a.Accessor.Stat(ctx, path, args)
	a.log(raw.OpStat, path, start, err)
	return res, err
}

func (a *loggingAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	start := time.Now()
	res, err := a.Accessor.Delete(ctx, path, args)
	a.log(raw.OpDelete, path, start, err)
	return res, err
}

func (a *loggingAccessor) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	start := time.Now()
	res, pager, err := a.Accessor.List(ctx, path, args)
	a.log(raw.OpList, path, start, err)
	return res, pager, err
}

func (a *loggingAccessor) Presign(path string, args raw.PresignArgs) (raw.PresignResult, error) {
	start := time.Now()
	res, err := a.Accessor.Presign(path, args)
	a.log(raw.OpPresign, path, start, err)
	return res, err
}

func (a *loggingAccessor) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (raw.CreateMultipartResult, error) {
	start := time.Now()
	res, err := a.Accessor.CreateMultipart(ctx, path, args)
	a.log(raw.OpCreateMultipart, path, start, err)
	return res, err
}

func (a *loggingAccessor) WriteMultipart(ctx context.Context, path string, args raw.WriteMultipartArgs, r io.Reader) (raw.WriteMultipartResult, error) {
	start := time.Now()
	res, err := a.Accessor.WriteMultipart(ctx, path, args, r)
	a.log(raw.OpWriteMultipart, path, start, err)
	return res, err
}

func (a *loggingAccessor) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (raw.CompleteMultipartResult, error) {
	start := time.Now()
	res, err := a.Accessor.CompleteMultipart(ctx, path, args)
	a.log(raw.OpCompleteMultipart, path, start, err)
	return res, err
}

func (a *loggingAccessor) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (raw.AbortMultipartResult, error) {
	start := time.Now()
	res, err := a.Accessor.AbortMultipart(ctx, path, args)
	a.log(raw.OpAbortMultipart, path, start, err)
	return res, err
}
