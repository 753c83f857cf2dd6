package layers

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

const (
	labelService   = "service"
	labelOperation = "operation"
	labelError     = "error"
)

// MetricsLayer records one request counter and one latency histogram per
// operation, plus transferred bytes for the byte-carrying operations and an
// error counter labeled by error kind.
//
// All success-path handles are resolved once at construction so the hot path
// only increments pre-bound collectors; the error counter is resolved lazily
// because errors are the cold path. Request duration spans the whole logical
// operation: for reads it is flushed when the returned stream is closed, not
// when the call returns, so streaming consumption is included.
type MetricsLayer struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewMetricsLayer registers the metric families with reg (the default
// registerer when nil) and returns a layer that can wrap any number of
// accessors. Registering twice on the same registry is the caller's error,
// as with any prometheus collector.
func NewMetricsLayer(reg prometheus.Registerer) *MetricsLayer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	l := &MetricsLayer{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_requests_total",
			Help: "Total operation requests issued through the operator.",
		}, []string{labelService, labelOperation}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratum_request_duration_seconds",
			Help:    "Operation duration, including streaming consumption.",
			Buckets: prometheus.DefBuckets,
		}, []string{labelService, labelOperation}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_bytes_total",
			Help: "Bytes actually transferred by read and write operations.",
		}, []string{labelService, labelOperation}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_errors_total",
			Help: "Total failed operations, labeled by error kind.",
		}, []string{labelService, labelOperation, labelError}),
	}
	reg.MustRegister(l.requests, l.duration, l.bytes, l.errors)
	return l
}

// Layer binds the metric families to one accessor's scheme.
func (l *MetricsLayer) Layer(inner raw.Accessor) raw.Accessor {
	service := string(inner.Metadata().Scheme())

	h := &metricsHandle{layer: l, service: service}
	h.ops = make(map[raw.Operation]opMetrics, len(raw.Operations()))
	for _, op := range raw.Operations() {
		h.ops[op] = opMetrics{
			requests: l.requests.WithLabelValues(service, string(op)),
			duration: l.duration.WithLabelValues(service, string(op)),
		}
	}
	h.readBytes = l.bytes.WithLabelValues(service, string(raw.OpRead))
	h.writeBytes = l.bytes.WithLabelValues(service, string(raw.OpWrite))
	h.writePartBytes = l.bytes.WithLabelValues(service, string(raw.OpWriteMultipart))

	return &metricsAccessor{Accessor: inner, handle: h}
}

type opMetrics struct {
	requests prometheus.Counter
	duration prometheus.Observer
}

// metricsHandle holds the pre-bound collectors for one backend. It is shared
// read-only across all in-flight calls; every update target is internally
// atomic, so no locking is needed.
type metricsHandle struct {
	layer   *MetricsLayer
	service string

	ops            map[raw.Operation]opMetrics
	readBytes      prometheus.Counter
	writeBytes     prometheus.Counter
	writePartBytes prometheus.Counter
}

func (h *metricsHandle) countError(op raw.Operation, err error) {
	h.layer.errors.WithLabelValues(h.service, string(op), string(errs.KindOf(err))).Inc()
}

// observe wraps the common count-time-record pattern for calls whose
// duration ends when the call returns.
func (h *metricsHandle) observe(op raw.Operation, fn func() error) {
	m := h.ops[op]
	m.requests.Inc()
	start := time.Now()
	err := fn()
	if err != nil {
		h.countError(op, err)
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
}

type metricsAccessor struct {
	raw.Accessor
	handle *metricsHandle
}

func (a *metricsAccessor) Metadata() raw.Metadata {
	m := a.handle.ops[raw.OpMetadata]
	m.requests.Inc()
	start := time.Now()
	md := a.Accessor.Metadata()
	m.duration.Observe(time.Since(start).Seconds())
	return md
}

func (a *metricsAccessor) Create(ctx context.Context, path string, args raw.CreateArgs) (res raw.CreateResult, err error) {
	a.handle.observe(raw.OpCreate, func() error {
		res, err = a.Accessor.Create(ctx, path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	m := a.handle.ops[raw.OpRead]
	m.requests.Inc()
	start := time.Now()

	res, r, err := a.Accessor.Read(ctx, path, args)
	if err != nil {
		a.handle.countError(raw.OpRead, err)
		return res, nil, err
	}

	// Duration and byte count are flushed when the stream finishes, so the
	// metric covers the whole transfer even when the caller abandons it
	// early.
	return res, newCountingReadCloser(r, a.handle, raw.OpRead, m.duration, a.handle.readBytes, start), nil
}

func (a *metricsAccessor) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (res raw.WriteResult, err error) {
	m := a.handle.ops[raw.OpWrite]
	m.requests.Inc()

	cr := &countingReader{inner: r}
	start := time.Now()
	res, err = a.Accessor.Write(ctx, path, args, cr)
	// Bytes consumed from the source count even when the write fails
	// partway through.
	a.handle.writeBytes.Add(float64(cr.bytes))
	if err != nil {
		a.handle.countError(raw.OpWrite, err)
		return res, err
	}
	m.duration.Observe(time.Since(start).Seconds())
	return res, nil
}

func (a *metricsAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (res raw.StatResult, err error) {
	a.handle.observe(raw.OpStat, func() error {
		res, err = a.Accessor.Stat(ctx, path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (res raw.DeleteResult, err error) {
	a.handle.observe(raw.OpDelete, func() error {
		res, err = a.Accessor.Delete(ctx, path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) List(ctx context.Context, path string, args raw.ListArgs) (res raw.ListResult, pager raw.Pager, err error) {
	a.handle.observe(raw.OpList, func() error {
		res, pager, err = a.Accessor.List(ctx, path, args)
		return err
	})
	return res, pager, err
}

func (a *metricsAccessor) Presign(path string, args raw.PresignArgs) (res raw.PresignResult, err error) {
	a.handle.observe(raw.OpPresign, func() error {
		res, err = a.Accessor.Presign(path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (res raw.CreateMultipartResult, err error) {
	a.handle.observe(raw.OpCreateMultipart, func() error {
		res, err = a.Accessor.CreateMultipart(ctx, path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) WriteMultipart(ctx context.Context, path string, args raw.WriteMultipartArgs, r io.Reader) (res raw.WriteMultipartResult, err error) {
	m := a.handle.ops[raw.OpWriteMultipart]
	m.requests.Inc()

	cr := &countingReader{inner: r}
	start := time.Now()
	res, err = a.Accessor.WriteMultipart(ctx, path, args, cr)
	a.handle.writePartBytes.Add(float64(cr.bytes))
	if err != nil {
		a.handle.countError(raw.OpWriteMultipart, err)
		return res, err
	}
	m.duration.Observe(time.Since(start).Seconds())
	return res, nil
}

func (a *metricsAccessor) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (res raw.CompleteMultipartResult, err error) {
	a.handle.observe(raw.OpCompleteMultipart, func() error {
		res, err = a.Accessor.CompleteMultipart(ctx, path, args)
		return err
	})
	return res, err
}

func (a *metricsAccessor) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (res raw.AbortMultipartResult, err error) {
	a.handle.observe(raw.OpAbortMultipart, func() error {
		res, err = a.Accessor.AbortMultipart(ctx, path, args)
		return err
	})
	return res, err
}

// countingReader counts bytes pulled through a write source.
type countingReader struct {
	inner io.Reader
	bytes int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	r.bytes += int64(n)
	return n, err
}

// countingReadCloser accumulates bytes read from a stream and flushes the
// byte counter and the operation duration exactly once when the stream is
// finalized, whether it completed, failed or was abandoned early.
type countingReadCloser struct {
	inner    io.ReadCloser
	handle   *metricsHandle
	op       raw.Operation
	duration prometheus.Observer
	counter  prometheus.Counter

	start time.Time
	bytes int64
	once  sync.Once
}

func newCountingReadCloser(inner io.ReadCloser, h *metricsHandle, op raw.Operation, duration prometheus.Observer, counter prometheus.Counter, start time.Time) *countingReadCloser {
	return &countingReadCloser{
		inner:    inner,
		handle:   h,
		op:       op,
		duration: duration,
		counter:  counter,
		start:    start,
	}
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	r.bytes += int64(n)
	if err != nil && err != io.EOF {
		r.handle.countError(r.op, err)
	}
	return n, err
}

func (r *countingReadCloser) Close() error {
	err := r.inner.Close()
	r.once.Do(func() {
		r.counter.Add(float64(r.bytes))
		r.duration.Observe(time.Since(r.start).Seconds())
	})
	return err
}
