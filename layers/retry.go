package layers

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// RetryLayer retries operations that failed with a temporary error, using
// exponential backoff with jitter. Permanent errors (unsupported operation,
// invalid configuration, not-found) surface immediately.
//
// Write and WriteMultipart are never retried: their source stream may have
// been partially consumed by the failed attempt, so a replay would corrupt
// the upload. Read is retried while opening the stream only; failures during
// consumption belong to the caller.
type RetryLayer struct {
	// MaxAttempts counts the first try. Values below 1 mean 3.
	MaxAttempts int
	// BaseDelay is the first backoff delay; doubled each attempt up to
	// MaxDelay. Zero values mean 100ms and 10s.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (l RetryLayer) Layer(inner raw.Accessor) raw.Accessor {
	attempts := l.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	base := l.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	max := l.MaxDelay
	if max <= 0 {
		max = 10 * time.Second
	}
	return &retryAccessor{Accessor: inner, attempts: attempts, base: base, max: max}
}

type retryAccessor struct {
	raw.Accessor
	attempts int
	base     time.Duration
	max      time.Duration
}

// retry runs fn up to attempts times, sleeping between temporary failures.
// Context cancellation stops the loop with the context's error.
func (a *retryAccessor) retry(ctx context.Context, fn func() error) error {
	delay := a.base
	var err error
	for i := 0; i < a.attempts; i++ {
		if err = fn(); err == nil || !errs.IsTemporary(err) {
			return err
		}
		if i == a.attempts-1 {
			break
		}
		// Full jitter keeps concurrent retries from synchronizing.
		sleep := time.Duration(rand.Int63n(int64(delay) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if delay > a.max {
			delay = a.max
		}
	}
	return err
}

func (a *retryAccessor) Create(ctx context.Context, path string, args raw.CreateArgs) (res raw.CreateResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.Create(ctx, path, args)
		return err
	})
	return res, err
}

func (a *retryAccessor) Read(ctx context.Context, path string, args raw.ReadArgs) (res raw.ReadResult, r io.ReadCloser, err error) {
	err = a.retry(ctx, func() error {
		res, r, err = a.Accessor.Read(ctx, path, args)
		return err
	})
	return res, r, err
}

func (a *retryAccessor) Stat(ctx context.Context, path string, args raw.StatArgs) (res raw.StatResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.Stat(ctx, path, args)
		return err
	})
	return res, err
}

func (a *retryAccessor) Delete(ctx context.Context, path string, args raw.DeleteArgs) (res raw.DeleteResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.Delete(ctx, path, args)
		return err
	})
	return res, err
}

func (a *retryAccessor) List(ctx context.Context, path string, args raw.ListArgs) (res raw.ListResult, pager raw.Pager, err error) {
	err = a.retry(ctx, func() error {
		res, pager, err = a.Accessor.List(ctx, path, args)
		return err
	})
	return res, pager, err
}

func (a *retryAccessor) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (res raw.CreateMultipartResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.CreateMultipart(ctx, path, args)
		return err
	})
	return res, err
}

func (a *retryAccessor) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (res raw.CompleteMultipartResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.CompleteMultipart(ctx, path, args)
		return err
	})
	return res, err
}

func (a *retryAccessor) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (res raw.AbortMultipartResult, err error) {
	err = a.retry(ctx, func() error {
		res, err = a.Accessor.AbortMultipart(ctx, path, args)
		return err
	})
	return res, err
}
