package services

import (
	"context"
	"errors"
	"time"

	"tripspese/internal/core"
	"tripspese/internal/metrics"
)

// storageCall runs fn under the per-call storage timeout. Failures other
// than core.ErrNotFound come back wrapped as core.ErrStorage.
func storageCall[T any](ctx context.Context, timeout time.Duration, m *metrics.Metrics, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		m.ObserveStorage(op, start, err)
		var zero T
		return zero, core.StorageError(op, err)
	}
	m.ObserveStorage(op, start, nil)
	return v, err
}
