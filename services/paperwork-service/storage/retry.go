package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/pkg/metrics"
	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
)

// RetryPolicy bounds how transient write failures are retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries a failed write three times over roughly a second.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     time.Second,
}

// Retrying wraps a Store so transient Put failures are retried with
// exponential backoff before surfacing as StorageFailure.
type Retrying struct {
	Store
	policy RetryPolicy
	logger *logrus.Logger
}

func NewRetrying(inner Store, policy RetryPolicy, logger *logrus.Logger) *Retrying {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Retrying{Store: inner, policy: policy, logger: logger}
}

func (r *Retrying) Put(ctx context.Context, key string, data []byte) error {
	attempt := 0
	op := func() error {
		attempt++
		err := r.Store.Put(ctx, key, data)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperr.ErrKeyAlreadyExists):
			// An earlier attempt may have landed before its response was lost.
			if attempt > 1 && r.sameContent(ctx, key, data) {
				return nil
			}
			return backoff.Permanent(err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		metrics.StorageRetries.WithLabelValues("put").Inc()
		r.logger.WithFields(logrus.Fields{
			"key":     key,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("artifact write failed, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, r.policy.MaxRetries), ctx), notify)
	if err == nil {
		metrics.ArtifactBytesWritten.Add(float64(len(data)))
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Wrap(apperr.KindStorageFailure, err, "write artifact %s failed after %d attempts", key, attempt)
}

func (r *Retrying) sameContent(ctx context.Context, key string, data []byte) bool {
	obj, err := r.Store.Open(ctx, key)
	if err != nil {
		return false
	}
	defer obj.Close()
	if obj.Size() != int64(len(data)) {
		return false
	}
	stored, err := io.ReadAll(obj)
	return err == nil && bytes.Equal(stored, data)
}
