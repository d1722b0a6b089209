package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// IsTransient reports whether an error is worth retrying: throttling, server
// errors, and network hiccups. Auth failures, bad requests, and unconfigured
// providers are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusTooManyRequests:
			return true
		case se.code >= 500:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "overloaded", "connection reset", "temporarily"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithRetry runs fn with exponential backoff on transient errors.
func WithRetry(ctx context.Context, opts RetryOptions, fn func(ctx context.Context) error) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	delay := opts.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == opts.MaxAttempts {
			return lastErr
		}
		logutil.GetLogger(ctx).Warn("ai call failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
	return lastErr
}

type retryChatModel struct {
	inner IChatModel
	opts  RetryOptions
}

// NewRetryChatModel wraps a chat model with transient-error retry.
func NewRetryChatModel(inner IChatModel, opts RetryOptions) IChatModel {
	return &retryChatModel{inner: inner, opts: opts}
}

func (m *retryChatModel) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	var res *Completion
	err := WithRetry(ctx, m.opts, func(ctx context.Context) error {
		var err error
		res, err = m.inner.Complete(ctx, messages, opts)
		return err
	})
	return res, err
}

type retryEmbedder struct {
	inner IEmbedder
	opts  RetryOptions
}

func NewRetryEmbedder(inner IEmbedder, opts RetryOptions) IEmbedder {
	return &retryEmbedder{inner: inner, opts: opts}
}

func (e *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var res []float32
	err := WithRetry(ctx, e.opts, func(ctx context.Context) error {
		var err error
		res, err = e.inner.Embed(ctx, text, taskType)
		return err
	})
	return res, err
}

func (e *retryEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var res [][]float32
	err := WithRetry(ctx, e.opts, func(ctx context.Context) error {
		var err error
		res, err = e.inner.EmbedBatch(ctx, texts, taskType)
		return err
	})
	return res, err
}

func (e *retryEmbedder) ModelName() string {
	return e.inner.ModelName()
}
