package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mmynk/splitcheck/internal/metrics"
)

const (
	// DefaultMaxRetries is the retry budget after the first attempt.
	DefaultMaxRetries = 1
	// DefaultBackoff is the first retry delay; it doubles per attempt.
	DefaultBackoff = 500 * time.Millisecond

	defaultMIMEType = "image/jpeg"
)

// ErrExtractionFailed wraps the last attempt error once retries are exhausted.
var ErrExtractionFailed = errors.New("failed to process receipt")

// Extractor turns receipt images into detected items.
type Extractor struct {
	model      Model
	limiter    Limiter
	maxRetries uint64
	backoff    time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLimiter gates every extraction through l.
func WithLimiter(l Limiter) Option {
	return func(e *Extractor) { e.limiter = l }
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.maxRetries = uint64(n)
		}
	}
}

// WithBackoff sets the first retry delay.
func WithBackoff(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// WithTimeout bounds each model call. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor backed by model.
func NewExtractor(model Model, opts ...Option) *Extractor {
	e := &Extractor{
		model:      model,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "ocr")
	return e
}

// ExtractItems reads the product lines of a receipt image.
//
// A call over the rate limit fails with a *RateLimitError before the model is
// contacted. Otherwise the whole request is retried with exponential backoff;
// after the last attempt the error wraps ErrExtractionFailed and the last
// underlying error. Items with a blank name or a negative price are dropped.
func (e *Extractor) ExtractItems(ctx context.Context, image []byte, mimeType string) ([]DetectedItem, error) {
	if e.limiter != nil {
		decision, err := e.limiter.Allow(ctx)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			metrics.OCRRateLimited.Inc()
			return nil, &RateLimitError{ResetIn: decision.ResetIn}
		}
	}

	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	var (
		attempt int
		lastErr error
	)
	items, err := retry.DoValue(ctx, e.schedule(), func(ctx context.Context) ([]DetectedItem, error) {
		attempt++
		items, err := e.attempt(ctx, image, mimeType)
		if err != nil {
			lastErr = err
			e.logger.Warn("Extraction attempt failed", "attempt", attempt, "error", err)
			return nil, retry.RetryableError(err)
		}
		return items, nil
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		e.logger.Error("All extraction attempts failed", "attempts", attempt, "error", lastErr)
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, lastErr)
	}

	valid := keepValid(items)
	e.logger.Info("Receipt extracted", "items", len(valid), "dropped", len(items)-len(valid), "attempts", attempt)
	return valid, nil
}

// schedule yields the retry delays: the base backoff, doubling per retry,
// for at most maxRetries retries.
func (e *Extractor) schedule() retry.Backoff {
	return retry.WithMaxRetries(e.maxRetries, retry.NewExponential(e.backoff))
}

func (e *Extractor) attempt(ctx context.Context, image []byte, mimeType string) ([]DetectedItem, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := e.model.Generate(ctx, image, mimeType, ExtractionPrompt)
	if err != nil {
		metrics.OCRAttempts.WithLabelValues("upstream").Inc()
		return nil, err
	}

	items, err := ParseResponse(text)
	if err != nil {
		metrics.OCRAttempts.WithLabelValues("invalid").Inc()
		return nil, err
	}

	metrics.OCRAttempts.WithLabelValues("ok").Inc()
	return items, nil
}
