package grid

import (
	"log/slog"
	"time"
)

// RetryPolicy bounds the retries of position writes. Cell edits and deletes
// are never retried automatically.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// DefaultConcurrency caps the number of in-flight requests of one bulk
// operation.
const DefaultConcurrency = 8

type options struct {
	logger      *slog.Logger
	notifier    Notifier
	progress    *Progress
	retry       RetryPolicy
	concurrency int
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		retry:       DefaultRetryPolicy,
		concurrency: DefaultConcurrency,
	}
}

// Option configures a Table or a Syncer.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier sets where failure notices go. Defaults to a LogNotifier on
// the configured logger.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithProgress shares a progress value, e.g. with a CLI renderer. Defaults
// to a private one.
func WithProgress(p *Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

// WithRetry sets the retry policy for position writes.
func WithRetry(p RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithConcurrency caps in-flight requests per bulk operation.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	if o.progress == nil {
		o.progress = NewProgress()
	}
	return o
}
