package subscription

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/reconciler"
)

type options struct {
	logger     *zerolog.Logger
	filter     store.Filter
	bufferSize int
	retryBase  time.Duration
	retryMax   time.Duration
	maxRetries int
	onState    func(Transition)
	onError    func(error)
	onResult   func(*reconciler.Result)
	onRetry    func(attempt int, delay time.Duration)
}

func defaultOptions() *options {
	return &options{
		filter:     store.Available,
		bufferSize: constants.ChannelBufferSize,
		retryBase:  constants.RetryBackoff,
		retryMax:   constants.MaxRetryBackoff,
		maxRetries: constants.MaxRetries,
	}
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFilter replaces the default available-only filter.
func WithFilter(f store.Filter) Option {
	return func(o *options) { o.filter = f }
}

// WithBufferSize sets the capacity of the batch queue. A full queue blocks
// the store's delivery; batches are never dropped.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithRetry sets the doubling backoff used after a transport error.
// maxRetries of zero retries forever.
func WithRetry(base, maxDelay time.Duration, maxRetries int) Option {
	return func(o *options) {
		o.retryBase = base
		o.retryMax = maxDelay
		o.maxRetries = maxRetries
	}
}

// OnStateChange is called after every transition.
func OnStateChange(fn func(Transition)) Option {
	return func(o *options) { o.onState = fn }
}

// OnError receives transport errors. Markers are left as they are.
func OnError(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// OnResult receives the outcome of every applied batch.
func OnResult(fn func(*reconciler.Result)) Option {
	return func(o *options) { o.onResult = fn }
}

// OnRetry is called when a resubscribe is scheduled.
func OnRetry(fn func(attempt int, delay time.Duration)) Option {
	return func(o *options) { o.onRetry = fn }
}
