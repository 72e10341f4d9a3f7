// Package subscription owns the live listing query of one screen. It opens
// and releases the query as the screen becomes visible or hidden, retries
// after transport errors, and feeds every batch, in order, to a single
// reconciliation worker.
package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/reconciler"
)

// Sink applies snapshot batches. *reconciler.Reconciler is a Sink.
type Sink interface {
	Reconcile(ctx context.Context, batch listings.Batch) (*reconciler.Result, error)
}

type job struct {
	gen   uint64
	batch listings.Batch
}

// Manager is the subscription state machine of one screen.
//
// Every opened query gets a new generation. Callbacks carrying an older
// generation arrive after the query was released and are ignored.
type Manager struct {
	store  store.Store
	sink   Sink
	opts   *options
	logger *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan job
	done   chan struct{}

	// applied is the newest generation reconciled so far. Only the worker
	// touches it.
	applied uint64

	mu        sync.Mutex
	state     State
	gen       uint64
	sub       store.Subscription
	visible   bool
	refresh   bool
	destroyed bool
	attempt   int
	retry     *time.Timer
	lastErr   error
	pending   []Transition
	retries   []scheduledRetry
}

type scheduledRetry struct {
	attempt int
	delay   time.Duration
}

// New creates an idle Manager and starts its worker.
func New(s store.Store, sink Sink, opts ...Option) (*Manager, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if sink == nil {
		return nil, &errors.ValidationError{Field: "sink", Message: "cannot be nil"}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := logging.OrDefault(o.logger)
	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	m := &Manager{
		store:  s,
		sink:   sink,
		opts:   o,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan job, o.bufferSize),
		done:   make(chan struct{}),
	}
	go m.work()
	return m, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Generation returns the generation of the most recent query.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// LastError returns the most recent transport error.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// RefreshRequested reports whether a resume will resubscribe.
func (m *Manager) RefreshRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

// Visible is called when the screen comes to the foreground. It opens the
// query from Idle, from Failed, and from Paused when a refresh was
// requested. It is a no-op while a query is held.
func (m *Manager) Visible() error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return errors.ErrInactive
	}
	m.visible = true
	open := false
	switch m.state {
	case Idle:
		open = true
	case Failed:
		m.stopRetryLocked()
		m.attempt = 0
		open = true
	case Paused:
		if m.refresh {
			m.refresh = false
			open = true
		} else {
			m.logger.Debug().Msg("Resumed without refresh; keeping markers")
		}
	}
	m.unlockAndNotify()

	if !open {
		return nil
	}
	err := m.open()
	if errors.Is(err, errors.ErrAlreadySubscribed) {
		return nil
	}
	return err
}

// Subscribe opens the query now. It returns ErrAlreadySubscribed while a
// handle is held and ErrInactive after Destroy.
func (m *Manager) Subscribe() error {
	return m.open()
}

// Hidden is called when the screen leaves the foreground. A held query is
// released and the markers stay as they are.
func (m *Manager) Hidden() {
	m.mu.Lock()
	defer m.unlockAndNotify()
	if m.destroyed {
		return
	}
	m.visible = false
	m.stopRetryLocked()

	switch m.state {
	case Active:
		m.releaseLocked()
		m.setStateLocked(Paused, nil)
	case Subscribing:
		// nothing was loaded, so the next resume must load
		m.releaseLocked()
		m.refresh = true
		m.setStateLocked(Paused, nil)
	case Failed:
		m.refresh = true
		m.setStateLocked(Paused, nil)
	}
}

// RequestRefresh marks the markers stale so the next resume resubscribes.
// A held query already tracks changes, so the flag is ignored then.
func (m *Manager) RequestRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.state.Holding() {
		return
	}
	m.refresh = true
}

// Destroy releases the query and stops the worker. It is terminal: the
// state returns to Idle and every later call is a no-op.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.visible = false
	m.stopRetryLocked()
	m.releaseLocked()
	m.setStateLocked(Idle, nil)
	m.cancel()
	close(m.done)
	m.unlockAndNotify()
}

// open starts a new generation and subscribes. The store is called
// without holding the lock.
func (m *Manager) open() error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return errors.ErrInactive
	}
	if m.state.Holding() {
		m.mu.Unlock()
		return errors.ErrAlreadySubscribed
	}
	m.gen++
	gen := m.gen
	m.setStateLocked(Subscribing, nil)
	m.unlockAndNotify()

	m.logger.Debug().Uint64("generation", gen).Msg("Opening live query")
	sub, err := m.store.Subscribe(m.ctx, m.opts.filter, store.Handler{
		OnBatch: func(b listings.Batch) { m.onBatch(gen, b) },
		OnError: func(err error) { m.onError(gen, err) },
	})

	m.mu.Lock()
	if gen != m.gen || m.destroyed {
		m.mu.Unlock()
		if sub != nil {
			sub.Stop()
		}
		return nil
	}
	if err != nil {
		err = errors.WrapTransport("subscribe", err)
		m.failLocked(err)
		m.unlockAndNotify()
		m.report(err)
		return err
	}
	m.sub = sub
	m.unlockAndNotify()
	return nil
}

func (m *Manager) onBatch(gen uint64, b listings.Batch) {
	m.mu.Lock()
	if gen != m.gen || !m.state.Holding() {
		m.mu.Unlock()
		m.logger.Debug().Uint64("generation", gen).Msg("Ignoring batch from released query")
		return
	}
	if m.state == Subscribing {
		m.attempt = 0
		m.setStateLocked(Active, nil)
	}
	m.unlockAndNotify()

	select {
	case m.queue <- job{gen: gen, batch: b}:
	case <-m.done:
	}
}

func (m *Manager) onError(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || !m.state.Holding() {
		m.mu.Unlock()
		return
	}
	if !errors.IsTransport(err) {
		err = errors.NewTransportError("subscribe", err)
	}
	m.releaseLocked()
	m.failLocked(err)
	m.unlockAndNotify()
	m.report(err)
}

// failLocked enters Failed and schedules a retry while visible.
func (m *Manager) failLocked(err error) {
	m.lastErr = err
	m.setStateLocked(Failed, err)
	m.logger.Warn().Err(err).Uint64("generation", m.gen).Msg("Live query failed; keeping markers")

	if !m.visible {
		return
	}
	if m.opts.maxRetries > 0 && m.attempt >= m.opts.maxRetries {
		m.logger.Error().Int("attempts", m.attempt).Msg("Giving up on live query")
		return
	}
	delay := backoff(m.opts.retryBase, m.opts.retryMax, m.attempt)
	m.attempt++
	gen := m.gen
	m.retry = time.AfterFunc(delay, func() { m.retryOpen(gen) })
	m.retries = append(m.retries, scheduledRetry{attempt: m.attempt, delay: delay})
}

func (m *Manager) retryOpen(gen uint64) {
	m.mu.Lock()
	ok := !m.destroyed && m.visible && m.state == Failed && m.gen == gen
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.open(); err != nil && !errors.IsTransport(err) {
		m.logger.Debug().Err(err).Msg("Retry skipped")
	}
}

// backoff doubles base per attempt up to maxDelay.
func backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func (m *Manager) report(err error) {
	if m.opts.onError != nil {
		m.opts.onError(err)
	}
}

// releaseLocked stops the held query and invalidates its generation.
func (m *Manager) releaseLocked() {
	if m.sub != nil {
		m.sub.Stop()
		m.sub = nil
	}
	m.gen++
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) setStateLocked(to State, err error) {
	if m.state == to {
		return
	}
	m.pending = append(m.pending, Transition{From: m.state, To: to, Generation: m.gen, Err: err})
	m.logger.Debug().Str("from", m.state.String()).Str("to", to.String()).Uint64("generation", m.gen).Msg("Subscription state changed")
	m.state = to
}

// unlockAndNotify releases the lock, then reports queued transitions and
// scheduled retries.
func (m *Manager) unlockAndNotify() {
	pending, retries := m.pending, m.retries
	m.pending, m.retries = nil, nil
	m.mu.Unlock()
	if m.opts.onState != nil {
		for _, t := range pending {
			m.opts.onState(t)
		}
	}
	if m.opts.onRetry != nil {
		for _, r := range retries {
			m.opts.onRetry(r.attempt, r.delay)
		}
	}
}

// work applies batches one at a time, in arrival order.
func (m *Manager) work() {
	for {
		select {
		case <-m.done:
			return
		case j := <-m.queue:
			m.apply(j)
		}
	}
}

// apply reconciles one batch. Batches queued before a pause or failure
// are still applied; only teardown discards them. A batch from an older
// generation than one already applied is stale: it can reach the queue
// late when its query was replaced while it was being handed over.
func (m *Manager) apply(j job) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return
	}
	if j.gen < m.applied {
		m.logger.Debug().Uint64("generation", j.gen).Uint64("applied", m.applied).Msg("Dropping batch superseded by a newer query")
		return
	}
	m.applied = j.gen

	ctx := logging.WithGeneration(m.ctx, j.gen)
	res, err := m.sink.Reconcile(ctx, j.batch)
	if err != nil {
		if !errors.Is(err, errors.ErrInactive) && !errors.Is(err, context.Canceled) {
			m.logger.Error().Err(err).Uint64("generation", j.gen).Msg("Failed to apply batch")
		}
		return
	}
	if m.opts.onResult != nil {
		m.opts.onResult(res)
	}
}
