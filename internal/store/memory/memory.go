// Package memory is an in-process listing store with live fan-out. It backs
// headless runs, the demo server and every test that needs a store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

// Store keeps raw listing documents in memory. Snapshots are ordered by id.
type Store struct {
	mu      sync.Mutex
	docs    map[listings.ID]map[string]any
	subs    map[uint64]*subscriber
	nextSub uint64
	newID   func() listings.ID
	logger  *zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDFunc replaces the uuid generator used for new listings.
func WithIDFunc(fn func() listings.ID) Option {
	return func(s *Store) { s.newID = fn }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:  make(map[listings.ID]map[string]any),
		subs:  make(map[uint64]*subscriber),
		newID: func() listings.ID { return listings.ID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Subscribe implements store.Store. The first batch is delivered
// asynchronously, like a remote listener.
func (s *Store) Subscribe(ctx context.Context, filter store.Filter, h store.Handler) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	sub := newSubscriber(filter, h)
	s.subs[id] = sub
	sub.push(event{batch: s.snapshotLocked(filter)})

	s.logger.Debug().Uint64("subscriber", id).Bool("available_only", filter.AvailableOnly).Msg("Opened live query")
	return store.StopFunc(func() { s.unsubscribe(id) }), nil
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	if ok {
		sub.close()
		s.logger.Debug().Uint64("subscriber", id).Msg("Closed live query")
	}
}

// FetchOne implements store.Store.
func (s *Store) FetchOne(ctx context.Context, id listings.ID) (listings.Record, error) {
	if err := ctx.Err(); err != nil {
		return listings.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return listings.Record{}, errors.NewNotFoundError("listing", string(id))
	}
	return listings.Record{ID: id, Fields: maps.Clone(doc)}, nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, l listings.Listing) (listings.ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = s.newID()
	}
	if _, exists := s.docs[l.ID]; exists {
		return "", &errors.ValidationError{Field: "id", Value: l.ID, Message: errors.ErrAlreadyExists.Error()}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utc.Now()
	}
	s.docs[l.ID] = listings.Encode(l)
	s.publishLocked()
	return l.ID, nil
}

// Put stores a listing, replacing any document with the same id.
func (s *Store) Put(l listings.Listing) {
	s.PutRecord(listings.ToRecord(l))
}

// PutRecord stores raw fields as-is, which lets callers plant malformed
// documents.
func (s *Store) PutRecord(rec listings.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.ID] = maps.Clone(rec.Fields)
	s.publishLocked()
}

// Delete removes a listing. It reports whether the id existed.
func (s *Store) Delete(id listings.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	s.publishLocked()
	return true
}

// SetAvailable flips the availability flag of a listing.
func (s *Store) SetAvailable(id listings.ID, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return errors.NewNotFoundError("listing", string(id))
	}
	doc[listings.FieldAvailable] = available
	s.publishLocked()
	return nil
}

// FailSubscribers ends every live query with err, the way a dropped
// connection would.
func (s *Store) FailSubscribers(err error) {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	for _, sub := range subs {
		sub.push(event{err: err})
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.closeAfterDrain()
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Subscribers returns the number of open live queries.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) publishLocked() {
	for _, sub := range s.subs {
		sub.push(event{batch: s.snapshotLocked(sub.filter)})
	}
}

func (s *Store) snapshotLocked(filter store.Filter) listings.Batch {
	records := make([]listings.Record, 0, len(s.docs))
	for _, id := range slices.Sorted(maps.Keys(s.docs)) {
		doc := s.docs[id]
		if !filter.Match(doc) {
			continue
		}
		records = append(records, listings.Record{ID: id, Fields: maps.Clone(doc)})
	}
	return listings.NewBatch(records...)
}
