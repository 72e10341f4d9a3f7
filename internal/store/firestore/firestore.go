// Package firestore is the production listing store: a Firestore
// collection read through a live snapshot query.
package firestore

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

// Config selects the Firebase project and credentials.
type Config struct {
	ProjectID       string
	CredentialsFile string // service account JSON; ADC when empty
	CredentialsJSON []byte // takes precedence over CredentialsFile
	Collection      string // defaults to constants.ListingsCollection
}

// Store reads and writes listings in one Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
	logger     *zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open initializes a Firebase app and its Firestore client.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.NewConfigError("firebase", "project_id is required", nil)
	}

	var clientOpts []option.ClientOption
	switch {
	case len(cfg.CredentialsJSON) > 0:
		clientOpts = append(clientOpts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, errors.NewConfigError("firebase", "failed to initialize app", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.NewConfigError("firebase", "failed to open firestore client", err)
	}

	s := NewWithClient(client, cfg.Collection, opts...)
	s.logger.Info().Str("project_id", cfg.ProjectID).Str("collection", s.collection).Msg("Connected to Firestore")
	return s, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client, collection string, opts ...Option) *Store {
	if collection == "" {
		collection = constants.ListingsCollection
	}
	s := &Store{client: client, collection: collection}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	return s
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Subscribe implements store.Store. The query runs on its own goroutine
// until Stop is called, ctx ends, or the stream fails.
func (s *Store) Subscribe(ctx context.Context, filter store.Filter, h store.Handler) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := s.client.Collection(s.collection).Query
	if filter.AvailableOnly {
		q = q.Where(listings.FieldAvailable, "==", true)
	}

	ctx, cancel := context.WithCancel(ctx)
	it := q.Snapshots(ctx)
	go s.listen(ctx, it, h)

	var once sync.Once
	return store.StopFunc(func() { once.Do(cancel) }), nil
}

func (s *Store) listen(ctx context.Context, it *firestore.QuerySnapshotIterator, h store.Handler) {
	// Stop is not safe concurrently with Next, so it runs here.
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) {
				return
			}
			s.logger.Warn().Err(err).Str("collection", s.collection).Msg("Live query failed")
			h.Fail(mapError("subscribe", "", err))
			return
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.Fail(mapError("subscribe", "", err))
			return
		}
		records := make([]listings.Record, 0, len(docs))
		for _, doc := range docs {
			records = append(records, toRecord(doc.Ref.ID, doc.Data()))
		}
		if ctx.Err() != nil {
			return
		}
		h.Deliver(listings.Batch{Records: records, ReadTime: utc.New(snap.ReadTime)})
	}
}

// FetchOne implements store.Store.
func (s *Store) FetchOne(ctx context.Context, id listings.ID) (listings.Record, error) {
	doc, err := s.client.Collection(s.collection).Doc(string(id)).Get(ctx)
	if err != nil {
		return listings.Record{}, mapError("fetch", id, err)
	}
	if !doc.Exists() {
		return listings.Record{}, errors.NewNotFoundError("listing", string(id))
	}
	return toRecord(doc.Ref.ID, doc.Data()), nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, l listings.Listing) (listings.ID, error) {
	if l.ID == "" {
		l.ID = listings.ID(uuid.NewString())
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utc.Now()
	}
	if _, err := s.client.Collection(s.collection).Doc(string(l.ID)).Create(ctx, listings.Encode(l)); err != nil {
		return "", mapError("create", l.ID, err)
	}
	return l.ID, nil
}

// toRecord copies a document into a raw record.
func toRecord(id string, data map[string]any) listings.Record {
	if data == nil {
		data = map[string]any{}
	}
	return listings.Record{ID: listings.ID(id), Fields: data}
}

// mapError translates gRPC status codes into the engine's error taxonomy.
func mapError(op string, id listings.ID, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NewNotFoundError("listing", string(id))
	case codes.AlreadyExists:
		return &errors.ValidationError{Field: "id", Value: id, Message: errors.ErrAlreadyExists.Error()}
	case codes.Canceled:
		return errors.ErrCanceled
	case codes.DeadlineExceeded:
		return errors.ErrTimeout
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.NewTransportError(op, errors.NewPermissionDeniedError("firestore"))
	default:
		return errors.NewTransportError(op, err)
	}
}
