// Package location resolves the user's position for the map: permission
// first, then the last known fix, then exactly one fresh fix.
package location

import (
	"context"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

// Priority trades accuracy against power for a fresh fix.
type Priority int

// Fix priorities.
const (
	HighAccuracy Priority = iota
	Balanced
	LowPower
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case HighAccuracy:
		return "high_accuracy"
	case Balanced:
		return "balanced"
	case LowPower:
		return "low_power"
	default:
		return "unknown"
	}
}

// Fix is one position reading.
type Fix struct {
	Position  listings.Coordinate `json:"position"`
	Accuracy  float64             `json:"accuracy"` // metres, zero when unknown
	Timestamp utc.Time            `json:"timestamp"`
	Default   bool                `json:"default"` // fallback, not a reading
}

// Covers reports whether c lies within the fix's accuracy radius.
func (f Fix) Covers(c listings.Coordinate) bool {
	return f.Position.DistanceTo(c) <= f.Accuracy
}

// Platform is the device location API.
type Platform interface {
	CheckPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) (bool, error)
	LastKnownFix(ctx context.Context) (Fix, bool, error)
	FreshFix(ctx context.Context, p Priority) (Fix, error)
}

// Provider gates location reads behind the permission flow.
type Provider struct {
	platform Platform
	fallback listings.Coordinate
	priority Priority
	logger   *zerolog.Logger

	mu     sync.Mutex
	denied bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithDefault sets the coordinate used when no fix is available.
func WithDefault(c listings.Coordinate) Option {
	return func(p *Provider) { p.fallback = c }
}

// WithPriority sets the priority of fresh fixes.
func WithPriority(pr Priority) Option {
	return func(p *Provider) { p.priority = pr }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a Provider over platform.
func NewProvider(platform Platform, opts ...Option) *Provider {
	p := &Provider{
		platform: platform,
		fallback: listings.Coordinate{Lat: constants.DefaultLatitude, Lng: constants.DefaultLongitude},
		priority: HighAccuracy,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDefault(p.logger)
	return p
}

// Default returns the fallback fix.
func (p *Provider) Default() Fix {
	return Fix{Position: p.fallback, Timestamp: utc.Now(), Default: true}
}

// Permission reports whether location may be read. After a denial the
// user is not asked again by this provider.
func (p *Provider) Permission(ctx context.Context) (bool, error) {
	if p.platform.CheckPermission(ctx) {
		return true, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.denied {
		return false, nil
	}
	granted, err := p.platform.RequestPermission(ctx)
	if err != nil {
		return false, err
	}
	if !granted {
		p.denied = true
		p.logger.Info().Msg("Location permission denied")
	}
	return granted, nil
}

// Locate returns the best available fix. Without permission it returns the
// default fix and a PermissionDeniedError. A missing last known fix
// triggers exactly one fresh fix.
func (p *Provider) Locate(ctx context.Context) (Fix, error) {
	granted, err := p.Permission(ctx)
	if err != nil {
		return p.Default(), err
	}
	if !granted {
		return p.Default(), errors.NewPermissionDeniedError(constants.LocationPermission)
	}

	last, ok, err := p.platform.LastKnownFix(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Last known fix unavailable")
	}
	if err == nil && ok {
		return last, nil
	}

	fixCtx, cancel := context.WithTimeout(ctx, constants.LocationTimeout)
	defer cancel()
	fresh, err := p.platform.FreshFix(fixCtx, p.priority)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.ErrTimeout
		}
		return p.Default(), err
	}
	return fresh, nil
}
