// Package constants provides shared constants used throughout the listingmap
// engine: timeouts, retry policy, buffer sizes and map defaults.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout bounds a single geocoder round trip
	DefaultHTTPTimeout = 15 * time.Second

	// GeocodeTimeout bounds a forward or reverse lookup including cache misses
	GeocodeTimeout = 10 * time.Second

	// FetchTimeout bounds a one-shot listing fetch or create
	FetchTimeout = 10 * time.Second

	// LocationTimeout bounds a fresh device fix
	LocationTimeout = 20 * time.Second

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 10 * time.Second

	// RetryBackoff is the first delay before resubscribing after a failure
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff caps the doubling resubscribe delay
	MaxRetryBackoff = 30 * time.Second

	// FollowInterval is how often a followed device position is re-read
	FollowInterval = 5 * time.Second
)

// Limit constants
const (
	// MaxRetries is the default cap on consecutive resubscribe attempts; zero disables the cap
	MaxRetries = 0

	// ChannelBufferSize is the default buffer for batch and event channels
	ChannelBufferSize = 100

	// MaxTitleLength is the longest listing title accepted by the posting flow
	MaxTitleLength = 120

	// MaxDescriptionLength is the longest listing description accepted by the posting flow
	MaxDescriptionLength = 4096
)

// Cache constants
const (
	// GeocodeCacheTTL is how long a resolved lookup stays cached
	GeocodeCacheTTL = 24 * time.Hour

	// CacheCleanupInterval is how often expired cache entries are purged
	CacheCleanupInterval = 10 * time.Minute
)

// Map defaults
const (
	// DefaultLatitude and DefaultLongitude are used when location permission
	// is denied or no fix is available (Dar es Salaam).
	DefaultLatitude  = -6.7924
	DefaultLongitude = 39.2083

	// DefaultZoom is the camera zoom for the default coordinate
	DefaultZoom = 14.0

	// UserZoom is the camera zoom after centering on the user or a search result
	UserZoom = 15.0
)

// Collection and permission names
const (
	// ListingsCollection is the remote collection holding listings
	ListingsCollection = "rooms"

	// LocationPermission names the platform permission gating device fixes
	LocationPermission = "location"

	// AnonymousOwner is recorded as postedBy when no user is signed in
	AnonymousOwner = "anonymous"
)
