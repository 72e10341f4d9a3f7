package location

import (
	"context"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Scripted is a Platform that replays configured answers. It stands in for
// a device in tests and headless runs.
type Scripted struct {
	mu sync.Mutex

	granted        bool
	grantOnRequest bool
	last           *Fix
	fresh          []Fix
	freshErr       error

	requests   int
	lastCalls  int
	freshCalls int
}

var _ Platform = (*Scripted)(nil)

// NewScripted returns a platform with permission already granted.
func NewScripted() *Scripted {
	return &Scripted{granted: true, grantOnRequest: true}
}

// Deny revokes permission and makes requests fail.
func (s *Scripted) Deny() *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = false
	s.grantOnRequest = false
	return s
}

// GrantOnRequest revokes permission but grants the next request.
func (s *Scripted) GrantOnRequest() *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = false
	s.grantOnRequest = true
	return s
}

// WithLastKnown sets the cached fix.
func (s *Scripted) WithLastKnown(c listings.Coordinate, accuracy float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &Fix{Position: c, Accuracy: accuracy, Timestamp: utc.Now()}
	return s
}

// QueueFresh appends fresh fixes, returned in order. The final one repeats.
func (s *Scripted) QueueFresh(accuracy float64, coords ...listings.Coordinate) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range coords {
		s.fresh = append(s.fresh, Fix{Position: c, Accuracy: accuracy})
	}
	return s
}

// FailFresh makes fresh fixes fail with err.
func (s *Scripted) FailFresh(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshErr = err
	return s
}

// CheckPermission implements Platform.
func (s *Scripted) CheckPermission(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted
}

// RequestPermission implements Platform.
func (s *Scripted) RequestPermission(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.granted = s.grantOnRequest
	return s.granted, nil
}

// LastKnownFix implements Platform.
func (s *Scripted) LastKnownFix(context.Context) (Fix, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCalls++
	if s.last == nil {
		return Fix{}, false, nil
	}
	return *s.last, true, nil
}

// FreshFix implements Platform.
func (s *Scripted) FreshFix(ctx context.Context, _ Priority) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshCalls++
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	if s.freshErr != nil {
		return Fix{}, s.freshErr
	}
	if len(s.fresh) == 0 {
		return Fix{}, context.DeadlineExceeded
	}
	fix := s.fresh[0]
	if len(s.fresh) > 1 {
		s.fresh = s.fresh[1:]
	}
	fix.Timestamp = utc.Now()
	return fix, nil
}

// Calls returns how often each platform call was made.
func (s *Scripted) Calls() (requests, last, fresh int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests, s.lastCalls, s.freshCalls
}
