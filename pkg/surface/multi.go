package surface

import (
	"sync"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Multi mirrors every call onto several surfaces. The handle returned to
// the caller is the primary surface's handle; handles of the other surfaces
// are tracked internally.
type Multi struct {
	mu        sync.Mutex
	primary   Surface
	mirrors   []Surface
	mirrorIDs map[Handle][]Handle
}

var _ Surface = (*Multi)(nil)

// NewMulti returns a surface that forwards to primary and every mirror.
func NewMulti(primary Surface, mirrors ...Surface) *Multi {
	return &Multi{
		primary:   primary,
		mirrors:   mirrors,
		mirrorIDs: make(map[Handle][]Handle),
	}
}

// AddMarker implements Surface.
func (m *Multi) AddMarker(opts MarkerOptions) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.primary.AddMarker(opts)
	ids := make([]Handle, len(m.mirrors))
	for i, s := range m.mirrors {
		ids[i] = s.AddMarker(opts)
	}
	m.mirrorIDs[h] = ids
	return h
}

// UpdateMarker implements Surface.
func (m *Multi) UpdateMarker(h Handle, opts MarkerOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.UpdateMarker(h, opts)
	for i, id := range m.mirrorIDs[h] {
		m.mirrors[i].UpdateMarker(id, opts)
	}
}

// RemoveMarker implements Surface.
func (m *Multi) RemoveMarker(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.RemoveMarker(h)
	for i, id := range m.mirrorIDs[h] {
		m.mirrors[i].RemoveMarker(id)
	}
	delete(m.mirrorIDs, h)
}

// ClearAll implements Surface.
func (m *Multi) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.ClearAll()
	for _, s := range m.mirrors {
		s.ClearAll()
	}
	m.mirrorIDs = make(map[Handle][]Handle)
}

// MoveCamera implements Surface.
func (m *Multi) MoveCamera(center listings.Coordinate, zoom float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.MoveCamera(center, zoom)
	for _, s := range m.mirrors {
		s.MoveCamera(center, zoom)
	}
}
