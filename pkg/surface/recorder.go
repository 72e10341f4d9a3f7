package surface

import (
	"sort"
	"sync"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Recorder is an in-memory Surface. It keeps the live marker set and camera
// and records every call, which makes it the reference surface for tests
// and the state source for the HTTP marker snapshot.
type Recorder struct {
	mu      sync.Mutex
	next    Handle
	markers map[Handle]MarkerOptions
	camera  Camera
	ops     []Op
}

var _ Surface = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{markers: make(map[Handle]MarkerOptions)}
}

// AddMarker implements Surface.
func (r *Recorder) AddMarker(opts MarkerOptions) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.markers[h] = opts
	r.ops = append(r.ops, Op{Kind: OpAdd, Handle: h, Options: &opts})
	return h
}

// UpdateMarker implements Surface.
func (r *Recorder) UpdateMarker(h Handle, opts MarkerOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[h]; !ok {
		return
	}
	r.markers[h] = opts
	r.ops = append(r.ops, Op{Kind: OpUpdate, Handle: h, Options: &opts})
}

// RemoveMarker implements Surface.
func (r *Recorder) RemoveMarker(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[h]; !ok {
		return
	}
	delete(r.markers, h)
	r.ops = append(r.ops, Op{Kind: OpRemove, Handle: h})
}

// ClearAll implements Surface.
func (r *Recorder) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = make(map[Handle]MarkerOptions)
	r.ops = append(r.ops, Op{Kind: OpClear})
}

// MoveCamera implements Surface.
func (r *Recorder) MoveCamera(center listings.Coordinate, zoom float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = Camera{Center: center, Zoom: zoom}
	cam := r.camera
	r.ops = append(r.ops, Op{Kind: OpCamera, Camera: &cam})
}

// Marker returns the options of a live marker.
func (r *Recorder) Marker(h Handle) (MarkerOptions, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts, ok := r.markers[h]
	return opts, ok
}

// Markers returns the live markers keyed by handle.
func (r *Recorder) Markers() map[Handle]MarkerOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Handle]MarkerOptions, len(r.markers))
	for h, o := range r.markers {
		out[h] = o
	}
	return out
}

// Handles returns the live handles in ascending order.
func (r *Recorder) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := make([]Handle, 0, len(r.markers))
	for h := range r.markers {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// Camera returns the last camera position.
func (r *Recorder) Camera() Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

// Ops returns a copy of every recorded call.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Count returns how many calls of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps markers and camera.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}
