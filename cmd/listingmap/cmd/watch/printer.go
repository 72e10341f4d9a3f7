package watch

import (
	"fmt"
	"io"
	"sync"

	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// printer is a surface that writes one line per call. It numbers markers
// the same way surface.Recorder does, so its handles match the recorder
// it is mirrored beside.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	next surface.Handle
}

var _ surface.Surface = (*printer)(nil)

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) AddMarker(opts surface.MarkerOptions) surface.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.printf("+ #%d %s [%s] %s %s", p.next, opts.Title, opts.Icon, opts.Position, oneLine(opts.Snippet))
	return p.next
}

func (p *printer) UpdateMarker(h surface.Handle, opts surface.MarkerOptions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printf("~ #%d %s [%s] %s %s", h, opts.Title, opts.Icon, opts.Position, oneLine(opts.Snippet))
}

func (p *printer) RemoveMarker(h surface.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printf("- #%d", h)
}

func (p *printer) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printf("x all markers cleared")
}

func (p *printer) MoveCamera(center listings.Coordinate, zoom float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printf("@ camera %s zoom %g", center, zoom)
}

func oneLine(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '\n' {
			out[i] = ' '
		}
	}
	return string(out)
}
