package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/listings"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// Visual operations issued to the surface, in application order.
	Removed []listings.ID
	Updated []listings.ID
	Created []listings.ID

	// Changeset is the data-level diff between the previous and the new
	// listing set. An entry in Changeset.Updated only produces a visual
	// update when the rendered marker changes.
	Changeset *differ.Changeset

	// Skipped holds one MalformedRecordError per record that could not be
	// decoded.
	Skipped []error

	// Excluded lists ids whose coordinate is the unset sentinel.
	Excluded []listings.ID

	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the pass.
type ResultMetadata struct {
	ReadTime  utc.Time // snapshot time reported by the store
	StartTime time.Time
	Duration  time.Duration
	Records   int // records in the batch
	Markers   int // listing markers after the pass
}

func newResult(batch listings.Batch) *Result {
	return &Result{
		Metadata: ResultMetadata{
			ReadTime:  batch.ReadTime,
			StartTime: time.Now(),
			Records:   len(batch.Records),
		},
	}
}

func (r *Result) finalize(markers int) {
	r.Metadata.Duration = time.Since(r.Metadata.StartTime)
	r.Metadata.Markers = markers
}

// Ops returns the number of visual operations issued.
func (r *Result) Ops() int {
	return len(r.Removed) + len(r.Updated) + len(r.Created)
}

// HasChanges reports whether the pass touched the surface.
func (r *Result) HasChanges() bool {
	return r.Ops() > 0
}

// Summary returns a human-readable summary of the pass.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d created, %d updated, %d removed (%d markers)",
		len(r.Created), len(r.Updated), len(r.Removed), r.Metadata.Markers)
	if len(r.Skipped) > 0 {
		s += fmt.Sprintf(", %d malformed skipped", len(r.Skipped))
	}
	if len(r.Excluded) > 0 {
		s += fmt.Sprintf(", %d without location", len(r.Excluded))
	}
	return s
}
