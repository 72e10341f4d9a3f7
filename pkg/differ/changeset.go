// Package differ compares two listing sets and reports what was added,
// updated and removed, with a field-level breakdown of each update.
package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/listingmap/pkg/listings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     // Persisted field name, or "position" for the coordinate pair
	OldValue string     // Previous value (string representation)
	NewValue string     // New value (string representation)
	Type     ChangeType // Type of change
}

// ListingUpdate represents an update to a listing present in both sets.
type ListingUpdate struct {
	ID       listings.ID
	Existing listings.Listing
	New      listings.Listing
	Changes  []FieldChange
	Moved    float64 // metres between old and new position, zero when unmoved
}

// Has reports whether the update touched the given field.
func (u ListingUpdate) Has(path string) bool {
	for _, c := range u.Changes {
		if c.Path == path {
			return true
		}
	}
	return false
}

// Changeset represents all changes between two listing sets.
type Changeset struct {
	Added   []listings.Listing
	Updated []ListingUpdate
	Removed []listings.Listing
	Summary ChangesetSummary
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Added        int
	Updated      int
	Removed      int
	TotalChanges int
}

func calculateSummary(c *Changeset) ChangesetSummary {
	return ChangesetSummary{
		Added:        len(c.Added),
		Updated:      len(c.Updated),
		Removed:      len(c.Removed),
		TotalChanges: len(c.Added) + len(c.Updated) + len(c.Removed),
	}
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// String returns a one-line summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}
	var parts []string
	if n := len(c.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(c.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(c.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	return fmt.Sprintf("Listings: %s (Total: %d changes)", strings.Join(parts, ", "), c.Summary.TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset to w.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	if c.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if len(c.Added) > 0 {
		fmt.Fprintf(w, "\n➕ Added (%d):\n", len(c.Added))
		for _, l := range c.Added {
			fmt.Fprintf(w, "  • %s %q at %s\n", l.ID, l.Title, l.Position)
		}
	}

	if len(c.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated (%d):\n", len(c.Updated))
		for _, u := range c.Updated {
			fmt.Fprintf(w, "  • %s:\n", u.ID)
			for _, change := range u.Changes {
				fmt.Fprintf(w, "    - %s: %s → %s\n", change.Path, change.OldValue, change.NewValue)
			}
		}
	}

	if len(c.Removed) > 0 {
		fmt.Fprintf(w, "\n⚠️  Removed (%d):\n", len(c.Removed))
		for _, l := range c.Removed {
			fmt.Fprintf(w, "  • %s %q\n", l.ID, l.Title)
		}
	}
}

// ApplyStrategy represents which parts of a changeset to keep.
type ApplyStrategy string

const (
	// ApplyAll keeps every change including removals.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditive keeps additions and updates, never removals.
	ApplyAdditive ApplyStrategy = "additive"

	// ApplyUpdatesOnly keeps only updates to existing listings.
	ApplyUpdatesOnly ApplyStrategy = "updates-only"
)

// Filter returns the subset of the changeset selected by strategy.
func (c *Changeset) Filter(strategy ApplyStrategy) *Changeset {
	filtered := &Changeset{}

	switch strategy {
	case ApplyAll:
		return c
	case ApplyAdditive:
		filtered.Added = c.Added
		filtered.Updated = c.Updated
	case ApplyUpdatesOnly:
		filtered.Updated = c.Updated
	}

	filtered.Summary = calculateSummary(filtered)
	return filtered
}
