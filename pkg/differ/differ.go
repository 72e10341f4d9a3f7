package differ

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agentstation/listingmap/pkg/listings"
)

// PathPosition names the combined latitude/longitude change.
const PathPosition = "position"

// Differ handles change detection between listing sets.
type Differ interface {
	// Listings compares two id-keyed listing sets.
	Listings(existing, updated map[listings.ID]listings.Listing) *Changeset
}

type differ struct {
	ignoreFields      map[string]bool
	movementThreshold float64
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Listings compares two listing sets and returns changes sorted by id.
func (diff *differ) Listings(existing, updated map[listings.ID]listings.Listing) *Changeset {
	changeset := &Changeset{
		Added:   []listings.Listing{},
		Updated: []ListingUpdate{},
		Removed: []listings.Listing{},
	}

	for id, next := range updated {
		prev, exists := existing[id]
		if !exists {
			changeset.Added = append(changeset.Added, next)
			continue
		}
		if update := diff.listing(prev, next); update != nil {
			changeset.Updated = append(changeset.Updated, *update)
		}
	}

	for id, prev := range existing {
		if _, exists := updated[id]; !exists {
			changeset.Removed = append(changeset.Removed, prev)
		}
	}

	sortChangeset(changeset)
	changeset.Summary = calculateSummary(changeset)
	return changeset
}

func (diff *differ) listing(existing, updated listings.Listing) *ListingUpdate {
	changes := []FieldChange{}
	add := func(path, oldValue, newValue string) {
		if oldValue == newValue || diff.ignoreFields[path] {
			return
		}
		changes = append(changes, FieldChange{
			Path:     path,
			OldValue: oldValue,
			NewValue: newValue,
			Type:     ChangeTypeUpdate,
		})
	}

	add(listings.FieldTitle, existing.Title, updated.Title)
	if existing.Description != updated.Description {
		// shown shortened; a change past the cut still counts
		oldDesc, newDesc := truncateString(existing.Description, 50), truncateString(updated.Description, 50)
		if oldDesc == newDesc {
			oldDesc, newDesc = existing.Description, updated.Description
		}
		add(listings.FieldDescription, oldDesc, newDesc)
	}
	add(listings.FieldPrice, formatPrice(existing.Price), formatPrice(updated.Price))
	add(listings.FieldAddress, existing.Address, updated.Address)
	add(listings.FieldPostedBy, existing.PostedBy, updated.PostedBy)
	add(listings.FieldAvailable, strconv.FormatBool(existing.Available), strconv.FormatBool(updated.Available))
	if !slices.Equal(existing.Amenities, updated.Amenities) {
		add(listings.FieldAmenities, strings.Join(existing.Amenities, ","), strings.Join(updated.Amenities, ","))
	}
	if !slices.Equal(existing.Images, updated.Images) {
		add(listings.FieldImages, fmt.Sprintf("%d images", len(existing.Images)), fmt.Sprintf("%d images", len(updated.Images)))
	}
	if !existing.CreatedAt.Time.Equal(updated.CreatedAt.Time) {
		add(listings.FieldCreatedAt, formatMillis(existing), formatMillis(updated))
	}

	var moved float64
	if existing.Position != updated.Position && !diff.ignoreFields[PathPosition] {
		moved = existing.Position.DistanceTo(updated.Position)
		if moved >= diff.movementThreshold {
			add(PathPosition, existing.Position.String(), updated.Position.String())
		} else {
			moved = 0
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return &ListingUpdate{
		ID:       existing.ID,
		Existing: existing,
		New:      updated,
		Changes:  changes,
		Moved:    moved,
	}
}

func sortChangeset(changeset *Changeset) {
	sort.Slice(changeset.Added, func(i, j int) bool {
		return changeset.Added[i].ID < changeset.Added[j].ID
	})
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].ID < changeset.Updated[j].ID
	})
	sort.Slice(changeset.Removed, func(i, j int) bool {
		return changeset.Removed[i].ID < changeset.Removed[j].ID
	})
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func formatMillis(l listings.Listing) string {
	if l.CreatedAt.IsZero() {
		return "0"
	}
	return strconv.FormatInt(l.CreatedAt.Time.UnixMilli(), 10)
}

// truncateString shortens s to maxLen runes, ending in "...".
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
