package differ_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/listings"
)

func room(id string, lat, lng, price float64) listings.Listing {
	return listings.Listing{
		ID:        listings.ID(id),
		Title:     "Room " + id,
		Price:     price,
		Position:  listings.Coordinate{Lat: lat, Lng: lng},
		Available: true,
	}
}

func set(ls ...listings.Listing) map[listings.ID]listings.Listing {
	m := make(map[listings.ID]listings.Listing, len(ls))
	for _, l := range ls {
		m[l.ID] = l
	}
	return m
}

func TestListings(t *testing.T) {
	d := differ.New()

	t.Run("empty to one", func(t *testing.T) {
		cs := d.Listings(nil, set(room("r1", 1, 1, 500)))
		require.Len(t, cs.Added, 1)
		assert.Equal(t, listings.ID("r1"), cs.Added[0].ID)
		assert.Empty(t, cs.Updated)
		assert.Empty(t, cs.Removed)
		assert.Equal(t, 1, cs.Summary.TotalChanges)
	})

	t.Run("price change is an update", func(t *testing.T) {
		cs := d.Listings(set(room("r1", 1, 1, 500)), set(room("r1", 1, 1, 600)))
		require.Len(t, cs.Updated, 1)
		u := cs.Updated[0]
		assert.True(t, u.Has("price"))
		assert.False(t, u.Has(differ.PathPosition))
		assert.Equal(t, "500", u.Changes[0].OldValue)
		assert.Equal(t, "600", u.Changes[0].NewValue)
		assert.Zero(t, u.Moved)
	})

	t.Run("identical sets produce nothing", func(t *testing.T) {
		a := set(room("r1", 1, 1, 500), room("r2", 2, 2, 700))
		cs := d.Listings(a, a)
		assert.True(t, cs.IsEmpty())
		assert.False(t, cs.HasChanges())
		assert.Equal(t, "No changes detected", cs.String())
	})

	t.Run("removal is minimal", func(t *testing.T) {
		cs := d.Listings(
			set(room("r1", 1, 1, 500), room("r2", 2, 2, 700), room("r3", 3, 3, 900)),
			set(room("r1", 1, 1, 500), room("r3", 3, 3, 900)),
		)
		require.Len(t, cs.Removed, 1)
		assert.Equal(t, listings.ID("r2"), cs.Removed[0].ID)
		assert.Empty(t, cs.Added)
		assert.Empty(t, cs.Updated)
	})

	t.Run("sorted output", func(t *testing.T) {
		cs := d.Listings(nil, set(room("c", 1, 1, 1), room("a", 1, 1, 1), room("b", 1, 1, 1)))
		ids := []listings.ID{cs.Added[0].ID, cs.Added[1].ID, cs.Added[2].ID}
		assert.Equal(t, []listings.ID{"a", "b", "c"}, ids)
	})
}

func TestListingsPosition(t *testing.T) {
	before := set(room("r1", 0, 1, 500))
	after := set(room("r1", 0, 2, 500))

	cs := differ.New().Listings(before, after)
	require.Len(t, cs.Updated, 1)
	assert.True(t, cs.Updated[0].Has(differ.PathPosition))
	assert.Greater(t, cs.Updated[0].Moved, 100_000.0)

	t.Run("below threshold", func(t *testing.T) {
		near := set(room("r1", 0, 1.00001, 500))
		cs := differ.New(differ.WithMovementThreshold(50)).Listings(before, near)
		assert.True(t, cs.IsEmpty())
	})

	t.Run("ignored", func(t *testing.T) {
		cs := differ.New(differ.WithIgnoredFields(differ.PathPosition)).Listings(before, after)
		assert.True(t, cs.IsEmpty())
	})
}

func TestListingsFieldBreakdown(t *testing.T) {
	old := room("r1", 1, 1, 500)
	next := old
	next.Title = "Renamed"
	next.Available = false
	next.Amenities = []string{"wifi"}
	next.Images = []string{"a.jpg", "b.jpg"}
	next.Description = "a very long description that will certainly be truncated by the differ"

	cs := differ.New(differ.WithIgnoredFields("description")).Listings(set(old), set(next))
	require.Len(t, cs.Updated, 1)
	u := cs.Updated[0]
	for _, path := range []string{"title", "available", "amenities", "images"} {
		assert.True(t, u.Has(path), path)
	}
	assert.False(t, u.Has("description"))
	assert.Equal(t, old, u.Existing)
	assert.Equal(t, next, u.New)
}

func TestListingsDescriptionChange(t *testing.T) {
	old := room("r1", 1, 1, 500)
	old.Description = strings.Repeat("Chumba kizuri karibu na stendi 🚌 ", 3)

	t.Run("long values are cut on a rune boundary", func(t *testing.T) {
		next := old
		next.Description = strings.Repeat("🏠 nyumba ", 10)
		cs := differ.New().Listings(set(old), set(next))
		require.Len(t, cs.Updated, 1)

		var found bool
		for _, c := range cs.Updated[0].Changes {
			if c.Path != "description" {
				continue
			}
			found = true
			for _, v := range []string{c.OldValue, c.NewValue} {
				assert.True(t, utf8.ValidString(v), v)
				assert.True(t, strings.HasSuffix(v, "..."), v)
				assert.Equal(t, 50, utf8.RuneCountInString(v))
			}
		}
		assert.True(t, found)
	})

	t.Run("change past the cut is still reported", func(t *testing.T) {
		next := old
		next.Description = old.Description + "mpya"
		cs := differ.New().Listings(set(old), set(next))
		require.Len(t, cs.Updated, 1)
		assert.True(t, cs.Updated[0].Has("description"))
	})
}

func TestChangesetStringAndPrint(t *testing.T) {
	cs := differ.New().Listings(
		set(room("r1", 1, 1, 500), room("r2", 2, 2, 700)),
		set(room("r1", 1, 1, 550), room("r3", 3, 3, 900)),
	)
	assert.Equal(t, "Listings: 1 added, 1 updated, 1 removed (Total: 3 changes)", cs.String())

	var buf bytes.Buffer
	cs.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Added (1)")
	assert.Contains(t, out, "price: 500 → 550")
	assert.Contains(t, out, "Removed (1)")
}

func TestChangesetFilter(t *testing.T) {
	cs := differ.New().Listings(
		set(room("r1", 1, 1, 500), room("r2", 2, 2, 700)),
		set(room("r1", 1, 1, 550), room("r3", 3, 3, 900)),
	)

	assert.Same(t, cs, cs.Filter(differ.ApplyAll))

	additive := cs.Filter(differ.ApplyAdditive)
	assert.Equal(t, 2, additive.Summary.TotalChanges)
	assert.Empty(t, additive.Removed)

	updates := cs.Filter(differ.ApplyUpdatesOnly)
	assert.Equal(t, 1, updates.Summary.Updated)
	assert.Empty(t, updates.Added)
}
