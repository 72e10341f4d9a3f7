package listings_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

func roomFields() map[string]any {
	return map[string]any{
		"title":       "Sunny room",
		"description": "Near the market",
		"price":       int64(500),
		"latitude":    -6.8,
		"longitude":   39.28,
		"address":     "Kariakoo, Dar es Salaam",
		"postedBy":    "u-1",
		"available":   true,
		"amenities":   []any{"wifi", "water"},
		"images":      []string{"a.jpg"},
		"createdAt":   int64(1700000000000),
	}
}

func TestDecode(t *testing.T) {
	l, err := listings.Decode(listings.Record{ID: "r1", Fields: roomFields()})
	require.NoError(t, err)

	assert.Equal(t, listings.ID("r1"), l.ID)
	assert.Equal(t, "Sunny room", l.Title)
	assert.Equal(t, 500.0, l.Price)
	assert.Equal(t, listings.Coordinate{Lat: -6.8, Lng: 39.28}, l.Position)
	assert.True(t, l.Available)
	assert.Equal(t, listings.IconAvailable, l.Icon())
	assert.Equal(t, []string{"wifi", "water"}, l.Amenities)
	assert.Equal(t, []string{"a.jpg"}, l.Images)
	assert.Equal(t, int64(1700000000000), l.CreatedAt.Time.UnixMilli())
}

func TestDecodeNumberKinds(t *testing.T) {
	tests := []struct {
		name  string
		price any
	}{
		{"int", 500},
		{"int64", int64(500)},
		{"float64", 500.0},
		{"json number", json.Number("500")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := roomFields()
			f["price"] = tt.price
			l, err := listings.Decode(listings.Record{ID: "r1", Fields: f})
			require.NoError(t, err)
			assert.Equal(t, 500.0, l.Price)
		})
	}
}

func TestDecodeTimestampKinds(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	f := roomFields()
	f["createdAt"] = when
	l, err := listings.Decode(listings.Record{ID: "r1", Fields: f})
	require.NoError(t, err)
	assert.True(t, l.CreatedAt.Time.Equal(when))

	delete(f, "createdAt")
	l, err = listings.Decode(listings.Record{ID: "r1", Fields: f})
	require.NoError(t, err)
	assert.True(t, l.CreatedAt.IsZero())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name   string
		id     listings.ID
		mutate func(map[string]any)
		field  string
	}{
		{"empty id", "", func(map[string]any) {}, ""},
		{"missing title", "r1", func(f map[string]any) { delete(f, "title") }, "title"},
		{"title wrong type", "r1", func(f map[string]any) { f["title"] = 7 }, "title"},
		{"missing price", "r1", func(f map[string]any) { delete(f, "price") }, "price"},
		{"price as string", "r1", func(f map[string]any) { f["price"] = "500" }, "price"},
		{"negative price", "r1", func(f map[string]any) { f["price"] = -1.0 }, "price"},
		{"missing latitude", "r1", func(f map[string]any) { delete(f, "latitude") }, "latitude"},
		{"null longitude", "r1", func(f map[string]any) { f["longitude"] = nil }, "longitude"},
		{"latitude out of range", "r1", func(f map[string]any) { f["latitude"] = 91.0 }, "latitude"},
		{"available wrong type", "r1", func(f map[string]any) { f["available"] = "yes" }, "available"},
		{"amenity wrong type", "r1", func(f map[string]any) { f["amenities"] = []any{"wifi", 3} }, "amenities"},
		{"createdAt wrong type", "r1", func(f map[string]any) { f["createdAt"] = "yesterday" }, "createdAt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := roomFields()
			tt.mutate(f)
			_, err := listings.Decode(listings.Record{ID: tt.id, Fields: f})
			require.Error(t, err)
			assert.True(t, errors.IsMalformed(err))

			var m *errors.MalformedRecordError
			require.ErrorAs(t, err, &m)
			assert.Equal(t, tt.field, m.Field)
		})
	}
}

func TestDecodeUnsetCoordinateIsNotMalformed(t *testing.T) {
	f := roomFields()
	f["latitude"] = 0.0
	f["longitude"] = 0
	l, err := listings.Decode(listings.Record{ID: "r1", Fields: f})
	require.NoError(t, err)
	assert.False(t, l.Mappable())
}

func TestEncodeRoundTrip(t *testing.T) {
	in := listings.Listing{
		ID:        "r2",
		Title:     "Studio",
		Price:     350,
		Position:  listings.Coordinate{Lat: 1, Lng: 2},
		Available: false,
		CreatedAt: utc.New(time.UnixMilli(1700000000123)),
	}
	fields := listings.Encode(in)

	assert.Equal(t, int64(1700000000123), fields["createdAt"])
	assert.Equal(t, []string{}, fields["amenities"])
	for _, name := range []string{"title", "description", "price", "latitude", "longitude",
		"address", "postedBy", "available", "amenities", "images", "createdAt"} {
		assert.Contains(t, fields, name)
	}

	out, err := listings.Decode(listings.ToRecord(in))
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Position, out.Position)
	assert.Equal(t, listings.IconOccupied, out.Icon())
	assert.Equal(t, int64(0), listings.Encode(listings.Listing{})["createdAt"])
}
