package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/internal/store/memory"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

func mockApp(st *memory.Store, format string) *appcontext.Mock {
	return &appcontext.Mock{
		StoreFunc:        func(context.Context) (store.Store, error) { return st, nil },
		GeocoderFunc:     func() geocoding.Geocoder { return geocoding.DarEsSalaam() },
		OutputFormatFunc: func() string { return format },
		ScreenOptionsFunc: func(extra ...listingmap.Option) []listingmap.Option {
			return append([]listingmap.Option{listingmap.WithLogger(logging.NewNopLogger())}, extra...)
		},
	}
}

func execute(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCommand(app)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGet(t *testing.T) {
	st := memory.New()
	st.Put(listings.Listing{ID: "r1", Title: "Room in Sinza", Price: 450, Available: true,
		Address: "Sinza", Amenities: []string{"wifi"}, Position: listings.Coordinate{Lat: -6.7735, Lng: 39.2232}})

	out, err := execute(t, mockApp(st, "text"), "get", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Room in Sinza")
	assert.Contains(t, out, "450.00/month")
	assert.Contains(t, out, "amenities: wifi")

	out, err = execute(t, mockApp(st, "json"), "get", "r1")
	require.NoError(t, err)
	var l listings.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	assert.Equal(t, listings.ID("r1"), l.ID)
	assert.Equal(t, "Room in Sinza", l.Title)

	out, err = execute(t, mockApp(st, "yaml"), "get", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Room in Sinza")
	assert.NotContains(t, out, "Listing:")

	out, err = execute(t, mockApp(st, "table"), "get", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "450.00/month")
	assert.Contains(t, out, "available")

	_, err = execute(t, mockApp(st, "text"), "get", "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestPost(t *testing.T) {
	st := memory.New()
	out, err := execute(t, mockApp(st, "text"), "post",
		"--title", "Room in Sinza", "--description", "Quiet",
		"--price", "450", "--at", "-6.7735,39.2232", "--amenity", "wifi")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted ")
	assert.Contains(t, out, "address:   Sinza")
	assert.Equal(t, 1, st.Len())

	_, err = execute(t, mockApp(st, "text"), "post", "--title", "No price", "--description", "x", "--at", "-6.7735,39.2232")
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 1, st.Len())
}
