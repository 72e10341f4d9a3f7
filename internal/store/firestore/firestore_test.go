package firestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "not found",
			err:  status.Error(codes.NotFound, "no document"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
				assert.Contains(t, err.Error(), "r1")
			},
		},
		{
			name: "already exists",
			err:  status.Error(codes.AlreadyExists, "exists"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidationError(err))
			},
		},
		{
			name: "deadline",
			err:  status.Error(codes.DeadlineExceeded, "slow"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTimeout(err))
			},
		},
		{
			name: "canceled",
			err:  status.Error(codes.Canceled, "bye"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsCanceled(err))
			},
		},
		{
			name: "permission",
			err:  status.Error(codes.PermissionDenied, "rules"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransport(err))
				assert.True(t, errors.IsPermissionDenied(err))
			},
		},
		{
			name: "unavailable",
			err:  status.Error(codes.Unavailable, "stream reset"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransport(err))
				assert.False(t, errors.IsNotFound(err))
				assert.Contains(t, err.Error(), "fetch")
			},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsTransport(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mapError("fetch", "r1", tt.err))
		})
	}

	assert.Nil(t, mapError("fetch", "r1", nil))
}

func TestToRecordDecodesFirestoreTypes(t *testing.T) {
	// Firestore returns integers as int64 and floats as float64.
	rec := toRecord("r1", map[string]any{
		listings.FieldTitle:     "Studio",
		listings.FieldPrice:     int64(500),
		listings.FieldLatitude:  -6.79,
		listings.FieldLongitude: 39.2,
		listings.FieldAvailable: true,
		listings.FieldAmenities: []any{"wifi"},
		listings.FieldCreatedAt: int64(1700000000000),
	})
	l, err := listings.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, listings.ID("r1"), l.ID)
	assert.Equal(t, 500.0, l.Price)
	assert.Equal(t, []string{"wifi"}, l.Amenities)
	assert.Equal(t, int64(1700000000000), l.CreatedAt.Time.UnixMilli())

	empty := toRecord("r2", nil)
	assert.NotNil(t, empty.Fields)
	_, err = listings.Decode(empty)
	assert.True(t, errors.IsMalformed(err))
}

func TestOpenRequiresProject(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "firebase", cfgErr.Component)
}
