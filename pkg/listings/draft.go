package listings

import (
	"math"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
)

// AddressNotFound is stored when reverse geocoding yields nothing.
const AddressNotFound = "Address not found"

// Draft is the input of the listing creation flow.
type Draft struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       *float64    `json:"price"`
	Position    *Coordinate `json:"position"`
	Amenities   []string    `json:"amenities,omitempty"`
	Images      []string    `json:"images,omitempty"`
	PostedBy    string      `json:"postedBy,omitempty"`
}

// Validate checks the draft in form order and returns the first problem.
func (d Draft) Validate() error {
	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		return errors.NewValidationError(FieldTitle, d.Title, "is required")
	case len(title) > constants.MaxTitleLength:
		return errors.NewValidationError(FieldTitle, d.Title, "is too long")
	case strings.TrimSpace(d.Description) == "":
		return errors.NewValidationError(FieldDescription, d.Description, "is required")
	case len(d.Description) > constants.MaxDescriptionLength:
		return errors.NewValidationError(FieldDescription, len(d.Description), "is too long")
	case d.Price == nil:
		return errors.NewValidationError(FieldPrice, nil, "is required")
	case *d.Price < 0 || math.IsNaN(*d.Price) || math.IsInf(*d.Price, 0):
		return errors.NewValidationError(FieldPrice, *d.Price, "must be a non-negative number")
	case d.Position == nil || d.Position.IsUnset():
		return errors.NewValidationError("location", nil, "select a location on the map")
	case !d.Position.Valid():
		return errors.NewValidationError("location", *d.Position, "is out of range")
	}
	return nil
}

// Listing materializes a validated draft. New listings are always
// available; an empty owner is recorded as anonymous.
func (d Draft) Listing(id ID, address string, now utc.Time) Listing {
	owner := d.PostedBy
	if owner == "" {
		owner = constants.AnonymousOwner
	}
	if address == "" {
		address = AddressNotFound
	}
	var price float64
	if d.Price != nil {
		price = *d.Price
	}
	var pos Coordinate
	if d.Position != nil {
		pos = *d.Position
	}
	return Listing{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Price:       price,
		Position:    pos,
		Address:     address,
		PostedBy:    owner,
		Available:   true,
		Amenities:   d.Amenities,
		Images:      d.Images,
		CreatedAt:   now,
	}
}
