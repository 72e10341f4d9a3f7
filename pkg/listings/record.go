package listings

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/listingmap/pkg/errors"
)

// Persisted field names. These are part of the stored schema and must not
// change.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldAddress     = "address"
	FieldPostedBy    = "postedBy"
	FieldAvailable   = "available"
	FieldAmenities   = "amenities"
	FieldImages      = "images"
	FieldCreatedAt   = "createdAt"
)

// Record is one raw document from a store snapshot: its id plus the stored
// fields, before validation.
type Record struct {
	ID     ID             `json:"id" yaml:"id"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// Batch is the complete result set of a live query at one moment. It
// replaces every earlier batch for the same query.
type Batch struct {
	Records  []Record
	ReadTime utc.Time
}

// NewBatch builds a batch stamped with the current time.
func NewBatch(records ...Record) Batch {
	return Batch{Records: records, ReadTime: utc.Now()}
}

// Decode validates a raw record and converts it to a Listing. Any missing
// required field or wrongly typed value yields a MalformedRecordError.
func Decode(rec Record) (Listing, error) {
	if rec.ID == "" {
		return Listing{}, errors.NewMalformedRecordError("", "", "empty id")
	}
	d := decoder{id: string(rec.ID), fields: rec.Fields}

	l := Listing{ID: rec.ID}
	l.Title = d.requiredString(FieldTitle)
	l.Price = d.requiredNumber(FieldPrice)
	l.Position.Lat = d.requiredNumber(FieldLatitude)
	l.Position.Lng = d.requiredNumber(FieldLongitude)
	l.Description = d.optionalString(FieldDescription)
	l.Address = d.optionalString(FieldAddress)
	l.PostedBy = d.optionalString(FieldPostedBy)
	l.Available = d.optionalBool(FieldAvailable)
	l.Amenities = d.optionalStrings(FieldAmenities)
	l.Images = d.optionalStrings(FieldImages)
	l.CreatedAt = d.optionalTime(FieldCreatedAt)

	if d.err != nil {
		return Listing{}, d.err
	}
	if l.Price < 0 {
		return Listing{}, errors.NewMalformedRecordError(d.id, FieldPrice, "is negative")
	}
	if !l.Position.Valid() {
		return Listing{}, errors.NewMalformedRecordError(d.id, FieldLatitude, "is out of range")
	}
	return l, nil
}

// Encode converts a listing to the persisted field map.
func Encode(l Listing) map[string]any {
	var created int64
	if !l.CreatedAt.IsZero() {
		created = l.CreatedAt.Time.UnixMilli()
	}
	return map[string]any{
		FieldTitle:       l.Title,
		FieldDescription: l.Description,
		FieldPrice:       l.Price,
		FieldLatitude:    l.Position.Lat,
		FieldLongitude:   l.Position.Lng,
		FieldAddress:     l.Address,
		FieldPostedBy:    l.PostedBy,
		FieldAvailable:   l.Available,
		FieldAmenities:   nonNil(l.Amenities),
		FieldImages:      nonNil(l.Images),
		FieldCreatedAt:   created,
	}
}

// ToRecord encodes l as a raw record.
func ToRecord(l Listing) Record {
	return Record{ID: l.ID, Fields: Encode(l)}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// decoder accumulates the first field error so Decode reads top to bottom.
type decoder struct {
	id     string
	fields map[string]any
	err    error
}

func (d *decoder) fail(field, reason string) {
	if d.err == nil {
		d.err = errors.NewMalformedRecordError(d.id, field, reason)
	}
}

func (d *decoder) requiredString(field string) string {
	v, ok := d.fields[field]
	if !ok || v == nil {
		d.fail(field, "is missing")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(field, fmt.Sprintf("has type %T, want string", v))
	}
	return s
}

func (d *decoder) optionalString(field string) string {
	v, ok := d.fields[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(field, fmt.Sprintf("has type %T, want string", v))
	}
	return s
}

func (d *decoder) requiredNumber(field string) float64 {
	v, ok := d.fields[field]
	if !ok || v == nil {
		d.fail(field, "is missing")
		return 0
	}
	n, ok := toFloat(v)
	if !ok {
		d.fail(field, fmt.Sprintf("has type %T, want number", v))
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		d.fail(field, "is not finite")
	}
	return n
}

func (d *decoder) optionalBool(field string) bool {
	v, ok := d.fields[field]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(field, fmt.Sprintf("has type %T, want boolean", v))
	}
	return b
}

func (d *decoder) optionalStrings(field string) []string {
	v, ok := d.fields[field]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				d.fail(field, fmt.Sprintf("has element of type %T, want string", item))
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		d.fail(field, fmt.Sprintf("has type %T, want string array", v))
		return nil
	}
}

func (d *decoder) optionalTime(field string) utc.Time {
	v, ok := d.fields[field]
	if !ok || v == nil {
		return utc.Time{}
	}
	if t, ok := v.(time.Time); ok {
		return utc.New(t)
	}
	ms, ok := toFloat(v)
	if !ok {
		d.fail(field, fmt.Sprintf("has type %T, want int64 milliseconds", v))
		return utc.Time{}
	}
	if ms == 0 {
		return utc.Time{}
	}
	return utc.New(time.UnixMilli(int64(ms)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
