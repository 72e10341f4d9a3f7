package selection

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/pkg/errors"
)

// NoticeKind classifies a non-fatal notice.
type NoticeKind string

// Notice kinds.
const (
	NoticeTransport        NoticeKind = "transport"
	NoticeGeocodeNotFound  NoticeKind = "geocode_not_found"
	NoticeGeocodeError     NoticeKind = "geocode_error"
	NoticeEmptyQuery       NoticeKind = "empty_query"
	NoticePermissionDenied NoticeKind = "permission_denied"
	NoticeLocation         NoticeKind = "location"
	NoticeMalformedRecord  NoticeKind = "malformed_record"
	NoticeInfo             NoticeKind = "info"
)

// Notice is a message for the user. None of them are fatal; prior marker
// state is always kept.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Time    utc.Time   `json:"time"`
}

// NoticeFor classifies err. Unrecognised errors are transport notices.
func NoticeFor(err error) Notice {
	n := Notice{Err: err, Time: utc.Now()}
	switch {
	case errors.Is(err, geocoding.ErrEmptyQuery):
		n.Kind, n.Message = NoticeEmptyQuery, "Enter a place to search for"
	case errors.IsPermissionDenied(err) && !errors.IsTransport(err):
		n.Kind, n.Message = NoticePermissionDenied, "Location permission denied; showing the default area"
	case errors.IsMalformed(err):
		n.Kind, n.Message = NoticeMalformedRecord, "A listing could not be shown"
	case errors.IsNotFound(err):
		n.Kind, n.Message = NoticeGeocodeNotFound, "Location not found"
	case errors.IsGeocodeError(err):
		n.Kind, n.Message = NoticeGeocodeError, "Search is unavailable right now"
	default:
		n.Kind, n.Message = NoticeTransport, "Listings could not be refreshed; showing the last known results"
	}
	return n
}

// Info builds an informational notice.
func Info(msg string) Notice {
	return Notice{Kind: NoticeInfo, Message: msg, Time: utc.Now()}
}

// LocationNotice reports a failed position read.
func LocationNotice(err error) Notice {
	if errors.IsPermissionDenied(err) {
		return NoticeFor(err)
	}
	return Notice{Kind: NoticeLocation, Message: "Current location unavailable", Err: err, Time: utc.Now()}
}
