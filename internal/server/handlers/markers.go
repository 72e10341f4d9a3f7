package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentstation/listingmap/internal/server/response"
	"github.com/agentstation/listingmap/pkg/surface"
)

// HandleMarkers handles GET /api/v1/markers.
// @Summary Marker snapshot
// @Description Every drawn marker, the camera and the live query state
// @Tags markers
// @Produce json
// @Success 200 {object} response.Response{data=Snapshot}
// @Router /api/v1/markers [get].
func (h *Handlers) HandleMarkers(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, h.snapshot())
}

// HandleMarkerClick handles POST /api/v1/markers/{handle}/click. A tap on
// a listing marker is consumed and publishes listing.selected; taps on
// other markers are not consumed.
// @Summary Tap a marker
// @Tags markers
// @Produce json
// @Param handle path integer true "Marker handle"
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/markers/{handle}/click [post].
func (h *Handlers) HandleMarkerClick(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("handle")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		response.BadRequest(w, "Invalid marker handle", "handle must be a positive integer, got "+strconv.Quote(raw))
		return
	}

	handle := surface.Handle(v)
	response.OK(w, map[string]any{
		"handle":   handle,
		"consumed": h.screen.OnMarkerClick(handle),
	})
}

// HandleFit handles POST /api/v1/camera/fit.
// @Summary Fit the camera to the listings
// @Tags markers
// @Produce json
// @Success 200 {object} response.Response{data=surface.Camera}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/camera/fit [post].
func (h *Handlers) HandleFit(w http.ResponseWriter, _ *http.Request) {
	cam, ok := h.screen.FitToListings()
	if !ok {
		response.Conflict(w, "Nothing to fit", "No listing markers are drawn or no map client is connected")
		return
	}
	response.OK(w, cam)
}
