package handlers

import (
	"net/http"

	"github.com/agentstation/listingmap/internal/server/response"
)

// HandleGeocode handles GET /api/v1/geocode?q=. A hit places the search
// marker and recenters every connected map; it needs at least one.
// @Summary Search for a place
// @Tags geocode
// @Produce json
// @Param q query string true "Free-text place"
// @Success 200 {object} response.Response{data=geocoding.Place}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/geocode [get].
func (h *Handlers) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	place, err := h.screen.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, place)
}

// HandleClearSearch handles DELETE /api/v1/geocode.
// @Summary Remove the search marker
// @Tags geocode
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/geocode [delete].
func (h *Handlers) HandleClearSearch(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{"cleared": h.screen.ClearSearch()})
}
