package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/listingmap/internal/server/response"
	"github.com/agentstation/listingmap/pkg/listings"
)

// HandleGetListing handles GET /api/v1/listings/{id}.
// @Summary Listing details
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Response{data=listings.Listing}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/listings/{id} [get].
func (h *Handlers) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.screen.Details(r.Context(), listings.ID(r.PathValue("id")))
	if err != nil {
		h.logger.Debug().Err(err).Str("listing_id", r.PathValue("id")).Msg("Listing fetch failed")
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, l)
}

// HandlePostListing handles POST /api/v1/listings. The poster's own
// callback marks the map stale.
// @Summary Post a listing
// @Tags listings
// @Accept json
// @Produce json
// @Param draft body listings.Draft true "Listing draft"
// @Success 201 {object} response.Response{data=listings.Listing}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/listings [post].
func (h *Handlers) HandlePostListing(w http.ResponseWriter, r *http.Request) {
	if h.poster == nil {
		response.NotImplemented(w, "Posting is disabled on this server")
		return
	}

	var d listings.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		response.BadRequest(w, "Invalid JSON body", err.Error())
		return
	}

	l, err := h.poster.Post(r.Context(), d)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.Created(w, l)
}
