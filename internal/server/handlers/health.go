package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/listingmap/internal/server/response"
	"github.com/agentstation/listingmap/internal/subscription"
)

// HandleHealth handles GET /api/v1/health.
// @Summary Health check
// @Description Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "listingmap",
		"version": "v1",
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HandleReady handles GET /api/v1/ready. The server is not ready while the
// live listing query is failing.
// @Summary Readiness check
// @Description Readiness probe including the live query state
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	state := h.screen.State()
	if state == subscription.Failed {
		response.ServiceUnavailable(w, "Live listing query failed; retrying")
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"subscription":      state.String(),
		"markers":           len(h.screen.Markers()),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
