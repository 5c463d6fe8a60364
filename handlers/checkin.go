// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/pilrt/checkin"
	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
)

type CheckInHandler struct {
	desk *checkin.Desk
}

func NewCheckInHandler(desk *checkin.Desk) *CheckInHandler {
	return &CheckInHandler{desk: desk}
}

// Scan handles POST /checkin/{station}/scan. The body is the station view;
// rejections carry their mapped status and the outcome in result.outcome.
func (h *CheckInHandler) Scan(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("station")
	if stationID == "" {
		badRequest(w, "station is required")
		return
	}

	var req models.ScanRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	view, err := h.desk.Station(stationID).Scan(r.Context(), req.Code)
	if view.StationID == "" {
		// Nothing to show, e.g. a scan already in flight.
		writeDomainError(w, err)
		return
	}
	writeOutcome(w, view, err)
}

// GetStation handles GET /checkin/{station}
func (h *CheckInHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("station")
	if stationID == "" {
		badRequest(w, "station is required")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.desk.Station(stationID).View())
}

// ListStations handles GET /checkin
func (h *CheckInHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.desk.Views())
}
