// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/pilrt/display"
	"github.com/danielhkuo/pilrt/middleware"
)

type DisplayHandler struct {
	hub *display.Hub
}

func NewDisplayHandler(hub *display.Hub) *DisplayHandler {
	return &DisplayHandler{hub: hub}
}

// GetBoard handles GET /display for displays that poll instead of holding
// a websocket.
func (h *DisplayHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.hub.Board(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, board)
}

// Stream handles GET /display/ws
func (h *DisplayHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
