// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/tally"
)

type TallyHandler struct {
	tally *tally.Service
}

func NewTallyHandler(svc *tally.Service) *TallyHandler {
	return &TallyHandler{tally: svc}
}

// GetTally handles GET /tally
func (h *TallyHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	t, err := h.tally.Compute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, t)
}

// Reconcile handles GET /tally/reconcile
func (h *TallyHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.tally.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, rec)
}

// SpoilBallot handles POST /votes/spoil
func (h *TallyHandler) SpoilBallot(w http.ResponseWriter, r *http.Request) {
	var req models.SpoilBallotRequest
	if err := parseOptionalJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	v, err := h.tally.Spoil(r.Context(), req.RecordedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, v)
}

// UndoLastVote handles DELETE /votes/last?confirm=true
func (h *TallyHandler) UndoLastVote(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	v, err := h.tally.UndoLast(r.Context(), confirmed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, v)
}
