// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/pilrt/auth"
	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type CandidateHandler struct {
	store store.Store
}

func NewCandidateHandler(s store.Store) *CandidateHandler {
	return &CandidateHandler{store: s}
}

// ListCandidates handles GET /candidates
func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.store.Candidates(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// AddCandidate handles POST /candidates
func (h *CandidateHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(w, "name is required")
		return
	}

	order := req.DisplayOrder
	if order <= 0 {
		existing, err := h.store.Candidates(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		order = len(existing) + 1
	}

	c, err := h.store.InsertCandidate(r.Context(), models.Candidate{
		ID:           auth.GenerateID(),
		Name:         name,
		PhotoURL:     strings.TrimSpace(req.PhotoURL),
		DisplayOrder: order,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("candidate added", "candidate_id", c.ID, "display_order", c.DisplayOrder)
	middleware.JSONResponse(w, http.StatusCreated, c)
}
