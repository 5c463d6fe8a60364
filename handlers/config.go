// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type ConfigHandler struct {
	store store.Store
}

func NewConfigHandler(s store.Store) *ConfigHandler {
	return &ConfigHandler{store: s}
}

// GetConfig handles GET /config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Config(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, cfg)
}

// UpdateConfig handles POST /config. Only the fields present in the body
// change.
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	cfg, err := h.store.Config(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.IsVotingOpen != nil {
		cfg.IsVotingOpen = *req.IsVotingOpen
	}
	if req.IsRegistrationOpen != nil {
		cfg.IsRegistrationOpen = *req.IsRegistrationOpen
	}
	if req.ElectionName != nil {
		name := strings.TrimSpace(*req.ElectionName)
		if name == "" {
			badRequest(w, "election_name cannot be empty")
			return
		}
		cfg.ElectionName = name
	}
	if req.Location != nil {
		cfg.Location = strings.TrimSpace(*req.Location)
	}
	if req.StartsAt != nil {
		cfg.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		cfg.EndsAt = req.EndsAt
	}
	if cfg.StartsAt != nil && cfg.EndsAt != nil && cfg.EndsAt.Before(*cfg.StartsAt) {
		badRequest(w, "ends_at must be after starts_at")
		return
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := h.store.UpsertConfig(r.Context(), cfg); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("election config updated",
		"voting_open", cfg.IsVotingOpen,
		"registration_open", cfg.IsRegistrationOpen,
	)
	middleware.JSONResponse(w, http.StatusOK, cfg)
}
