// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/session"
)

// Upload limits for audit media
const (
	maxSnapshotBytes = 5 << 20
	maxVideoBytes    = 64 << 20
)

type TerminalHandler struct {
	registry *session.Registry
}

func NewTerminalHandler(registry *session.Registry) *TerminalHandler {
	return &TerminalHandler{registry: registry}
}

func (h *TerminalHandler) terminal(w http.ResponseWriter, r *http.Request) *session.Terminal {
	id := r.PathValue("id")
	if id == "" {
		badRequest(w, "terminal id is required")
		return nil
	}
	return h.registry.Terminal(id)
}

// writeView answers a terminal command. Commands that were refused
// without touching the terminal return an empty view and get a plain error
// body; the rest return the view with the mapped status.
func writeView(w http.ResponseWriter, view session.View, err error) {
	if err != nil && view.TerminalID == "" {
		writeDomainError(w, err)
		return
	}
	writeOutcome(w, view, err)
}

// ListTerminals handles GET /terminals
func (h *TerminalHandler) ListTerminals(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.registry.Views())
}

// GetTerminal handles GET /terminals/{id}
func (h *TerminalHandler) GetTerminal(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, t.State())
}

// Scan handles POST /terminals/{id}/scan
func (h *TerminalHandler) Scan(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	var req models.ScanRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	view, err := t.Scan(r.Context(), req.Code)
	writeView(w, view, err)
}

// Select handles POST /terminals/{id}/select
func (h *TerminalHandler) Select(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	var req models.SelectCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	view, err := t.Select(r.Context(), req.CandidateID)
	writeView(w, view, err)
}

// Confirm handles POST /terminals/{id}/confirm
func (h *TerminalHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	view, err := t.Confirm()
	writeView(w, view, err)
}

// Cancel handles POST /terminals/{id}/cancel
func (h *TerminalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	view, err := t.Cancel()
	writeView(w, view, err)
}

// Submit handles POST /terminals/{id}/submit
func (h *TerminalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	view, err := t.Submit(r.Context())
	writeView(w, view, err)
}

// Reset handles POST /terminals/{id}/reset
func (h *TerminalHandler) Reset(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, t.Reset())
}

// Snapshot handles POST /terminals/{id}/snapshot, a multipart upload with
// the image in the "image" field.
func (h *TerminalHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file is required")
		return
	}
	defer file.Close()

	audit, err := t.Snapshot(r.Context(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, models.ErrDevice) {
			// Audit capture never blocks voting; report and move on.
			middleware.JSONResponse(w, http.StatusAccepted, audit)
			return
		}
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, audit)
}

// Video handles POST /terminals/{id}/video, a multipart upload with the
// session recording in the "video" field. The upload finishes in the
// background.
func (h *TerminalHandler) Video(w http.ResponseWriter, r *http.Request) {
	t := h.terminal(w, r)
	if t == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxVideoBytes)
	file, header, err := r.FormFile("video")
	if err != nil {
		badRequest(w, "video file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read video")
		return
	}

	auditID, err := t.AttachVideo(data, header.Header.Get("Content-Type"))
	if err != nil && !errors.Is(err, models.ErrDevice) {
		writeDomainError(w, err)
		return
	}
	if err != nil {
		slog.Warn("audit video not stored", "terminal_id", t.ID(), "audit_id", auditID)
	}
	middleware.JSONResponse(w, http.StatusAccepted, map[string]string{"audit_id": auditID})
}
