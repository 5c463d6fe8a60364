// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"io"
	"net/http"

	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/queue"
)

type QueueHandler struct {
	engine *queue.Engine
}

func NewQueueHandler(engine *queue.Engine) *QueueHandler {
	return &QueueHandler{engine: engine}
}

// GetQueue handles GET /queue
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	proj, err := h.engine.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.QueueResponse{
		Waiting: proj.Waiting,
		Called:  proj.Called,
	})
}

// CallBatch handles POST /queue/call. An empty body calls a policy-sized
// batch.
func (h *QueueHandler) CallBatch(w http.ResponseWriter, r *http.Request) {
	var req models.CallBatchRequest
	if err := parseOptionalJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if req.Count < 0 {
		badRequest(w, "count cannot be negative")
		return
	}

	result, err := h.engine.CallBatch(r.Context(), req.Count)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	called := result.Called
	if called == nil {
		called = []models.Voter{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.CallBatchResponse{
		Called: called,
		Failed: result.Failed,
		At:     result.At,
		Speech: result.Speech,
	})
}

// Recall handles POST /queue/{id}/recall
func (h *QueueHandler) Recall(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.Recall(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, v)
}

// Skip handles POST /queue/{id}/skip
func (h *QueueHandler) Skip(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.Skip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, v)
}

// MarkVoted handles POST /queue/{id}/voted. The body must carry
// {"confirm": true}.
func (h *QueueHandler) MarkVoted(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := parseOptionalJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	v, err := h.engine.MarkVoted(r.Context(), r.PathValue("id"), req.Confirm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, v)
}

// parseOptionalJSON is ParseJSONBody that accepts an empty body.
func parseOptionalJSON(r *http.Request, v interface{}) error {
	err := middleware.ParseJSONBody(r, v)
	if err == io.EOF {
		return nil
	}
	return err
}
