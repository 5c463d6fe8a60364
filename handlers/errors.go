// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidCode), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGateClosed):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAlreadyCheckedIn),
		errors.Is(err, models.ErrAlreadyVoted),
		errors.Is(err, models.ErrNotCheckedIn),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrTerminalBusy),
		errors.Is(err, models.ErrDuplicateCode):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreWrite):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrConfirmationRequired):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDevice):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err as a JSON error body with its machine code.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	message := models.ErrorMessage(err)
	if status == http.StatusInternalServerError {
		message = "Terjadi kesalahan, silakan hubungi panitia"
	}
	middleware.ErrorResponse(w, status, models.ErrorCode(err), message)
}

// writeOutcome writes a view that carries its own outcome. Rejections keep
// the mapped status so clients can branch on it without parsing the body.
func writeOutcome(w http.ResponseWriter, view interface{}, err error) {
	middleware.JSONResponse(w, statusFor(err), view)
}

func badRequest(w http.ResponseWriter, message string) {
	middleware.ErrorResponse(w, http.StatusBadRequest, models.ErrorCode(models.ErrInvalidInput), message)
}
