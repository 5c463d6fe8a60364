// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

// Validator outcomes. These are recovered locally and shown to the operator.
var (
	ErrInvalidCode      = errors.New("invalid invitation code")
	ErrGateClosed       = errors.New("gate closed")
	ErrAlreadyCheckedIn = errors.New("voter already checked in")
	ErrAlreadyVoted     = errors.New("voter already voted")
	ErrNotCheckedIn     = errors.New("voter not checked in")
)

// System failures.
var (
	ErrStoreWrite = errors.New("store write failure")
	ErrDevice     = errors.New("device failure")
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateCode        = errors.New("invitation code already registered")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrTerminalBusy         = errors.New("terminal busy with another voter")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrInvalidInput         = errors.New("invalid input")
)

// IsValidatorError reports whether err is one of the eligibility outcomes
// that should be displayed rather than escalated.
func IsValidatorError(err error) bool {
	return errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrGateClosed) ||
		errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrNotCheckedIn)
}

// ErrorCode returns the stable machine code for a domain error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrGateClosed):
		return "gate_closed"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrNotCheckedIn):
		return "not_checked_in"
	case errors.Is(err, ErrStoreWrite):
		return "store_write_failure"
	case errors.Is(err, ErrDevice):
		return "device_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateCode):
		return "duplicate_code"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrTerminalBusy):
		return "terminal_busy"
	case errors.Is(err, ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}

// ErrorMessage returns the operator-facing message for a domain error.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "Kode undangan tidak terdaftar"
	case errors.Is(err, ErrGateClosed):
		return "Pendaftaran atau pemungutan suara belum dibuka"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "Pemilih sudah melakukan check-in"
	case errors.Is(err, ErrAlreadyVoted):
		return "Pemilih sudah menggunakan hak suaranya"
	case errors.Is(err, ErrNotCheckedIn):
		return "Pemilih belum melakukan check-in"
	case errors.Is(err, ErrStoreWrite):
		return "Gagal menyimpan data, silakan hubungi panitia"
	case errors.Is(err, ErrTerminalBusy):
		return "Bilik sedang digunakan pemilih lain"
	case errors.Is(err, ErrConfirmationRequired):
		return "Tindakan ini memerlukan konfirmasi"
	}
	return err.Error()
}
