// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/danielhkuo/pilrt/auth"
	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// codeAttempts bounds retries when a generated code collides.
const codeAttempts = 5

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

type VoterHandler struct {
	store  store.Store
	prefix string
}

func NewVoterHandler(s store.Store, codePrefix string) *VoterHandler {
	return &VoterHandler{store: s, prefix: codePrefix}
}

// RegisterVoter handles POST /voters. A code is generated unless the body
// carries one from a pre-printed invitation.
func (h *VoterHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	gender := strings.ToUpper(strings.TrimSpace(req.Gender))
	if gender != "" && gender != models.GenderMale && gender != models.GenderFemale {
		badRequest(w, "gender must be L or P")
		return
	}

	voter := models.Voter{
		Name:    name,
		NIK:     strings.TrimSpace(req.NIK),
		Address: strings.TrimSpace(req.Address),
		Gender:  gender,
	}

	var (
		created models.Voter
		err     error
	)
	if req.InvitationCode != "" {
		voter.InvitationCode = auth.NormalizeCode(req.InvitationCode)
		if err := auth.ValidateCodeFormat(voter.InvitationCode, h.prefix); err != nil {
			badRequest(w, "invitation_code has the wrong format")
			return
		}
		voter.ID = auth.GenerateID()
		created, err = h.store.InsertVoter(r.Context(), voter)
	} else {
		created, err = h.insertWithGeneratedCode(r, voter)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("voter registered", "voter_id", created.ID)
	middleware.JSONResponse(w, http.StatusCreated, created)
}

func (h *VoterHandler) insertWithGeneratedCode(r *http.Request, voter models.Voter) (models.Voter, error) {
	var lastErr error
	for i := 0; i < codeAttempts; i++ {
		code, err := auth.GenerateInvitationCode(h.prefix)
		if err != nil {
			return models.Voter{}, err
		}
		voter.ID = auth.GenerateID()
		voter.InvitationCode = code

		created, err := h.store.InsertVoter(r.Context(), voter)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, models.ErrDuplicateCode) {
			return models.Voter{}, err
		}
		slog.Warn("invitation code collision, retrying", "attempt", i+1)
		lastErr = err
	}
	return models.Voter{}, lastErr
}

// ListVoters handles GET /voters, optionally filtered by ?status=.
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusRegistered, models.StatusCheckedIn, models.StatusCalled, models.StatusVoted:
	default:
		badRequest(w, "unknown status")
		return
	}

	voters, err := h.store.ListVoters(r.Context(), store.VoterFilter{Status: status})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if voters == nil {
		voters = []models.Voter{}
	}
	middleware.JSONResponse(w, http.StatusOK, voters)
}

// InvitationQR handles GET /voters/{code}/qr and renders the code as a PNG
// for printing on the invitation.
func (h *VoterHandler) InvitationQR(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		badRequest(w, "code is required")
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > maxQRSize {
			badRequest(w, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	if _, err := h.store.VoterByCode(r.Context(), code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			err = models.ErrInvalidCode
		}
		writeDomainError(w, err)
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		slog.Error("failed to render invitation QR", "error", err)
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
