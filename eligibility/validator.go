// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package eligibility decides whether a scanned invitation code may check in
// or vote.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type Validator struct {
	store store.Store
	now   func() time.Time
}

func NewValidator(s store.Store, now func() time.Time) *Validator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Validator{store: s, now: now}
}

// lookup resolves a code to a voter and reads the current gates. Lookup
// failures are not retried; the operator re-scans.
func (v *Validator) lookup(ctx context.Context, code string) (models.Voter, models.ElectionConfig, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Voter{}, models.ElectionConfig{}, models.ErrInvalidCode
	}

	voter, err := v.store.VoterByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return models.Voter{}, models.ElectionConfig{}, models.ErrInvalidCode
	}
	if err != nil {
		return models.Voter{}, models.ElectionConfig{}, fmt.Errorf("failed to look up code: %w", err)
	}

	cfg, err := v.store.Config(ctx)
	if err != nil {
		return models.Voter{}, models.ElectionConfig{}, fmt.Errorf("failed to read election config: %w", err)
	}
	return voter, cfg, nil
}

// CheckIn marks the voter present and enters them into the waiting queue.
// On ErrAlreadyCheckedIn the existing voter record is returned unchanged.
func (v *Validator) CheckIn(ctx context.Context, code string) (models.Voter, error) {
	voter, cfg, err := v.lookup(ctx, code)
	if err != nil {
		return models.Voter{}, err
	}
	if !cfg.IsRegistrationOpen {
		return models.Voter{}, models.ErrGateClosed
	}
	if voter.IsPresent {
		return voter, models.ErrAlreadyCheckedIn
	}

	flipped, err := v.store.MarkPresent(ctx, voter.ID, v.now())
	if err != nil {
		return models.Voter{}, err
	}

	updated, err := v.store.VoterByID(ctx, voter.ID)
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to reload voter: %w", err)
	}
	if !flipped {
		// Another station checked this voter in between our read and write.
		return updated, models.ErrAlreadyCheckedIn
	}

	slog.Info("voter checked in", "voter_id", updated.ID)
	return updated, nil
}

// ForVoting validates a code at a voting terminal. It does not mutate.
func (v *Validator) ForVoting(ctx context.Context, code string) (models.Voter, error) {
	voter, cfg, err := v.lookup(ctx, code)
	if err != nil {
		return models.Voter{}, err
	}
	if !cfg.IsVotingOpen {
		return models.Voter{}, models.ErrGateClosed
	}
	if voter.HasVoted {
		return models.Voter{}, models.ErrAlreadyVoted
	}
	if !voter.IsPresent {
		return models.Voter{}, models.ErrNotCheckedIn
	}
	return voter, nil
}
