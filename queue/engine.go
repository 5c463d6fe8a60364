// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/pilrt/announce"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// Projection is the queue as every client derives it from the store.
type Projection struct {
	// Waiting is ordered by queue_timestamp ascending.
	Waiting []models.Voter `json:"waiting"`
	// Called is ordered by called_at, newest first.
	Called []models.Voter `json:"called"`
}

type CallResult struct {
	Called []models.Voter
	// Failed lists voter ids whose update failed; staff may call again.
	Failed []string
	At     time.Time
	Speech string
}

// Engine applies queue operations directly to the store. It keeps no state
// of its own: every operation re-reads the queue first.
type Engine struct {
	store     store.Store
	policy    Policy
	announcer announce.Announcer
	now       func() time.Time
}

func NewEngine(s store.Store, policy Policy, announcer announce.Announcer, now func() time.Time) *Engine {
	if announcer == nil {
		announcer = announce.Nop{}
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{store: s, policy: policy, announcer: announcer, now: now}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) Snapshot(ctx context.Context) (Projection, error) {
	waiting, err := e.store.ListVoters(ctx, store.VoterFilter{Status: models.StatusCheckedIn, OrderBy: store.OrderQueue})
	if err != nil {
		return Projection{}, fmt.Errorf("failed to load waiting queue: %w", err)
	}
	called, err := e.store.ListVoters(ctx, store.VoterFilter{Status: models.StatusCalled, OrderBy: store.OrderCalledDes})
	if err != nil {
		return Projection{}, fmt.Errorf("failed to load called queue: %w", err)
	}
	if waiting == nil {
		waiting = []models.Voter{}
	}
	if called == nil {
		called = []models.Voter{}
	}
	return Projection{Waiting: waiting, Called: called}, nil
}

// CallBatch calls the next n waiting voters (the policy batch size when
// n <= 0). Updates are applied one by one; a failed row is reported and
// left waiting.
func (e *Engine) CallBatch(ctx context.Context, n int) (CallResult, error) {
	if n <= 0 {
		n = e.policy.BatchSize
	}

	proj, err := e.Snapshot(ctx)
	if err != nil {
		return CallResult{}, err
	}

	now := e.now()
	result := CallResult{At: now}
	status := models.StatusCalled
	for _, v := range PlanCall(proj.Waiting, n) {
		err := e.store.UpdateVoter(ctx, v.ID, store.VoterPatch{Status: &status, CalledAt: &now})
		if err != nil {
			slog.Error("failed to call voter", "voter_id", v.ID, "error", err)
			result.Failed = append(result.Failed, v.ID)
			continue
		}
		v.Status = status
		t := now
		v.CalledAt = &t
		result.Called = append(result.Called, v)
	}

	if len(result.Called) == 0 {
		return result, nil
	}

	a := announce.New(announce.KindCall, result.Called, now)
	result.Speech = a.Text
	e.announce(ctx, a)

	slog.Info("batch called", "count", len(result.Called), "failed", len(result.Failed))
	return result, nil
}

// Recall re-stamps called_at for a voter already called and announces
// them again.
func (e *Engine) Recall(ctx context.Context, id string) (models.Voter, error) {
	v, err := e.store.VoterByID(ctx, id)
	if err != nil {
		return models.Voter{}, err
	}
	if v.Status != models.StatusCalled {
		return models.Voter{}, fmt.Errorf("%w: recall requires a called voter, got %s", models.ErrInvalidTransition, v.Status)
	}

	now := e.now()
	if err := e.store.UpdateVoter(ctx, id, store.VoterPatch{CalledAt: &now}); err != nil {
		return models.Voter{}, err
	}
	v.CalledAt = &now

	e.announce(ctx, announce.New(announce.KindRecall, []models.Voter{v}, now))
	slog.Info("voter recalled", "voter_id", id)
	return v, nil
}

// Skip demotes a called voter who did not show up back to the waiting
// queue, per the policy's reinsert rules.
func (e *Engine) Skip(ctx context.Context, id string) (models.Voter, error) {
	v, err := e.store.VoterByID(ctx, id)
	if err != nil {
		return models.Voter{}, err
	}
	if v.Status != models.StatusCalled {
		return models.Voter{}, fmt.Errorf("%w: skip requires a called voter, got %s", models.ErrInvalidTransition, v.Status)
	}

	proj, err := e.Snapshot(ctx)
	if err != nil {
		return models.Voter{}, err
	}

	patch := PlanSkip(e.policy, proj.Waiting, v, e.now())
	if err := e.store.UpdateVoter(ctx, id, patch); err != nil {
		return models.Voter{}, err
	}
	store.ApplyPatch(&v, patch)

	slog.Info("voter skipped", "voter_id", id, "skip_count", v.SkipCount)
	return v, nil
}

// MarkVoted finishes a voter in the queue. It is irreversible, so the
// caller must pass confirmed.
func (e *Engine) MarkVoted(ctx context.Context, id string, confirmed bool) (models.Voter, error) {
	if !confirmed {
		return models.Voter{}, models.ErrConfirmationRequired
	}

	v, err := e.store.VoterByID(ctx, id)
	if err != nil {
		return models.Voter{}, err
	}
	switch {
	case v.Status == models.StatusVoted:
		return v, nil
	case !v.IsPresent:
		return models.Voter{}, models.ErrNotCheckedIn
	case v.Status != models.StatusCalled && v.Status != models.StatusCheckedIn:
		return models.Voter{}, fmt.Errorf("%w: cannot mark %s voter as voted", models.ErrInvalidTransition, v.Status)
	}

	status := models.StatusVoted
	if err := e.store.UpdateVoter(ctx, id, store.VoterPatch{Status: &status}); err != nil {
		return models.Voter{}, err
	}
	v.Status = status

	slog.Info("voter marked voted", "voter_id", id)
	return v, nil
}

func (e *Engine) announce(ctx context.Context, a announce.Announcement) {
	if err := e.announcer.Announce(ctx, a); err != nil {
		slog.Warn("announcement failed", "kind", a.Kind, "error", err)
	}
}
