// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pilrt/models"
)

// State is a voting terminal state.
type State string

const (
	StateStandby    State = "standby"
	StateSelecting  State = "selecting"
	StateConfirming State = "confirming"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
)

// View is what a terminal renders. It is a copy; mutating it has no effect
// on the terminal.
type View struct {
	TerminalID          string        `json:"terminal_id"`
	State               State         `json:"state"`
	Voter               *models.Voter `json:"voter,omitempty"`
	SelectedCandidateID string        `json:"selected_candidate_id,omitempty"`
	AuditID             string        `json:"audit_id,omitempty"`
	ErrorCode           string        `json:"error_code,omitempty"`
	Message             string        `json:"message,omitempty"`
	Repeat              bool          `json:"repeat,omitempty"`
}

// Terminal is one voting booth. It serves one voter at a time.
type Terminal struct {
	id   string
	deps *deps

	mu       sync.Mutex
	state    State
	voter    *models.Voter
	selected string
	lastErr  error
	audit    *auditTrail
	scanning bool

	// gen increments on every transition; a pending reset only fires if the
	// generation it was scheduled under is still current.
	gen   uint64
	timer *time.Timer

	latchCode string
	latchAt   time.Time
}

func newTerminal(id string, d *deps) *Terminal {
	return &Terminal{id: id, deps: d, state: StateStandby}
}

func (t *Terminal) ID() string {
	return t.id
}

func (t *Terminal) State() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

// Scan validates a code for voting. A repeated decode of the same code
// within the latch window returns the held outcome without re-validating.
func (t *Terminal) Scan(ctx context.Context, code string) (View, error) {
	code = strings.TrimSpace(code)
	now := t.deps.now()

	t.mu.Lock()
	if code != "" && code == t.latchCode && now.Sub(t.latchAt) < t.deps.opts.ScanLatchWindow {
		defer t.mu.Unlock()
		v := t.viewLocked()
		v.Repeat = true
		return v, t.lastErr
	}
	if t.scanning {
		t.mu.Unlock()
		return View{}, models.ErrTerminalBusy
	}
	switch t.state {
	case StateSelecting, StateConfirming, StateProcessing:
		t.mu.Unlock()
		return View{}, models.ErrTerminalBusy
	}
	t.scanning = true
	t.latchCode, t.latchAt = code, now
	t.mu.Unlock()

	voter, err := t.deps.validator.ForVoting(ctx, code)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanning = false
	t.transitionLocked()

	if err != nil {
		t.clearSessionLocked()
		t.lastErr = err
		logScanFailure(t.id, err)
		t.scheduleResetLocked(t.deps.opts.ResultWindow)
		return t.viewLocked(), err
	}

	t.state = StateSelecting
	t.voter = &voter
	t.selected = ""
	t.lastErr = nil
	trail := newAuditTrail(t.deps.store, models.VotingAudit{
		ID:         uuid.NewString(),
		VoterID:    voter.ID,
		TerminalID: t.id,
		CreatedAt:  now,
	})
	t.audit = trail
	t.deps.background(func(ctx context.Context) {
		trail.save(ctx, nil)
	})

	slog.Info("voter admitted to terminal", "terminal_id", t.id, "voter_id", voter.ID)
	return t.viewLocked(), nil
}

// Select holds a candidate choice. Nothing is persisted.
func (t *Terminal) Select(ctx context.Context, candidateID string) (View, error) {
	if err := t.deps.checkCandidate(ctx, candidateID); err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateSelecting {
		return View{}, t.invalidLocked("select")
	}
	t.selected = candidateID
	t.lastErr = nil
	return t.viewLocked(), nil
}

func (t *Terminal) Confirm() (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateSelecting || t.selected == "" {
		return View{}, t.invalidLocked("confirm")
	}
	t.transitionLocked()
	t.state = StateConfirming
	return t.viewLocked(), nil
}

func (t *Terminal) Cancel() (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateConfirming {
		return View{}, t.invalidLocked("cancel")
	}
	t.transitionLocked()
	t.state = StateSelecting
	return t.viewLocked(), nil
}

// Submit records the ballot and latches has_voted in one store call. On a
// write failure the terminal returns to selecting with the choice kept so
// the voter can retry without re-scanning.
func (t *Terminal) Submit(ctx context.Context) (View, error) {
	t.mu.Lock()
	if t.state != StateConfirming {
		defer t.mu.Unlock()
		return View{}, t.invalidLocked("submit")
	}
	t.transitionLocked()
	t.state = StateProcessing
	gen := t.gen
	voterID := t.voter.ID
	candidateID := t.selected
	t.mu.Unlock()

	vote, err := t.deps.store.CastVote(ctx, voterID, models.Vote{
		CandidateID: &candidateID,
		IsValid:     true,
		RecordedBy:  models.RecordedByTerminal + t.id,
	}, t.deps.now())

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		// Reset while the write was in flight.
		slog.Warn("terminal reset during submit", "terminal_id", t.id, "voter_id", voterID, "error", err)
		return t.viewLocked(), err
	}
	t.transitionLocked()

	switch {
	case errors.Is(err, models.ErrAlreadyVoted), errors.Is(err, models.ErrNotCheckedIn):
		// The voter can never vote here; drop the session.
		slog.Info("submit rejected", "terminal_id", t.id, "voter_id", voterID, "error", err)
		t.clearSessionLocked()
		t.lastErr = err
		t.scheduleResetLocked(t.deps.opts.ResultWindow)
		return t.viewLocked(), err
	case err != nil:
		slog.Error("failed to record vote", "terminal_id", t.id, "voter_id", voterID, "error", err)
		t.state = StateSelecting
		t.lastErr = err
		return t.viewLocked(), err
	}

	t.state = StateSuccess
	t.lastErr = nil
	t.scheduleResetLocked(t.deps.opts.SuccessWindow)

	slog.Info("vote recorded", "terminal_id", t.id, "vote_id", vote.ID)
	return t.viewLocked(), nil
}

// Reset returns the terminal to standby from any state.
func (t *Terminal) Reset() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitionLocked()
	t.resetLocked()
	return t.viewLocked()
}

func (t *Terminal) resetLocked() {
	t.clearSessionLocked()
	t.lastErr = nil
	t.latchCode = ""
}

func (t *Terminal) clearSessionLocked() {
	t.state = StateStandby
	t.voter = nil
	t.selected = ""
	t.audit = nil
}

// transitionLocked invalidates any pending reset.
func (t *Terminal) transitionLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Terminal) scheduleResetLocked(d time.Duration) {
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		t.gen++
		t.timer = nil
		t.resetLocked()
	})
}

func (t *Terminal) invalidLocked(op string) error {
	return fmt.Errorf("%w: cannot %s in %s", models.ErrInvalidTransition, op, t.state)
}

func (t *Terminal) viewLocked() View {
	v := View{
		TerminalID:          t.id,
		State:               t.state,
		SelectedCandidateID: t.selected,
	}
	if t.voter != nil {
		voter := *t.voter
		v.Voter = &voter
	}
	if t.audit != nil {
		v.AuditID = t.audit.id()
	}
	if t.lastErr != nil {
		v.ErrorCode = models.ErrorCode(t.lastErr)
		v.Message = models.ErrorMessage(t.lastErr)
	}
	return v
}

func logScanFailure(terminalID string, err error) {
	if models.IsValidatorError(err) {
		slog.Info("scan rejected", "terminal_id", terminalID, "reason", models.ErrorCode(err))
		return
	}
	slog.Error("scan failed", "terminal_id", terminalID, "error", err)
}
