// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally counts ballots and carries the staff ballot actions: spoil,
// undo last, and the has_voted reconciliation check.
package tally

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type CandidateCount struct {
	Candidate models.Candidate `json:"candidate"`
	Votes     int              `json:"votes"`
	// Share is the percentage of valid votes, formatted for display.
	Share string `json:"share"`
}

type Tally struct {
	PerCandidate []CandidateCount `json:"per_candidate"`
	Valid        int              `json:"valid"`
	Invalid      int              `json:"invalid"`
	Total        int              `json:"total"`
	Registered   int              `json:"registered"`
	Present      int              `json:"present"`
	Voted        int              `json:"voted"`
	// Turnout is voters who voted over registered voters, formatted for
	// display. Spoiled ballots have no voter and do not count.
	Turnout string `json:"turnout"`
	// Summary is a one-line Indonesian summary for the tally screen.
	Summary string `json:"summary"`
}

// Reconciliation compares ballots recorded by voting terminals with voters
// whose has_voted latch is set. A non-zero Difference needs staff attention.
type Reconciliation struct {
	TerminalBallots int  `json:"terminal_ballots"`
	StaffBallots    int  `json:"staff_ballots"`
	VotersMarked    int  `json:"voters_marked"`
	Difference      int  `json:"difference"`
	Consistent      bool `json:"consistent"`
}

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Compute(ctx context.Context) (Tally, error) {
	candidates, err := s.store.Candidates(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to load candidates: %w", err)
	}
	votes, err := s.store.ListVotes(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to load votes: %w", err)
	}
	voters, err := s.store.ListVoters(ctx, store.VoterFilter{})
	if err != nil {
		return Tally{}, fmt.Errorf("failed to load voters: %w", err)
	}
	return Count(candidates, votes, voters), nil
}

// Count builds a tally. Candidates keep their display order.
func Count(candidates []models.Candidate, votes []models.Vote, voters []models.Voter) Tally {
	perCandidate := make(map[string]int, len(candidates))
	t := Tally{PerCandidate: make([]CandidateCount, 0, len(candidates))}

	for _, v := range votes {
		t.Total++
		if !v.IsValid || v.CandidateID == nil {
			t.Invalid++
			continue
		}
		t.Valid++
		perCandidate[*v.CandidateID]++
	}

	for _, c := range candidates {
		n := perCandidate[c.ID]
		t.PerCandidate = append(t.PerCandidate, CandidateCount{
			Candidate: c,
			Votes:     n,
			Share:     percent(n, t.Valid),
		})
	}

	for _, v := range voters {
		t.Registered++
		if v.IsPresent {
			t.Present++
		}
		if v.HasVoted {
			t.Voted++
		}
	}

	t.Turnout = percent(t.Voted, t.Registered)
	t.Summary = fmt.Sprintf("%s suara sah, %s tidak sah dari %s pemilih terdaftar",
		humanize.Comma(int64(t.Valid)), humanize.Comma(int64(t.Invalid)), humanize.Comma(int64(t.Registered)))
	return t
}

func percent(n, of int) string {
	if of == 0 {
		return "0%"
	}
	return humanize.FormatFloat("#,###.#", float64(n)*100/float64(of)) + "%"
}

// Spoil records an invalid ballot. No voter record is involved.
func (s *Service) Spoil(ctx context.Context, recordedBy string) (models.Vote, error) {
	recordedBy = strings.TrimSpace(recordedBy)
	if recordedBy == "" {
		recordedBy = "staff"
	}
	if strings.HasPrefix(recordedBy, models.RecordedByTerminal) {
		return models.Vote{}, fmt.Errorf("%w: recorded_by %q is reserved for terminals", models.ErrInvalidInput, recordedBy)
	}
	v, err := s.store.InsertVote(ctx, models.Vote{IsValid: false, RecordedBy: recordedBy})
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to record spoiled ballot: %w", err)
	}
	slog.Info("spoiled ballot recorded", "vote_id", v.ID, "recorded_by", recordedBy)
	return v, nil
}

// UndoLast deletes the most recent ballot. It cannot be reversed, so the
// caller must pass confirmed.
func (s *Service) UndoLast(ctx context.Context, confirmed bool) (models.Vote, error) {
	if !confirmed {
		return models.Vote{}, models.ErrConfirmationRequired
	}
	v, err := s.store.DeleteLastVote(ctx)
	if err != nil {
		return models.Vote{}, err
	}
	slog.Warn("last ballot removed", "vote_id", v.ID, "recorded_by", v.RecordedBy)
	return v, nil
}

func (s *Service) Reconcile(ctx context.Context) (Reconciliation, error) {
	votes, err := s.store.ListVotes(ctx)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("failed to load votes: %w", err)
	}
	voters, err := s.store.ListVoters(ctx, store.VoterFilter{})
	if err != nil {
		return Reconciliation{}, fmt.Errorf("failed to load voters: %w", err)
	}

	var r Reconciliation
	for _, v := range votes {
		if strings.HasPrefix(v.RecordedBy, models.RecordedByTerminal) {
			r.TerminalBallots++
		} else {
			r.StaffBallots++
		}
	}
	for _, v := range voters {
		if v.HasVoted {
			r.VotersMarked++
		}
	}
	r.Difference = r.TerminalBallots - r.VotersMarked
	r.Consistent = r.Difference == 0

	if !r.Consistent {
		slog.Warn("ballot count does not match voters marked",
			"terminal_ballots", r.TerminalBallots, "voters_marked", r.VotersMarked)
	}
	return r, nil
}
