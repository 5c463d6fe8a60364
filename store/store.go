// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/danielhkuo/pilrt/models"
)

// Change operations
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change is a table change notification. Consumers treat it as a hint to
// re-pull authoritative state; the ID is informational only.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
}

// Voter orderings
const (
	OrderCreated   = ""
	OrderQueue     = "queue_timestamp"
	OrderCalledDes = "called_at_desc"
)

type VoterFilter struct {
	Status  string
	OrderBy string
}

// VoterPatch is a partial update. Nil fields are left unchanged; the Clear
// flags set the corresponding nullable column to NULL.
type VoterPatch struct {
	Status         *string
	QueueTimestamp *time.Time
	CalledAt       *time.Time
	ClearCalledAt  bool
	SkipCount      *int
}

// Store is the Data Store contract consumed by the core. Implementations
// must publish a Change for every successful write.
type Store interface {
	VoterByCode(ctx context.Context, code string) (models.Voter, error)
	VoterByID(ctx context.Context, id string) (models.Voter, error)
	ListVoters(ctx context.Context, f VoterFilter) ([]models.Voter, error)
	InsertVoter(ctx context.Context, v models.Voter) (models.Voter, error)
	UpdateVoter(ctx context.Context, id string, p VoterPatch) error

	// MarkPresent flips is_present false→true, enters the voter into the
	// waiting queue, and reports whether this call performed the flip.
	MarkPresent(ctx context.Context, id string, now time.Time) (bool, error)

	Candidates(ctx context.Context) ([]models.Candidate, error)
	InsertCandidate(ctx context.Context, c models.Candidate) (models.Candidate, error)

	// CastVote records v and flips the voter's has_voted false→true as one
	// unit. If has_voted was already true nothing is written and
	// models.ErrAlreadyVoted is returned.
	CastVote(ctx context.Context, voterID string, v models.Vote, now time.Time) (models.Vote, error)
	InsertVote(ctx context.Context, v models.Vote) (models.Vote, error)
	DeleteLastVote(ctx context.Context) (models.Vote, error)
	ListVotes(ctx context.Context) ([]models.Vote, error)

	Config(ctx context.Context) (models.ElectionConfig, error)
	UpsertConfig(ctx context.Context, c models.ElectionConfig) error

	InsertAudit(ctx context.Context, a models.VotingAudit) (models.VotingAudit, error)
	UpdateAudit(ctx context.Context, a models.VotingAudit) error

	// Subscribe registers fn for changes on table ("" for all tables).
	// The returned func cancels the subscription.
	Subscribe(table string, fn func(Change)) (cancel func())
}
