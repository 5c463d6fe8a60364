// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Voter status constants
const (
	StatusRegistered = "registered"
	StatusCheckedIn  = "checked_in"
	StatusCalled     = "called"
	StatusVoted      = "voted"
)

// Gender markers used for announcement phrasing
const (
	GenderMale   = "L"
	GenderFemale = "P"
)

// Table names carried on change notifications
const (
	TableVoters     = "voters"
	TableCandidates = "candidates"
	TableVotes      = "votes"
	TableSettings   = "settings"
	TableAudits     = "voting_audits"
)

// RecordedByTerminal prefixes Vote.RecordedBy for ballots cast at a voting
// terminal. Staff-recorded ballots use any other value.
const RecordedByTerminal = "terminal:"

// Domain types

type Voter struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	NIK            string     `json:"nik,omitempty"`
	Address        string     `json:"address,omitempty"`
	InvitationCode string     `json:"invitation_code"`
	Gender         string     `json:"gender,omitempty"`
	IsPresent      bool       `json:"is_present"`
	HasVoted       bool       `json:"has_voted"`
	Status         string     `json:"status"`
	QueueTimestamp *time.Time `json:"queue_timestamp,omitempty"`
	CalledAt       *time.Time `json:"called_at,omitempty"`
	SkipCount      int        `json:"skip_count"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	VotedAt        *time.Time `json:"voted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Candidate struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PhotoURL     string `json:"photo_url,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// Vote is an anonymized ballot. It deliberately carries no voter reference.
// A nil CandidateID is a spoiled ballot.
type Vote struct {
	ID          string    `json:"id"`
	CandidateID *string   `json:"candidate_id"`
	IsValid     bool      `json:"is_valid"`
	RecordedBy  string    `json:"recorded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ElectionConfig is the singleton settings record.
type ElectionConfig struct {
	IsVotingOpen       bool       `json:"is_voting_open"`
	IsRegistrationOpen bool       `json:"is_registration_open"`
	ElectionName       string     `json:"election_name"`
	Location           string     `json:"location,omitempty"`
	StartsAt           *time.Time `json:"starts_at,omitempty"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// VotingAudit is a dispute-resolution side channel, never used for tallying.
type VotingAudit struct {
	ID          string    `json:"id"`
	VoterID     string    `json:"voter_id"`
	TerminalID  string    `json:"terminal_id"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Request types

type ScanRequest struct {
	Code string `json:"code"`
}

type SelectCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
}

type CallBatchRequest struct {
	Count int `json:"count"`
}

type ConfirmRequest struct {
	Confirm bool `json:"confirm"`
}

type RegisterVoterRequest struct {
	Name           string `json:"name"`
	NIK            string `json:"nik"`
	Address        string `json:"address"`
	Gender         string `json:"gender"`
	InvitationCode string `json:"invitation_code,omitempty"`
}

type AddCandidateRequest struct {
	Name         string `json:"name"`
	PhotoURL     string `json:"photo_url"`
	DisplayOrder int    `json:"display_order"`
}

type UpdateConfigRequest struct {
	IsVotingOpen       *bool      `json:"is_voting_open"`
	IsRegistrationOpen *bool      `json:"is_registration_open"`
	ElectionName       *string    `json:"election_name"`
	Location           *string    `json:"location"`
	StartsAt           *time.Time `json:"starts_at"`
	EndsAt             *time.Time `json:"ends_at"`
}

type SpoilBallotRequest struct {
	RecordedBy string `json:"recorded_by"`
}

// Response types

type CheckInResponse struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	Voter   *Voter `json:"voter,omitempty"`
}

type CallBatchResponse struct {
	Called []Voter   `json:"called"`
	Failed []string  `json:"failed,omitempty"`
	At     time.Time `json:"at"`
	Speech string    `json:"speech,omitempty"`
}

type QueueResponse struct {
	Waiting []Voter `json:"waiting"`
	Called  []Voter `json:"called"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
