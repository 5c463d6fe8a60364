// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the API.

# Domain Types

  - Voter: one per eligible resident; carries check-in and queue state
  - Candidate: ballot entry, ordered by display_order
  - Vote: anonymized ballot (no voter reference); nil candidate means spoiled
  - ElectionConfig: singleton settings record with the registration/voting gates
  - VotingAudit: snapshot/video references for dispute resolution

# Voter Status

	StatusRegistered = "registered"
	StatusCheckedIn  = "checked_in"
	StatusCalled     = "called"
	StatusVoted      = "voted"

Status only moves forward, except that skipping a called voter demotes
them back to checked_in.

# Errors

Validator outcomes (ErrInvalidCode, ErrGateClosed, ErrAlreadyCheckedIn,
ErrAlreadyVoted, ErrNotCheckedIn) are displayed to the operator and reset
automatically. ErrStoreWrite is surfaced with an instruction to contact
staff. ErrDevice is logged and swallowed.

ErrorCode and ErrorMessage map errors to stable codes and Indonesian
operator messages.
*/
package models
