// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session runs the voting booth state machine, one Terminal per booth.

# States

	standby --scan ok--> selecting --confirm--> confirming --submit--> processing --> success
	   ^                     ^                      |                      |             |
	   |                     +------- cancel -------+                      |             |
	   |                     +----------- write failure -------------------+             |
	   +------------------------- reset (explicit or success window) --------------------+

A scan is only accepted in standby or success. While a voter is selecting,
confirming or processing the terminal answers ErrTerminalBusy.

Submit records the ballot through store.Store.CastVote, which inserts the
anonymous Vote row and latches the voter's has_voted flag in one
transaction. A failed write returns the terminal to selecting with the
chosen candidate kept; it does not auto-reset.

# Timers

Rejections stay on screen for Options.ResultWindow and a successful vote for
Options.SuccessWindow. Every transition bumps a generation counter, so a
reset scheduled for an earlier session never fires into a later one.

# Audit Capture

A successful scan opens a VotingAudit record for the voter. Snapshot
uploads the admission still immediately; AttachVideo hands the session
recording to a background upload. Both are best-effort: without a
MediaStore, or on upload failure, they log ErrDevice and voting continues.
*/
package session
