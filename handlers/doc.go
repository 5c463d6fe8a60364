// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the pilrt API.

# Handler Types

Each handler is a struct over the component it drives:

  - ConfigHandler: election settings and the two gates
  - VoterHandler: roster registration and invitation QR codes
  - CandidateHandler: candidate list
  - CheckInHandler: check-in stations
  - QueueHandler: call batch, recall, skip, mark voted
  - TerminalHandler: voting terminal commands and audit uploads
  - TallyHandler: tally, spoiled ballots, undo, reconciliation
  - DisplayHandler: public display board and websocket

Handlers hold no election state. Terminals and stations live in their
registries; everything else is read from the store on each request.

# Errors

Domain errors map to statuses in one place (writeDomainError):

	invalid_code                          404
	gate_closed                           403
	already_checked_in, already_voted,
	not_checked_in, invalid_transition,
	terminal_busy, duplicate_code         409
	invalid_input, confirmation_required  400
	not_found                             404
	store_write_failure                   503

Error bodies are models.ErrorResponse with a stable code and an
Indonesian message for the operator.

# Scan Outcomes

Station and terminal scans answer with the current view even when the
code is rejected, using the mapped status:

	POST /checkin/desk-1/scan {"code":"RT12-K7Q2MX"}
	409 {"station_id":"desk-1","state":"result","result":{"outcome":"already_checked_in",...}}

A repeat of the same code inside the latch window returns the held view
with "repeat": true instead of validating again.

# Irreversible Actions

Marking a voter voted needs {"confirm": true}; removing the last ballot
needs ?confirm=true. Without it the request fails with
confirmation_required.
*/
package handlers
