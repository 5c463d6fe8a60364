// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the pilrt API.

# Route Registration

NewRouter creates a configured http.ServeMux over the running services:

	mux := router.NewRouter(router.Services{
		Store:     st,
		Queue:     engine,
		Desk:      desk,
		Terminals: registry,
		Tally:     tallies,
		Display:   hub,
	}, cfg)

# Endpoints

Health and settings:

	GET  /health
	GET  /config
	POST /config                    (staff) open or close the gates

Roster:

	GET  /voters                    (staff) ?status=checked_in
	POST /voters                    (staff) register, generates the invitation code
	GET  /voters/{code}/qr          invitation QR as PNG
	GET  /candidates
	POST /candidates                (staff)

Check-in:

	GET  /checkin
	GET  /checkin/{station}
	POST /checkin/{station}/scan

Queue controller:

	GET  /queue
	POST /queue/call                (staff) {"count": 3}
	POST /queue/{id}/recall         (staff)
	POST /queue/{id}/skip           (staff)
	POST /queue/{id}/voted          (staff) {"confirm": true}

Voting terminals:

	GET  /terminals
	GET  /terminals/{id}
	POST /terminals/{id}/scan|select|confirm|cancel|submit|reset
	POST /terminals/{id}/snapshot   multipart "image"
	POST /terminals/{id}/video      multipart "video"

Tally:

	GET    /tally
	GET    /tally/reconcile         (staff)
	POST   /votes/spoil             (staff)
	DELETE /votes/last?confirm=true (staff)

Display:

	GET /display                    current board as JSON
	GET /display/ws                 board and announcement stream

Staff routes require the X-Staff-Key header.
*/
package router
