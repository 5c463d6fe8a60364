// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/pilrt/checkin"
	"github.com/danielhkuo/pilrt/cliparse"
	"github.com/danielhkuo/pilrt/display"
	"github.com/danielhkuo/pilrt/handlers"
	"github.com/danielhkuo/pilrt/middleware"
	"github.com/danielhkuo/pilrt/queue"
	"github.com/danielhkuo/pilrt/session"
	"github.com/danielhkuo/pilrt/store"
	"github.com/danielhkuo/pilrt/tally"
)

// Services are the running components the routes drive.
type Services struct {
	Store     store.Store
	Queue     *queue.Engine
	Desk      *checkin.Desk
	Terminals *session.Registry
	Tally     *tally.Service
	Display   *display.Hub
}

func NewRouter(svc Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	configHandler := handlers.NewConfigHandler(svc.Store)
	voterHandler := handlers.NewVoterHandler(svc.Store, cfg.CodePrefix)
	candidateHandler := handlers.NewCandidateHandler(svc.Store)
	checkInHandler := handlers.NewCheckInHandler(svc.Desk)
	queueHandler := handlers.NewQueueHandler(svc.Queue)
	terminalHandler := handlers.NewTerminalHandler(svc.Terminals)
	tallyHandler := handlers.NewTallyHandler(svc.Tally)
	displayHandler := handlers.NewDisplayHandler(svc.Display)

	log := middleware.WithLogging
	staff := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireStaff(cfg.StaffKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election settings
	mux.HandleFunc("GET /config", log(configHandler.GetConfig))
	mux.HandleFunc("POST /config", staff(configHandler.UpdateConfig))

	// Roster
	mux.HandleFunc("GET /voters", staff(voterHandler.ListVoters))
	mux.HandleFunc("POST /voters", staff(voterHandler.RegisterVoter))
	mux.HandleFunc("GET /voters/{code}/qr", log(voterHandler.InvitationQR))
	mux.HandleFunc("GET /candidates", log(candidateHandler.ListCandidates))
	mux.HandleFunc("POST /candidates", staff(candidateHandler.AddCandidate))

	// Check-in stations
	mux.HandleFunc("GET /checkin", log(checkInHandler.ListStations))
	mux.HandleFunc("GET /checkin/{station}", log(checkInHandler.GetStation))
	mux.HandleFunc("POST /checkin/{station}/scan", log(checkInHandler.Scan))

	// Queue controller (staff)
	mux.HandleFunc("GET /queue", log(queueHandler.GetQueue))
	mux.HandleFunc("POST /queue/call", staff(queueHandler.CallBatch))
	mux.HandleFunc("POST /queue/{id}/recall", staff(queueHandler.Recall))
	mux.HandleFunc("POST /queue/{id}/skip", staff(queueHandler.Skip))
	mux.HandleFunc("POST /queue/{id}/voted", staff(queueHandler.MarkVoted))

	// Voting terminals
	mux.HandleFunc("GET /terminals", log(terminalHandler.ListTerminals))
	mux.HandleFunc("GET /terminals/{id}", log(terminalHandler.GetTerminal))
	mux.HandleFunc("POST /terminals/{id}/scan", log(terminalHandler.Scan))
	mux.HandleFunc("POST /terminals/{id}/select", log(terminalHandler.Select))
	mux.HandleFunc("POST /terminals/{id}/confirm", log(terminalHandler.Confirm))
	mux.HandleFunc("POST /terminals/{id}/cancel", log(terminalHandler.Cancel))
	mux.HandleFunc("POST /terminals/{id}/submit", log(terminalHandler.Submit))
	mux.HandleFunc("POST /terminals/{id}/reset", log(terminalHandler.Reset))
	mux.HandleFunc("POST /terminals/{id}/snapshot", log(terminalHandler.Snapshot))
	mux.HandleFunc("POST /terminals/{id}/video", log(terminalHandler.Video))

	// Tally and staff ballot actions
	mux.HandleFunc("GET /tally", log(tallyHandler.GetTally))
	mux.HandleFunc("GET /tally/reconcile", staff(tallyHandler.Reconcile))
	mux.HandleFunc("POST /votes/spoil", staff(tallyHandler.SpoilBallot))
	mux.HandleFunc("DELETE /votes/last", staff(tallyHandler.UndoLastVote))

	// Public display; the websocket route is not wrapped so the upgrade
	// can hijack the connection.
	mux.HandleFunc("GET /display", log(displayHandler.GetBoard))
	mux.HandleFunc("GET /display/ws", displayHandler.Stream)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pilrt API v1"))
	})

	return mux
}
