// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /queue", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# Staff Guard

Operator endpoints (calling the queue, registering voters, spoiling
ballots) require the shared key in X-Staff-Key:

	mux.HandleFunc("POST /queue/call", middleware.WithLogging(
		middleware.RequireStaff(cfg.StaffKey, queueHandler.Call)))

A missing or wrong key gets 401 with code "unauthorized".

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows GET, POST, PUT, DELETE, OPTIONS with headers Content-Type,
Authorization and X-Staff-Key.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusConflict, "already_voted", "Pemilih sudah menggunakan hak suaranya")

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Used in request logs to tell stations apart behind the polling-station router.
*/
package middleware
