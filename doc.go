// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the pilrt server.

pilrt runs a neighborhood (RT) election at one polling place: check-in
stations scan invitation codes, a queue controller calls voters in
batches, public displays announce who is called, and voting terminals take
one ballot per voter.

# Starting the Server

	STAFF_KEY=... DATABASE_URL=file:pilrt.db go run .

Postgres, with change notifications across instances:

	go run . -t postgres -d "postgres://..." -staff-key ...

In-memory, for a dry run:

	go run . -t memory -staff-key latihan

# Configuration

Required settings:

  - STAFF_KEY (-staff-key): shared key for operator endpoints
  - DATABASE_URL (-d): unless DATABASE_TYPE=memory

Optional settings:

  - PORT (-p): server port (default 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or memory
  - REDIS_URL (-redis): relay store changes between instances
  - MINIO_*: audit snapshot and video storage
  - CALL_BATCH_SIZE, SKIP_REINSERT_BATCHES, MAX_SKIPS: queue policy

Values may also come from a .env file. See package cliparse.

# Architecture

  - store, store/memstore, store/sqlstore: the data store contract and
    its implementations
  - feed: change notification (in-process broker, postgres LISTEN, redis)
  - eligibility: invitation validation for check-in and voting
  - checkin: check-in stations
  - queue: queue ordering engine
  - announce: announcement sentences and the display board
  - session: voting terminal state machines and audit capture
  - tally: counting and staff ballot actions
  - display: websocket hub for public displays
  - media: MinIO audit media
  - handlers, router, middleware: HTTP surface
  - auth, cliparse, db, models: support packages

See package documentation for each component.
*/
package main
