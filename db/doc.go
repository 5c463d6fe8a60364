// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connecting

Open selects the driver from the dialect:

	conn, err := db.Open(db.DialectPostgres, "postgres://...")
	conn, err := db.Open(db.DialectSQLite, "file:pilrt.db")

PostgreSQL uses github.com/lib/pq; SQLite uses modernc.org/sqlite and is
limited to a single open connection.

# Schema Creation

	if err := db.CreateSchema(conn, db.DialectPostgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
On PostgreSQL it also installs triggers that NOTIFY pilrt_changes with a
{table, op, id} payload for every row change.

# Tables

  - voters: voter roll with check-in and queue state
  - candidates: ballot entries (display_order unique)
  - votes: anonymized ballots; no voter column
  - settings: singleton (id = 1) election gates
  - voting_audits: snapshot/video references per voter

# Relationships

	candidates 1──* votes (nullable: spoiled ballots)
	voters 1──* voting_audits
*/
package db
