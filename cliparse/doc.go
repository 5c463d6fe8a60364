// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Sources

Values are resolved in this order:

 1. CLI flags
 2. Environment variables
 3. A dotenv file (default ".env", set with -env-file; a missing file is ignored)
 4. Built-in defaults

# CLI Flags

	-p          Server port
	-d          Database URL
	-t          Database type: sqlite, postgres or memory
	-redis      Redis URL
	-staff-key  Shared staff key
	-env-file   Dotenv file to load

# Environment Variables

	PORT                  → -p (default 3318)
	DATABASE_URL          → -d (required unless DATABASE_TYPE=memory)
	DATABASE_TYPE         → -t (default sqlite)
	STAFF_KEY             → -staff-key (required)
	REDIS_URL             → -redis (optional; enables the change relay)
	MINIO_ENDPOINT        audit media endpoint (optional)
	MINIO_ACCESS_KEY      audit media credentials
	MINIO_SECRET_KEY
	MINIO_BUCKET          default pilrt-audit
	MINIO_USE_SSL         "true" for HTTPS
	CALL_BATCH_SIZE       voters per call (default 3)
	SKIP_REINSERT_BATCHES batches ahead a skipped voter is placed (default 3)
	MAX_SKIPS             skips before a voter goes to the end (default 3)
	RESULT_WINDOW         rejection display time (default 4s)
	SUCCESS_WINDOW        vote success display time (default 5s)
	SCAN_LATCH_WINDOW     duplicate decode suppression (default 2s)
	CODE_PREFIX           invitation code prefix (default RT12)

The election gates (registration and voting open) are not process
configuration. They live in the settings record in the store.
*/
package cliparse
