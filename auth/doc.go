// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, invitation codes and the staff key check.

# Invitation Codes

Codes are a configured prefix plus six characters:

	code, err := auth.GenerateInvitationCode("RT12")  // "RT12-K7Q2MX"

Generated codes avoid 0, 1, I and O. The store enforces uniqueness, so
registration retries when a code collides.

# Staff Key

Staff endpoints carry a shared key in the X-Staff-Key header:

	err := auth.ValidateStaffKey(r.Header.Get("X-Staff-Key"), cfg.StaffKey)

The comparison runs in constant time over SHA-256 digests, so neither the
content nor the length of the configured key leaks.

# ID Generation

Random UUIDs for database records:

	id := auth.GenerateID()
*/
package auth
