// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import "time"

// TimeResolution is the finest timestamp precision every backend keeps.
// Postgres TIMESTAMP stores microseconds.
const TimeResolution = time.Microsecond

// VotedAtTime is the value stored in a voter's voted_at. It always falls on
// a whole minute.
func VotedAtTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// BallotTime is the value stored in a vote's created_at. It never falls on
// a whole minute, so no ballot shares a timestamp with any voter's
// voted_at and a vote row cannot be joined back to the voter who cast it.
func BallotTime(t time.Time) time.Time {
	b := t.UTC().Truncate(TimeResolution)
	if b.Equal(b.Truncate(time.Minute)) {
		b = b.Add(TimeResolution)
	}
	return b
}
