// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBallotAndVotedAtTimesNeverMatch(t *testing.T) {
	minute := time.Date(2026, 3, 8, 7, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		at     time.Time
		ballot time.Time
	}{
		{"whole minute", minute, minute.Add(time.Microsecond)},
		{"mid minute", minute.Add(17 * time.Second), minute.Add(17 * time.Second)},
		{"sub-microsecond", minute.Add(2*time.Second + 1500*time.Nanosecond), minute.Add(2*time.Second + time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ballot := BallotTime(tt.at)
			votedAt := VotedAtTime(tt.at)

			assert.True(t, ballot.Equal(tt.ballot), "ballot time %s", ballot)
			assert.True(t, votedAt.Equal(minute), "voted_at %s", votedAt)
			assert.False(t, ballot.Equal(votedAt))
			assert.False(t, ballot.Equal(ballot.Truncate(time.Minute)))
		})
	}
}
