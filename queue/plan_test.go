// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
	"github.com/danielhkuo/pilrt/testutil"
)

// waitingAt builds a FIFO waiting queue with the given queue timestamps.
func waitingAt(times []time.Time) []models.Voter {
	voters := make([]models.Voter, len(times))
	for i := range times {
		ts := times[i]
		voters[i] = models.Voter{ID: fmt.Sprintf("w%02d", i), Status: models.StatusCheckedIn, QueueTimestamp: &ts}
	}
	return voters
}

func secondsApart(n int) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = testutil.Epoch.Add(time.Duration(i) * time.Second)
	}
	return times
}

// reinsert applies a skip of v against waiting and returns the new queue
// and v's index in it.
func reinsert(t *testing.T, waiting []models.Voter, v models.Voter) ([]models.Voter, int) {
	t.Helper()
	patch := PlanSkip(DefaultPolicy(), waiting, v, testutil.Epoch.Add(time.Hour))
	store.ApplyPatch(&v, patch)

	next := append(append([]models.Voter(nil), waiting...), v)
	store.SortVoters(next, store.OrderQueue)
	for i := range next {
		if next[i].ID == v.ID {
			return next, i
		}
	}
	t.Fatalf("voter %s missing after skip", v.ID)
	return nil, -1
}

func TestPlanSkipPosition(t *testing.T) {
	tied := secondsApart(14)
	for i := 8; i <= 11; i++ {
		tied[i] = tied[8]
	}

	tests := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"distinct timestamps", secondsApart(14), 9},
		{"slot tied with the voters behind it", tied, 8},
		{"short queue", secondsApart(5), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, idx := reinsert(t, waitingAt(tt.times), models.Voter{ID: "skipped", Status: models.StatusCalled})
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestPlanSkipRepeatedIntoSameSlot(t *testing.T) {
	waiting := waitingAt(secondsApart(14))
	pos := DefaultPolicy().ReinsertPosition()

	for i := 0; i < 40; i++ {
		v := models.Voter{ID: fmt.Sprintf("s%02d", i), Status: models.StatusCalled}
		var idx int
		waiting, idx = reinsert(t, waiting, v)
		assert.LessOrEqual(t, idx, pos, "skip %d", i)

		ts := *waiting[idx].QueueTimestamp
		assert.True(t, ts.Equal(ts.Truncate(store.TimeResolution)), "skip %d not aligned to store resolution", i)
	}

	for i := 1; i < len(waiting); i++ {
		require.True(t, waiting[i-1].QueueTimestamp.Before(*waiting[i].QueueTimestamp),
			"timestamps at %d and %d collide", i-1, i)
	}
}

func TestBetween(t *testing.T) {
	base := testutil.Epoch

	ts, ok := between(base, base.Add(10*time.Second))
	require.True(t, ok)
	assert.True(t, ts.Equal(base.Add(time.Second)))

	ts, ok = between(base, base.Add(time.Second))
	require.True(t, ok)
	assert.True(t, ts.Equal(base.Add(500*time.Millisecond)))

	_, ok = between(base, base)
	assert.False(t, ok)

	_, ok = between(base, base.Add(time.Microsecond))
	assert.False(t, ok)
}
