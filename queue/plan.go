// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package queue

import (
	"time"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// Policy holds the queue's tunable business rules.
type Policy struct {
	// BatchSize is how many voters one call takes from the waiting queue.
	BatchSize int
	// ReinsertBatches is how many batches ahead a skipped voter is placed.
	ReinsertBatches int
	// MaxSkips is the skip count at which a voter goes to the very end.
	MaxSkips int
}

func DefaultPolicy() Policy {
	return Policy{BatchSize: 3, ReinsertBatches: 3, MaxSkips: 3}
}

// ReinsertPosition is the number of waiting voters a skipped voter is
// placed behind.
func (p Policy) ReinsertPosition() int {
	return p.BatchSize * p.ReinsertBatches
}

// skipGap separates a reinserted voter from the voter ahead of them.
const skipGap = time.Second

// PlanCall returns the voters a batch call of n takes: the first n of the
// FIFO-ordered waiting queue.
func PlanCall(waiting []models.Voter, n int) []models.Voter {
	if n > len(waiting) {
		n = len(waiting)
	}
	if n <= 0 {
		return nil
	}
	return waiting[:n]
}

// PlanSkip computes the demotion patch for a called voter. waiting is the
// current FIFO-ordered waiting queue, not including the skipped voter.
func PlanSkip(p Policy, waiting []models.Voter, v models.Voter, now time.Time) store.VoterPatch {
	count := v.SkipCount + 1
	status := models.StatusCheckedIn

	var ts time.Time
	if count < p.MaxSkips {
		pos := p.ReinsertPosition()
		switch {
		case len(waiting) > pos && pos > 0:
			ts = reinsertAt(waiting, pos, now)
		case len(waiting) == pos && pos > 0:
			ts = queueTime(waiting[pos-1], now).Add(skipGap)
		case len(waiting) > 0:
			ts = queueTime(waiting[len(waiting)-1], now).Add(skipGap)
		default:
			ts = now
		}
	} else {
		ts = now
		if len(waiting) > 0 {
			if last := queueTime(waiting[len(waiting)-1], now); !ts.After(last) {
				ts = last.Add(skipGap)
			}
		}
	}

	return store.VoterPatch{
		Status:         &status,
		QueueTimestamp: &ts,
		ClearCalledAt:  true,
		SkipCount:      &count,
	}
}

// reinsertAt returns a timestamp placing a voter behind the first pos
// waiting voters. When the voter at pos-1 has no room behind it (a tie with
// the next voter, or a gap already split down to the store's resolution),
// the voter goes just ahead of that voter's tie group instead, so they do
// not land further back than pos.
func reinsertAt(waiting []models.Voter, pos int, now time.Time) time.Time {
	prev := queueTime(waiting[pos-1], now)
	if ts, ok := between(prev, queueTime(waiting[pos], now)); ok {
		return ts
	}

	i := pos - 1
	for i > 0 && !queueTime(waiting[i-1], now).Before(prev) {
		i--
	}
	if i > 0 {
		if ts, ok := between(queueTime(waiting[i-1], now), prev); ok {
			return ts
		}
	}
	// No room anywhere ahead: join the tie group.
	return prev
}

// between returns a timestamp strictly between prev and next, at most
// skipGap after prev and aligned to the store's resolution. It reports
// false when the gap is too narrow to split.
func between(prev, next time.Time) (time.Time, bool) {
	gap := skipGap
	if half := next.Sub(prev) / 2; half < gap {
		gap = half
	}
	if gap < store.TimeResolution {
		return time.Time{}, false
	}
	ts := prev.Add(gap).Truncate(store.TimeResolution)
	if !ts.After(prev) || !ts.Before(next) {
		return time.Time{}, false
	}
	return ts, true
}

func queueTime(v models.Voter, fallback time.Time) time.Time {
	if v.QueueTimestamp == nil {
		return fallback
	}
	return *v.QueueTimestamp
}
