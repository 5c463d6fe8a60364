// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"sort"
	"time"

	"github.com/danielhkuo/pilrt/models"
)

// SortVoters orders voters the way ListVoters must for the given ordering.
// Ties break on ID so every client derives the same order.
func SortVoters(voters []models.Voter, orderBy string) {
	sort.SliceStable(voters, func(i, j int) bool {
		a, b := voters[i], voters[j]
		switch orderBy {
		case OrderQueue:
			if c := compareTimes(a.QueueTimestamp, b.QueueTimestamp); c != 0 {
				return c < 0
			}
		case OrderCalledDes:
			if (a.CalledAt == nil) != (b.CalledAt == nil) {
				return a.CalledAt != nil
			}
			if c := compareTimes(a.CalledAt, b.CalledAt); c != 0 {
				return c > 0
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

// compareTimes orders nil after any set time.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

// ApplyPatch applies p to v in place.
func ApplyPatch(v *models.Voter, p VoterPatch) {
	if p.Status != nil {
		v.Status = *p.Status
	}
	if p.QueueTimestamp != nil {
		t := *p.QueueTimestamp
		v.QueueTimestamp = &t
	}
	if p.ClearCalledAt {
		v.CalledAt = nil
	} else if p.CalledAt != nil {
		t := *p.CalledAt
		v.CalledAt = &t
	}
	if p.SkipCount != nil {
		v.SkipCount = *p.SkipCount
	}
}
