// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package announce

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

var relMagnitudes = []humanize.RelTimeMagnitude{
	{D: 5 * time.Second, Format: "baru saja", DivBy: time.Second},
	{D: time.Minute, Format: "%d detik %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 menit %s", DivBy: 1},
	{D: time.Hour, Format: "%d menit %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 jam %s", DivBy: 1},
	{D: humanize.Day, Format: "%d jam %s", DivBy: time.Hour},
	{D: humanize.LongTime, Format: "lama %s", DivBy: 1},
}

// CalledAgo renders how long ago a voter was called, e.g. "3 menit lalu".
func CalledAgo(calledAt, now time.Time) string {
	return humanize.CustomRelTime(calledAt, now, "lalu", "lagi", relMagnitudes)
}

type Card struct {
	VoterID   string    `json:"voter_id"`
	Name      string    `json:"name"`
	Addressed string    `json:"addressed"`
	CalledAt  time.Time `json:"called_at"`
	CalledAgo string    `json:"called_ago"`
}

// Board is what the public display renders: the call currently being
// spoken plus older outstanding calls.
type Board struct {
	Current     *Card     `json:"current"`
	Others      []Card    `json:"others"`
	Waiting     int       `json:"waiting"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildBoard highlights the voter with the largest called_at; the rest
// follow newest first.
func BuildBoard(called []models.Voter, waiting int, now time.Time) Board {
	ordered := make([]models.Voter, 0, len(called))
	for _, v := range called {
		if v.CalledAt != nil {
			ordered = append(ordered, v)
		}
	}
	store.SortVoters(ordered, store.OrderCalledDes)

	b := Board{Others: []Card{}, Waiting: waiting, GeneratedAt: now}
	for i, v := range ordered {
		c := Card{
			VoterID:   v.ID,
			Name:      v.Name,
			Addressed: Addressed(v),
			CalledAt:  *v.CalledAt,
			CalledAgo: CalledAgo(*v.CalledAt, now),
		}
		if i == 0 {
			b.Current = &c
			continue
		}
		b.Others = append(b.Others, c)
	}
	return b
}
