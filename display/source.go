// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package display

import (
	"context"
	"fmt"
	"time"

	"github.com/danielhkuo/pilrt/announce"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// VoterLister is the read side of the store a board needs.
type VoterLister interface {
	ListVoters(ctx context.Context, f store.VoterFilter) ([]models.Voter, error)
}

// FromStore derives the board from the called voters and the size of the
// waiting queue.
func FromStore(s VoterLister, now func() time.Time) BoardSource {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) (announce.Board, error) {
		called, err := s.ListVoters(ctx, store.VoterFilter{Status: models.StatusCalled, OrderBy: store.OrderCalledDes})
		if err != nil {
			return announce.Board{}, fmt.Errorf("failed to load called voters: %w", err)
		}
		waiting, err := s.ListVoters(ctx, store.VoterFilter{Status: models.StatusCheckedIn})
		if err != nil {
			return announce.Board{}, fmt.Errorf("failed to load waiting voters: %w", err)
		}
		return announce.BuildBoard(called, len(waiting), now()), nil
	}
}
