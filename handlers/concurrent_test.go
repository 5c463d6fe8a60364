// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/testutil"
)

// TestConcurrentCheckInSameCode verifies that one invitation presented at
// many stations at once is checked in exactly once.
func TestConcurrentCheckInSameCode(t *testing.T) {
	f := newFixture(t)
	h := NewCheckInHandler(f.desk)
	testutil.SetGates(t, f.store, true, false)
	v := testutil.CreateTestVoter(t, f.store, "Budi", "RT12-AAAAAA")

	numStations := 10
	var checkedIn, conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numStations; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			station := fmt.Sprintf("desk-%d", idx)
			req := testutil.MakeRequest("POST", "/checkin/"+station+"/scan", models.ScanRequest{Code: v.InvitationCode}, nil)
			w := serve(h.Scan, req, map[string]string{"station": station})

			switch w.Code {
			case http.StatusOK:
				checkedIn.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if checkedIn.Load() != 1 {
		t.Errorf("Expected exactly 1 check-in, got %d", checkedIn.Load())
	}
	if conflicts.Load() != int32(numStations-1) {
		t.Errorf("Expected %d already_checked_in, got %d", numStations-1, conflicts.Load())
	}

	waiting, err := f.engine.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Failed to read queue: %v", err)
	}
	if len(waiting.Waiting) != 1 {
		t.Errorf("Expected the voter in the queue once, got %d entries", len(waiting.Waiting))
	}
}

// TestConcurrentSubmitSameVoter verifies that a voter admitted at several
// terminals at once can only cast one ballot.
func TestConcurrentSubmitSameVoter(t *testing.T) {
	f := newFixture(t)
	h := NewTerminalHandler(f.registry)
	testutil.SetGates(t, f.store, true, true)
	candidates := testutil.CreateTestCandidates(t, f.store, "Pak Ahmad", "Bu Sari")
	voter := testutil.CreateWaitingVoters(t, f.store, 1)[0]

	numTerminals := 5
	terminals := make([]string, numTerminals)

	// Admit the voter everywhere first; scanning does not mutate.
	for i := range terminals {
		terminals[i] = fmt.Sprintf("bilik-%d", i)
		id := map[string]string{"id": terminals[i]}
		for _, step := range []struct {
			fn   http.HandlerFunc
			body interface{}
		}{
			{h.Scan, models.ScanRequest{Code: voter.InvitationCode}},
			{h.Select, models.SelectCandidateRequest{CandidateID: candidates[i%2].ID}},
			{h.Confirm, nil},
		} {
			w := serve(step.fn, testutil.MakeRequest("POST", "/terminals/"+terminals[i], step.body, nil), id)
			testutil.AssertStatus(t, w, http.StatusOK)
		}
	}

	var successes, alreadyVoted atomic.Int32
	var wg sync.WaitGroup
	for _, terminal := range terminals {
		wg.Add(1)
		go func(terminal string) {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/terminals/"+terminal+"/submit", nil, nil)
			w := serve(h.Submit, req, map[string]string{"id": terminal})

			switch w.Code {
			case http.StatusOK:
				successes.Add(1)
			case http.StatusConflict:
				alreadyVoted.Add(1)
			}
		}(terminal)
	}

	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("Expected exactly 1 successful submit, got %d", successes.Load())
	}
	if alreadyVoted.Load() != int32(numTerminals-1) {
		t.Errorf("Expected %d already_voted, got %d", numTerminals-1, alreadyVoted.Load())
	}

	votes, err := f.store.ListVotes(t.Context())
	if err != nil {
		t.Fatalf("Failed to list votes: %v", err)
	}
	if len(votes) != 1 {
		t.Errorf("Expected exactly 1 ballot, got %d", len(votes))
	}
}
