// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/pilrt/checkin"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/testutil"
)

func TestCheckInScan(t *testing.T) {
	f := newFixture(t)
	h := NewCheckInHandler(f.desk)
	testutil.SetGates(t, f.store, true, false)
	v := testutil.CreateTestVoter(t, f.store, "Budi", "RT12-AAAAAA")

	testCases := []struct {
		name    string
		station string
		code    string
		status  int
		outcome string
	}{
		{"first scan", "desk-1", v.InvitationCode, http.StatusOK, checkin.OutcomeCheckedIn},
		{"unknown code", "desk-2", "RT12-ZZZZZZ", http.StatusNotFound, "invalid_code"},
		{"second station", "desk-3", v.InvitationCode, http.StatusConflict, "already_checked_in"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/checkin/"+tc.station+"/scan", models.ScanRequest{Code: tc.code}, nil)
			w := serve(h.Scan, req, map[string]string{"station": tc.station})
			testutil.AssertStatus(t, w, tc.status)

			var view checkin.View
			testutil.AssertJSON(t, w, &view)
			if view.Result == nil || view.Result.Outcome != tc.outcome {
				t.Errorf("Expected outcome %s, got %+v", tc.outcome, view.Result)
			}
		})
	}

	w := serve(h.ListStations, testutil.MakeRequest("GET", "/checkin", nil, nil), nil)
	var views []checkin.View
	testutil.AssertJSON(t, w, &views)
	if len(views) != 3 {
		t.Errorf("Expected 3 stations, got %d", len(views))
	}
}

func TestCheckInScanLatch(t *testing.T) {
	f := newFixture(t)
	desk := checkin.NewDesk(f.validator, checkin.Options{ResultWindow: time.Minute, ScanLatchWindow: time.Minute})
	h := NewCheckInHandler(desk)
	testutil.SetGates(t, f.store, true, false)
	v := testutil.CreateTestVoter(t, f.store, "Budi", "RT12-AAAAAA")

	for i, wantRepeat := range []bool{false, true} {
		req := testutil.MakeRequest("POST", "/checkin/desk-1/scan", models.ScanRequest{Code: v.InvitationCode}, nil)
		w := serve(h.Scan, req, map[string]string{"station": "desk-1"})
		testutil.AssertStatus(t, w, http.StatusOK)

		var view checkin.View
		testutil.AssertJSON(t, w, &view)
		if view.Repeat != wantRepeat || view.Result == nil || view.Result.Outcome != checkin.OutcomeCheckedIn {
			t.Errorf("Scan %d: expected checked_in with repeat=%v, got %+v", i+1, wantRepeat, view)
		}
	}

	w := serve(h.GetStation, testutil.MakeRequest("GET", "/checkin/desk-1", nil, nil), map[string]string{"station": "desk-1"})
	var view checkin.View
	testutil.AssertJSON(t, w, &view)
	if view.State != checkin.StateResult {
		t.Errorf("Expected the station to hold its result, got %s", view.State)
	}
}

func TestCallBatchDefaultsToPolicy(t *testing.T) {
	f := newFixture(t)
	h := NewQueueHandler(f.engine)
	testutil.CreateWaitingVoters(t, f.store, 5)

	w := serve(h.CallBatch, testutil.MakeRequest("POST", "/queue/call", nil, nil), nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CallBatchResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Called) != 3 {
		t.Errorf("Expected 3 called, got %d", len(resp.Called))
	}

	w = serve(h.CallBatch, testutil.MakeRequest("POST", "/queue/call", models.CallBatchRequest{Count: -1}, nil), nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestCallBatchEmptyQueue(t *testing.T) {
	f := newFixture(t)
	h := NewQueueHandler(f.engine)

	w := serve(h.CallBatch, testutil.MakeRequest("POST", "/queue/call", models.CallBatchRequest{Count: 3}, nil), nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CallBatchResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Called) != 0 || resp.Speech != "" {
		t.Errorf("Expected no-op call, got %+v", resp)
	}
}

func TestQueueVoterActions(t *testing.T) {
	f := newFixture(t)
	h := NewQueueHandler(f.engine)
	voters := testutil.CreateWaitingVoters(t, f.store, 2)
	ctx := context.Background()

	// Skip and recall need a called voter.
	for _, action := range []struct {
		name string
		fn   http.HandlerFunc
	}{{"skip", h.Skip}, {"recall", h.Recall}} {
		t.Run(action.name+" waiting voter", func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/queue/"+voters[0].ID+"/"+action.name, nil, nil)
			w := serve(action.fn, req, map[string]string{"id": voters[0].ID})
			testutil.AssertStatus(t, w, http.StatusConflict)
		})
	}

	t.Run("unknown voter", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/queue/nobody/skip", nil, nil)
		w := serve(h.Skip, req, map[string]string{"id": "nobody"})
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	if _, err := f.engine.CallBatch(ctx, 1); err != nil {
		t.Fatalf("Failed to call voter: %v", err)
	}

	t.Run("recall called voter", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/queue/"+voters[0].ID+"/recall", nil, nil)
		w := serve(h.Recall, req, map[string]string{"id": voters[0].ID})
		testutil.AssertStatus(t, w, http.StatusOK)
	})

	t.Run("mark voted needs confirmation", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/queue/"+voters[0].ID+"/voted", nil, nil)
		w := serve(h.MarkVoted, req, map[string]string{"id": voters[0].ID})
		testutil.AssertStatus(t, w, http.StatusBadRequest)

		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Code != "confirmation_required" {
			t.Errorf("Expected confirmation_required, got '%s'", resp.Code)
		}
	})

	t.Run("mark voted", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/queue/"+voters[0].ID+"/voted", models.ConfirmRequest{Confirm: true}, nil)
		w := serve(h.MarkVoted, req, map[string]string{"id": voters[0].ID})
		testutil.AssertStatus(t, w, http.StatusOK)

		var v models.Voter
		testutil.AssertJSON(t, w, &v)
		if v.Status != models.StatusVoted {
			t.Errorf("Expected voted, got %s", v.Status)
		}
	})

	w := serve(h.GetQueue, testutil.MakeRequest("GET", "/queue", nil, nil), nil)
	var q models.QueueResponse
	testutil.AssertJSON(t, w, &q)
	if len(q.Waiting) != 1 || len(q.Called) != 0 {
		t.Errorf("Expected 1 waiting and none called, got %d/%d", len(q.Waiting), len(q.Called))
	}
}
