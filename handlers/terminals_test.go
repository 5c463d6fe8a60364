// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/session"
	"github.com/danielhkuo/pilrt/testutil"
)

// multipartRequest builds a single-file upload.
func multipartRequest(t *testing.T, path, field, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="capture"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func terminalView(t *testing.T, w *httptest.ResponseRecorder) session.View {
	t.Helper()
	var view session.View
	testutil.AssertJSON(t, w, &view)
	return view
}

func TestTerminalVotingFlow(t *testing.T) {
	f := newFixture(t)
	h := NewTerminalHandler(f.registry)
	testutil.SetGates(t, f.store, true, true)
	candidates := testutil.CreateTestCandidates(t, f.store, "Pak Ahmad", "Bu Sari")
	voters := testutil.CreateWaitingVoters(t, f.store, 2)
	id := map[string]string{"id": "bilik-1"}

	w := serve(h.Scan, testutil.MakeRequest("POST", "/terminals/bilik-1/scan", models.ScanRequest{Code: voters[0].InvitationCode}, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	view := terminalView(t, w)
	if view.State != session.StateSelecting || view.Voter == nil || view.Voter.ID != voters[0].ID {
		t.Fatalf("Expected selecting for %s, got %+v", voters[0].ID, view)
	}

	t.Run("second voter is refused while busy", func(t *testing.T) {
		w := serve(h.Scan, testutil.MakeRequest("POST", "/terminals/bilik-1/scan", models.ScanRequest{Code: voters[1].InvitationCode}, nil), id)
		testutil.AssertStatus(t, w, http.StatusConflict)
		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Code != "terminal_busy" {
			t.Errorf("Expected terminal_busy, got '%s'", resp.Code)
		}
	})

	t.Run("confirm without a choice", func(t *testing.T) {
		w := serve(h.Confirm, testutil.MakeRequest("POST", "/terminals/bilik-1/confirm", nil, nil), id)
		testutil.AssertStatus(t, w, http.StatusConflict)
	})

	t.Run("select validation", func(t *testing.T) {
		w := serve(h.Select, testutil.MakeRequest("POST", "/terminals/bilik-1/select", models.SelectCandidateRequest{}, nil), id)
		testutil.AssertStatus(t, w, http.StatusBadRequest)

		w = serve(h.Select, testutil.MakeRequest("POST", "/terminals/bilik-1/select", models.SelectCandidateRequest{CandidateID: "cand-99"}, nil), id)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("snapshot without media is accepted", func(t *testing.T) {
		req := multipartRequest(t, "/terminals/bilik-1/snapshot", "image", "image/jpeg", []byte{0xff, 0xd8, 0xff})
		w := serve(h.Snapshot, req, id)
		testutil.AssertStatus(t, w, http.StatusAccepted)

		var audit models.VotingAudit
		testutil.AssertJSON(t, w, &audit)
		if audit.ID != view.AuditID || audit.VoterID != voters[0].ID {
			t.Errorf("Expected audit %s for %s, got %+v", view.AuditID, voters[0].ID, audit)
		}
	})

	w = serve(h.Select, testutil.MakeRequest("POST", "/terminals/bilik-1/select", models.SelectCandidateRequest{CandidateID: candidates[0].ID}, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	w = serve(h.Confirm, testutil.MakeRequest("POST", "/terminals/bilik-1/confirm", nil, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	w = serve(h.Cancel, testutil.MakeRequest("POST", "/terminals/bilik-1/cancel", nil, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	if v := terminalView(t, w); v.SelectedCandidateID != candidates[0].ID {
		t.Errorf("Expected cancel to keep the selection, got %+v", v)
	}
	w = serve(h.Confirm, testutil.MakeRequest("POST", "/terminals/bilik-1/confirm", nil, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = serve(h.Submit, testutil.MakeRequest("POST", "/terminals/bilik-1/submit", nil, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	if v := terminalView(t, w); v.State != session.StateSuccess {
		t.Fatalf("Expected success, got %s", v.State)
	}

	voter, err := f.store.VoterByID(t.Context(), voters[0].ID)
	if err != nil {
		t.Fatalf("Failed to reload voter: %v", err)
	}
	if !voter.HasVoted {
		t.Error("Expected has_voted to be set")
	}

	votes, _ := f.store.ListVotes(t.Context())
	if len(votes) != 1 || *votes[0].CandidateID != candidates[0].ID {
		t.Errorf("Expected one ballot for %s, got %+v", candidates[0].ID, votes)
	}
	if votes[0].RecordedBy != models.RecordedByTerminal+"bilik-1" {
		t.Errorf("Unexpected recorded_by '%s'", votes[0].RecordedBy)
	}

	w = serve(h.Reset, testutil.MakeRequest("POST", "/terminals/bilik-1/reset", nil, nil), id)
	testutil.AssertStatus(t, w, http.StatusOK)
	if v := terminalView(t, w); v.State != session.StateStandby || v.Voter != nil {
		t.Errorf("Expected a clean standby after reset, got %+v", v)
	}
}

func TestTerminalScanRejections(t *testing.T) {
	f := newFixture(t)
	h := NewTerminalHandler(f.registry)
	testutil.SetGates(t, f.store, true, true)
	registered := testutil.CreateTestVoter(t, f.store, "Budi", "RT12-AAAAAA")

	testCases := []struct {
		name     string
		terminal string
		code     string
		status   int
		errCode  string
	}{
		{"unknown code", "bilik-1", "RT12-ZZZZZZ", http.StatusNotFound, "invalid_code"},
		{"not checked in", "bilik-2", registered.InvitationCode, http.StatusConflict, "not_checked_in"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/terminals/"+tc.terminal+"/scan", models.ScanRequest{Code: tc.code}, nil)
			w := serve(h.Scan, req, map[string]string{"id": tc.terminal})
			testutil.AssertStatus(t, w, tc.status)

			view := terminalView(t, w)
			if view.State != session.StateStandby || view.ErrorCode != tc.errCode {
				t.Errorf("Expected standby with %s, got %+v", tc.errCode, view)
			}
			if view.Voter != nil {
				t.Error("Expected no voter on a rejected scan")
			}
		})
	}
}

func TestTerminalUploadsNeedSession(t *testing.T) {
	f := newFixture(t)
	h := NewTerminalHandler(f.registry)
	id := map[string]string{"id": "bilik-1"}

	req := multipartRequest(t, "/terminals/bilik-1/video", "video", "video/webm", []byte("webm"))
	w := serve(h.Video, req, id)
	testutil.AssertStatus(t, w, http.StatusConflict)

	req = testutil.MakeRequest("POST", "/terminals/bilik-1/snapshot", nil, nil)
	w = serve(h.Snapshot, req, id)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
