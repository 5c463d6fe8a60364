// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// Epoch is the start time used by fixtures.
var Epoch = time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)

// SetGates writes the election gates.
func SetGates(t *testing.T, s store.Store, registrationOpen, votingOpen bool) {
	t.Helper()
	err := s.UpsertConfig(context.Background(), models.ElectionConfig{
		ElectionName:       "Pemilihan Ketua RT 12",
		IsRegistrationOpen: registrationOpen,
		IsVotingOpen:       votingOpen,
	})
	if err != nil {
		t.Fatalf("Failed to set gates: %v", err)
	}
}

// CreateTestVoter inserts a registered voter with the given code.
func CreateTestVoter(t *testing.T, s store.Store, name, code string) models.Voter {
	t.Helper()
	v, err := s.InsertVoter(context.Background(), models.Voter{
		Name:           name,
		InvitationCode: code,
		CreatedAt:      Epoch,
	})
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}
	return v
}

// CreateWaitingVoters inserts n checked-in voters whose queue timestamps
// are one minute apart starting at Epoch, and returns them in queue order.
func CreateWaitingVoters(t *testing.T, s store.Store, n int) []models.Voter {
	t.Helper()
	voters := make([]models.Voter, 0, n)
	for i := 0; i < n; i++ {
		ts := Epoch.Add(time.Duration(i) * time.Minute)
		v, err := s.InsertVoter(context.Background(), models.Voter{
			ID:             fmt.Sprintf("voter-%02d", i),
			Name:           fmt.Sprintf("Warga %02d", i),
			InvitationCode: fmt.Sprintf("RT12-W%05d", i),
			IsPresent:      true,
			Status:         models.StatusCheckedIn,
			QueueTimestamp: &ts,
			CheckedInAt:    &ts,
			CreatedAt:      Epoch,
		})
		if err != nil {
			t.Fatalf("Failed to create waiting voter: %v", err)
		}
		voters = append(voters, v)
	}
	return voters
}

// CreateTestCandidates inserts candidates in display order.
func CreateTestCandidates(t *testing.T, s store.Store, names ...string) []models.Candidate {
	t.Helper()
	var out []models.Candidate
	for i, name := range names {
		c, err := s.InsertCandidate(context.Background(), models.Candidate{
			ID:           fmt.Sprintf("cand-%d", i+1),
			Name:         name,
			DisplayOrder: i + 1,
		})
		if err != nil {
			t.Fatalf("Failed to create test candidate: %v", err)
		}
		out = append(out, c)
	}
	return out
}

// IDs returns the voter ids in order.
func IDs(voters []models.Voter) []string {
	ids := make([]string, len(voters))
	for i, v := range voters {
		ids[i] = v.ID
	}
	return ids
}
