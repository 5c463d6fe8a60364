// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storetest holds the behavior every Data Store implementation must
// share. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

var epoch = time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)

// Run exercises the store contract against stores built by newStore. Each
// subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("VoterLookup", func(t *testing.T) { testVoterLookup(t, newStore(t)) })
	t.Run("DuplicateCode", func(t *testing.T) { testDuplicateCode(t, newStore(t)) })
	t.Run("UpdateVoter", func(t *testing.T) { testUpdateVoter(t, newStore(t)) })
	t.Run("ListVotersOrder", func(t *testing.T) { testListVotersOrder(t, newStore(t)) })
	t.Run("MarkPresentLatch", func(t *testing.T) { testMarkPresentLatch(t, newStore(t)) })
	t.Run("CastVoteLatch", func(t *testing.T) { testCastVoteLatch(t, newStore(t)) })
	t.Run("ConcurrentCastVote", func(t *testing.T) { testConcurrentCastVote(t, newStore(t)) })
	t.Run("BallotsUnlinkable", func(t *testing.T) { testBallotsUnlinkable(t, newStore(t)) })
	t.Run("VotesAndUndo", func(t *testing.T) { testVotesAndUndo(t, newStore(t)) })
	t.Run("Config", func(t *testing.T) { testConfig(t, newStore(t)) })
	t.Run("Audits", func(t *testing.T) { testAudits(t, newStore(t)) })
	t.Run("ChangesPublished", func(t *testing.T) { testChangesPublished(t, newStore(t)) })
}

func insertVoter(t *testing.T, s store.Store, id, code string) models.Voter {
	t.Helper()
	v, err := s.InsertVoter(context.Background(), models.Voter{
		ID:             id,
		Name:           "Warga " + id,
		InvitationCode: code,
		Gender:         models.GenderFemale,
		CreatedAt:      epoch,
	})
	require.NoError(t, err)
	return v
}

func insertCandidate(t *testing.T, s store.Store, id string, order int) models.Candidate {
	t.Helper()
	c, err := s.InsertCandidate(context.Background(), models.Candidate{ID: id, Name: "Calon " + id, DisplayOrder: order})
	require.NoError(t, err)
	return c
}

func testVoterLookup(t *testing.T, s store.Store) {
	ctx := context.Background()
	v := insertVoter(t, s, "v1", "RT12-AAAAAA")
	assert.Equal(t, models.StatusRegistered, v.Status)

	byCode, err := s.VoterByCode(ctx, "RT12-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "v1", byCode.ID)
	assert.Equal(t, models.GenderFemale, byCode.Gender)
	assert.False(t, byCode.IsPresent)
	assert.Nil(t, byCode.QueueTimestamp)

	_, err = s.VoterByCode(ctx, "RT12-ZZZZZZ")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.VoterByID(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testDuplicateCode(t *testing.T, s store.Store) {
	insertVoter(t, s, "v1", "RT12-AAAAAA")
	_, err := s.InsertVoter(context.Background(), models.Voter{ID: "v2", Name: "Lain", InvitationCode: "RT12-AAAAAA"})
	assert.ErrorIs(t, err, models.ErrDuplicateCode)
}

func testUpdateVoter(t *testing.T, s store.Store) {
	ctx := context.Background()
	insertVoter(t, s, "v1", "RT12-AAAAAA")
	_, err := s.MarkPresent(ctx, "v1", epoch)
	require.NoError(t, err)

	called := models.StatusCalled
	at := epoch.Add(time.Minute)
	require.NoError(t, s.UpdateVoter(ctx, "v1", store.VoterPatch{Status: &called, CalledAt: &at}))

	v, err := s.VoterByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCalled, v.Status)
	require.NotNil(t, v.CalledAt)
	assert.True(t, v.CalledAt.Equal(at))

	waiting := models.StatusCheckedIn
	skips := 1
	ts := epoch.Add(2 * time.Minute)
	require.NoError(t, s.UpdateVoter(ctx, "v1", store.VoterPatch{
		Status:         &waiting,
		QueueTimestamp: &ts,
		ClearCalledAt:  true,
		SkipCount:      &skips,
	}))

	v, err = s.VoterByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, v.Status)
	assert.Nil(t, v.CalledAt)
	assert.Equal(t, 1, v.SkipCount)
	require.NotNil(t, v.QueueTimestamp)
	assert.True(t, v.QueueTimestamp.Equal(ts))

	assert.ErrorIs(t, s.UpdateVoter(ctx, "nobody", store.VoterPatch{Status: &waiting}), models.ErrNotFound)
}

func testListVotersOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	// Check in out of insertion order.
	for i, id := range []string{"v3", "v1", "v2"} {
		insertVoter(t, s, id, "RT12-CODE0"+id[1:])
		_, err := s.MarkPresent(ctx, id, epoch.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	insertVoter(t, s, "v4", "RT12-CODE04")

	waiting, err := s.ListVoters(ctx, store.VoterFilter{Status: models.StatusCheckedIn, OrderBy: store.OrderQueue})
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "v1", "v2"}, ids(waiting))

	called := models.StatusCalled
	for i, id := range []string{"v1", "v2"} {
		at := epoch.Add(time.Duration(10+i) * time.Second)
		require.NoError(t, s.UpdateVoter(ctx, id, store.VoterPatch{Status: &called, CalledAt: &at}))
	}
	calledList, err := s.ListVoters(ctx, store.VoterFilter{Status: models.StatusCalled, OrderBy: store.OrderCalledDes})
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v1"}, ids(calledList))

	all, err := s.ListVoters(ctx, store.VoterFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func testMarkPresentLatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	insertVoter(t, s, "v1", "RT12-AAAAAA")

	flipped, err := s.MarkPresent(ctx, "v1", epoch)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.MarkPresent(ctx, "v1", epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, flipped)

	v, err := s.VoterByID(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.IsPresent)
	assert.Equal(t, models.StatusCheckedIn, v.Status)
	require.NotNil(t, v.QueueTimestamp)
	assert.True(t, v.QueueTimestamp.Equal(epoch), "second call must not move the voter in the queue")
	require.NotNil(t, v.CheckedInAt)

	_, err = s.MarkPresent(ctx, "nobody", epoch)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testCastVoteLatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := insertCandidate(t, s, "c1", 1)
	insertVoter(t, s, "v1", "RT12-AAAAAA")
	insertVoter(t, s, "v2", "RT12-BBBBBB")
	_, err := s.MarkPresent(ctx, "v1", epoch)
	require.NoError(t, err)

	ballot := models.Vote{CandidateID: &c.ID, IsValid: true, RecordedBy: models.RecordedByTerminal + "bilik-1"}

	_, err = s.CastVote(ctx, "v2", ballot, epoch)
	assert.ErrorIs(t, err, models.ErrNotCheckedIn)

	vote, err := s.CastVote(ctx, "v1", ballot, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, vote.ID)

	_, err = s.CastVote(ctx, "v1", ballot, epoch.Add(2*time.Minute))
	assert.ErrorIs(t, err, models.ErrAlreadyVoted)

	v, err := s.VoterByID(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.HasVoted)
	assert.Equal(t, models.StatusCheckedIn, v.Status, "casting a ballot does not move the voter in the queue")

	votes, err := s.ListVotes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.NotNil(t, votes[0].CandidateID)
	assert.Equal(t, "c1", *votes[0].CandidateID)
}

func testConcurrentCastVote(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := insertCandidate(t, s, "c1", 1)
	insertVoter(t, s, "v1", "RT12-AAAAAA")
	_, err := s.MarkPresent(ctx, "v1", epoch)
	require.NoError(t, err)

	var successes, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CastVote(ctx, "v1", models.Vote{CandidateID: &c.ID, IsValid: true}, epoch)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, models.ErrAlreadyVoted):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(7), rejected.Load())

	votes, err := s.ListVotes(ctx)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func testBallotsUnlinkable(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := insertCandidate(t, s, "c1", 1)

	// The first cast lands exactly on a whole minute.
	castAt := []time.Time{epoch, epoch.Add(20 * time.Second), epoch.Add(61*time.Second + 250*time.Microsecond)}
	for i, at := range castAt {
		id := fmt.Sprintf("v%d", i+1)
		insertVoter(t, s, id, fmt.Sprintf("RT12-LINK0%d", i+1))
		_, err := s.MarkPresent(ctx, id, epoch.Add(-time.Hour))
		require.NoError(t, err)
		_, err = s.CastVote(ctx, id, models.Vote{CandidateID: &c.ID, IsValid: true, RecordedBy: models.RecordedByTerminal + "bilik-1"}, at)
		require.NoError(t, err)
	}
	_, err := s.InsertVote(ctx, models.Vote{IsValid: false, RecordedBy: "staff", CreatedAt: epoch.Add(time.Minute)})
	require.NoError(t, err)

	votes, err := s.ListVotes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 4)
	voters, err := s.ListVoters(ctx, store.VoterFilter{})
	require.NoError(t, err)
	require.Len(t, voters, 3)

	for _, voter := range voters {
		require.True(t, voter.HasVoted)
		require.NotNil(t, voter.VotedAt)
		for _, vote := range votes {
			assert.False(t, vote.CreatedAt.Equal(*voter.VotedAt),
				"vote %s shares a timestamp with voter %s", vote.ID, voter.ID)
			assert.NotEqual(t, voter.ID, vote.ID)
			assert.NotContains(t, vote.RecordedBy, voter.ID)
		}
	}

	voteType := reflect.TypeOf(models.Vote{})
	for i := 0; i < voteType.NumField(); i++ {
		f := voteType.Field(i)
		assert.NotContains(t, strings.ToLower(f.Name+" "+f.Tag.Get("json")), "voter", "vote field %s", f.Name)
	}
}

func testVotesAndUndo(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := insertCandidate(t, s, "c1", 1)

	_, err := s.DeleteLastVote(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	first, err := s.InsertVote(ctx, models.Vote{CandidateID: &c.ID, IsValid: true, RecordedBy: "staff", CreatedAt: epoch})
	require.NoError(t, err)
	second, err := s.InsertVote(ctx, models.Vote{IsValid: false, RecordedBy: "staff", CreatedAt: epoch.Add(time.Minute)})
	require.NoError(t, err)

	removed, err := s.DeleteLastVote(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, removed.ID)
	assert.Nil(t, removed.CandidateID)

	votes, err := s.ListVotes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, first.ID, votes[0].ID)
}

func testConfig(t *testing.T, s store.Store) {
	ctx := context.Background()

	cfg, err := s.Config(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.IsRegistrationOpen)
	assert.False(t, cfg.IsVotingOpen)

	starts := epoch
	require.NoError(t, s.UpsertConfig(ctx, models.ElectionConfig{
		IsRegistrationOpen: true,
		ElectionName:       "Pemilihan Ketua RT 12",
		StartsAt:           &starts,
	}))
	require.NoError(t, s.UpsertConfig(ctx, models.ElectionConfig{
		IsRegistrationOpen: true,
		IsVotingOpen:       true,
		ElectionName:       "Pemilihan Ketua RT 12",
		StartsAt:           &starts,
	}))

	cfg, err = s.Config(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.IsRegistrationOpen)
	assert.True(t, cfg.IsVotingOpen)
	assert.Equal(t, "Pemilihan Ketua RT 12", cfg.ElectionName)
	require.NotNil(t, cfg.StartsAt)
	assert.True(t, cfg.StartsAt.Equal(starts))
	assert.Nil(t, cfg.EndsAt)
}

func testAudits(t *testing.T, s store.Store) {
	ctx := context.Background()
	insertVoter(t, s, "v1", "RT12-AAAAAA")

	a, err := s.InsertAudit(ctx, models.VotingAudit{ID: "a1", VoterID: "v1", TerminalID: "bilik-1"})
	require.NoError(t, err)
	assert.False(t, a.CreatedAt.IsZero())

	a.SnapshotURL = "http://minio/pilrt-audit/audits/v1/a1/snapshot.jpg"
	require.NoError(t, s.UpdateAudit(ctx, a))

	assert.ErrorIs(t, s.UpdateAudit(ctx, models.VotingAudit{ID: "missing"}), models.ErrNotFound)
}

func testChangesPublished(t *testing.T, s store.Store) {
	ctx := context.Background()
	changes := make(chan store.Change, 16)
	cancel := s.Subscribe(models.TableVoters, func(c store.Change) { changes <- c })
	defer cancel()

	insertVoter(t, s, "v1", "RT12-AAAAAA")
	_, err := s.MarkPresent(ctx, "v1", epoch)
	require.NoError(t, err)
	// Writes to other tables are not delivered to a voters subscriber.
	require.NoError(t, s.UpsertConfig(ctx, models.ElectionConfig{ElectionName: "x"}))

	want := []string{store.OpInsert, store.OpUpdate}
	for _, op := range want {
		select {
		case c := <-changes:
			assert.Equal(t, models.TableVoters, c.Table)
			assert.Equal(t, op, c.Op)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s change", op)
		}
	}
	select {
	case c := <-changes:
		t.Errorf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func ids(voters []models.Voter) []string {
	out := make([]string, len(voters))
	for i, v := range voters {
		out[i] = v.ID
	}
	return out
}
