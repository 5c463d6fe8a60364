// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pilrt/db"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
	"github.com/danielhkuo/pilrt/store/storetest"
	"github.com/danielhkuo/pilrt/testutil"
)

func newTestStore(t *testing.T) *Store {
	return New(testutil.SetupTestDB(t), db.DialectSQLite, nil)
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestPlaceholderRewrite(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{db.DialectSQLite, "SELECT * FROM voters WHERE id = ? AND status = ?"},
		{db.DialectPostgres, "SELECT * FROM voters WHERE id = $1 AND status = $2"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			s := &Store{dialect: tt.dialect}
			assert.Equal(t, tt.want, s.q("SELECT * FROM voters WHERE id = $1 AND status = $2"))
		})
	}
}

func TestEmptySettingsKeepsGatesClosed(t *testing.T) {
	s := newTestStore(t)
	cfg, err := s.Config(context.Background())
	require.NoError(t, err)
	assert.False(t, cfg.IsVotingOpen)
	assert.False(t, cfg.IsRegistrationOpen)
}

func TestVoteForUnknownCandidateFails(t *testing.T) {
	s := newTestStore(t)
	ghost := "tidak-ada"
	_, err := s.InsertVote(context.Background(), models.Vote{CandidateID: &ghost, IsValid: true, RecordedBy: "staff"})
	assert.ErrorIs(t, err, models.ErrStoreWrite)
}

func TestVotesCannotBeJoinedToVoters(t *testing.T) {
	ctx := context.Background()
	conn := testutil.SetupTestDB(t)
	s := New(conn, db.DialectSQLite, nil)

	c, err := s.InsertCandidate(ctx, models.Candidate{ID: "c1", Name: "Pak Ahmad", DisplayOrder: 1})
	require.NoError(t, err)
	start := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("v%d", i)
		_, err := s.InsertVoter(ctx, models.Voter{ID: id, Name: "Warga " + id, InvitationCode: "RT12-JOIN0" + id[1:]})
		require.NoError(t, err)
		_, err = s.MarkPresent(ctx, id, start)
		require.NoError(t, err)
		_, err = s.CastVote(ctx, id, models.Vote{CandidateID: &c.ID, IsValid: true}, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	var joined int
	err = conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes JOIN voters ON votes.created_at = voters.voted_at`).Scan(&joined)
	require.NoError(t, err)
	assert.Zero(t, joined)

	rows, err := conn.QueryContext(ctx, `SELECT name FROM pragma_table_info('votes')`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var column string
		require.NoError(t, rows.Scan(&column))
		assert.NotContains(t, strings.ToLower(column), "voter")
	}
	require.NoError(t, rows.Err())
}
