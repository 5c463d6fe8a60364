// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlstore implements the Data Store on database/sql for the
// postgres and sqlite dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/danielhkuo/pilrt/db"
	"github.com/danielhkuo/pilrt/feed"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type Store struct {
	db      *sql.DB
	dialect string
	broker  *feed.Broker
}

var _ store.Store = (*Store)(nil)

func New(conn *sql.DB, dialect string, broker *feed.Broker) *Store {
	if broker == nil {
		broker = feed.NewBroker()
	}
	return &Store{db: conn, dialect: dialect, broker: broker}
}

var placeholder = regexp.MustCompile(`\$\d+`)

// q adapts a postgres-style query to the store's dialect. Queries number
// their parameters in order of appearance, so sqlite's positional "?" binds
// the same way.
func (s *Store) q(query string) string {
	if s.dialect == db.DialectSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

func (s *Store) publish(table, op, id string) {
	s.broker.Publish(store.Change{Table: table, Op: op, ID: id})
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStoreWrite, op, err)
}

const voterColumns = `id, name, nik, address, invitation_code, gender, is_present, has_voted, status,
	queue_timestamp, called_at, skip_count, checked_in_at, voted_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (models.Voter, error) {
	var v models.Voter
	var queueTS, calledAt, checkedInAt, votedAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.Name, &v.NIK, &v.Address, &v.InvitationCode, &v.Gender,
		&v.IsPresent, &v.HasVoted, &v.Status,
		&queueTS, &calledAt, &v.SkipCount, &checkedInAt, &votedAt, &v.CreatedAt,
	)
	if err != nil {
		return models.Voter{}, err
	}
	v.QueueTimestamp = nullTime(queueTS)
	v.CalledAt = nullTime(calledAt)
	v.CheckedInAt = nullTime(checkedInAt)
	v.VotedAt = nullTime(votedAt)
	return v, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func (s *Store) VoterByCode(ctx context.Context, code string) (models.Voter, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+voterColumns+` FROM voters WHERE invitation_code = $1`), code)
	v, err := scanVoter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, models.ErrNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to query voter by code: %w", err)
	}
	return v, nil
}

func (s *Store) VoterByID(ctx context.Context, id string) (models.Voter, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+voterColumns+` FROM voters WHERE id = $1`), id)
	v, err := scanVoter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, models.ErrNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to query voter: %w", err)
	}
	return v, nil
}

func (s *Store) ListVoters(ctx context.Context, f store.VoterFilter) ([]models.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters`
	var args []any
	if f.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, f.Status)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query voters: %w", err)
	}
	defer rows.Close()

	var voters []models.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}

	// sqlite compares timestamps as text; order in Go for both dialects.
	store.SortVoters(voters, f.OrderBy)
	return voters, nil
}

func (s *Store) InsertVoter(ctx context.Context, v models.Voter) (models.Voter, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = models.StatusRegistered
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO voters (id, name, nik, address, invitation_code, gender, is_present, has_voted, status,
			queue_timestamp, called_at, skip_count, checked_in_at, voted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`), v.ID, v.Name, v.NIK, v.Address, v.InvitationCode, v.Gender, v.IsPresent, v.HasVoted, v.Status,
		v.QueueTimestamp, v.CalledAt, v.SkipCount, v.CheckedInAt, v.VotedAt, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Voter{}, models.ErrDuplicateCode
		}
		return models.Voter{}, writeErr("insert voter", err)
	}

	s.publish(models.TableVoters, store.OpInsert, v.ID)
	return v, nil
}

func (s *Store) UpdateVoter(ctx context.Context, id string, p store.VoterPatch) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.QueueTimestamp != nil {
		add("queue_timestamp", *p.QueueTimestamp)
	}
	if p.ClearCalledAt {
		sets = append(sets, "called_at = NULL")
	} else if p.CalledAt != nil {
		add("called_at", *p.CalledAt)
	}
	if p.SkipCount != nil {
		add("skip_count", *p.SkipCount)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE voters SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return writeErr("update voter", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	s.publish(models.TableVoters, store.OpUpdate, id)
	return nil
}

func (s *Store) MarkPresent(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE voters
		SET is_present = TRUE, status = 'checked_in', checked_in_at = $1, queue_timestamp = $2
		WHERE id = $3 AND is_present = FALSE
	`), now, now, id)
	if err != nil {
		return false, writeErr("mark present", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, writeErr("mark present", err)
	}
	if n == 0 {
		if _, err := s.VoterByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	s.publish(models.TableVoters, store.OpUpdate, id)
	return true, nil
}

func (s *Store) Candidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, photo_url, display_order FROM candidates ORDER BY display_order
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.PhotoURL, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *Store) InsertCandidate(ctx context.Context, c models.Candidate) (models.Candidate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO candidates (id, name, photo_url, display_order) VALUES ($1, $2, $3, $4)
	`), c.ID, c.Name, c.PhotoURL, c.DisplayOrder)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Candidate{}, fmt.Errorf("display order %d already used", c.DisplayOrder)
		}
		return models.Candidate{}, writeErr("insert candidate", err)
	}

	s.publish(models.TableCandidates, store.OpInsert, c.ID)
	return c, nil
}

func (s *Store) CastVote(ctx context.Context, voterID string, v models.Vote, now time.Time) (models.Vote, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.CreatedAt = store.BallotTime(v.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, writeErr("begin cast vote", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE voters SET has_voted = TRUE, voted_at = $1
		WHERE id = $2 AND has_voted = FALSE AND is_present = TRUE
	`), store.VotedAtTime(now), voterID)
	if err != nil {
		return models.Vote{}, writeErr("latch has_voted", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Work out which precondition failed.
		var hasVoted, isPresent bool
		err := tx.QueryRowContext(ctx, s.q(`SELECT has_voted, is_present FROM voters WHERE id = $1`), voterID).
			Scan(&hasVoted, &isPresent)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.Vote{}, models.ErrNotFound
		case err != nil:
			return models.Vote{}, fmt.Errorf("failed to query voter: %w", err)
		case hasVoted:
			return models.Vote{}, models.ErrAlreadyVoted
		default:
			return models.Vote{}, models.ErrNotCheckedIn
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO votes (id, candidate_id, is_valid, recorded_by, created_at) VALUES ($1, $2, $3, $4, $5)
	`), v.ID, v.CandidateID, v.IsValid, v.RecordedBy, v.CreatedAt); err != nil {
		return models.Vote{}, writeErr("insert vote", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, writeErr("commit cast vote", err)
	}

	s.publish(models.TableVotes, store.OpInsert, v.ID)
	s.publish(models.TableVoters, store.OpUpdate, voterID)
	return v, nil
}

func (s *Store) InsertVote(ctx context.Context, v models.Vote) (models.Vote, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.CreatedAt = store.BallotTime(v.CreatedAt)

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO votes (id, candidate_id, is_valid, recorded_by, created_at) VALUES ($1, $2, $3, $4, $5)
	`), v.ID, v.CandidateID, v.IsValid, v.RecordedBy, v.CreatedAt)
	if err != nil {
		return models.Vote{}, writeErr("insert vote", err)
	}

	s.publish(models.TableVotes, store.OpInsert, v.ID)
	return v, nil
}

func (s *Store) DeleteLastVote(ctx context.Context) (models.Vote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, writeErr("begin delete vote", err)
	}
	defer tx.Rollback()

	v, err := scanVote(tx.QueryRowContext(ctx, `
		SELECT id, candidate_id, is_valid, recorded_by, created_at
		FROM votes ORDER BY created_at DESC, id DESC LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, models.ErrNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query last vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM votes WHERE id = $1`), v.ID); err != nil {
		return models.Vote{}, writeErr("delete vote", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Vote{}, writeErr("commit delete vote", err)
	}

	s.publish(models.TableVotes, store.OpDelete, v.ID)
	return v, nil
}

func scanVote(row rowScanner) (models.Vote, error) {
	var v models.Vote
	var candidateID sql.NullString
	if err := row.Scan(&v.ID, &candidateID, &v.IsValid, &v.RecordedBy, &v.CreatedAt); err != nil {
		return models.Vote{}, err
	}
	if candidateID.Valid {
		v.CandidateID = &candidateID.String
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func (s *Store) ListVotes(ctx context.Context) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_id, is_valid, recorded_by, created_at FROM votes ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *Store) Config(ctx context.Context) (models.ElectionConfig, error) {
	var c models.ElectionConfig
	var startsAt, endsAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT is_voting_open, is_registration_open, election_name, location, starts_at, ends_at, updated_at
		FROM settings WHERE id = 1
	`).Scan(&c.IsVotingOpen, &c.IsRegistrationOpen, &c.ElectionName, &c.Location, &startsAt, &endsAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// No settings row yet: both gates closed.
		return models.ElectionConfig{}, nil
	}
	if err != nil {
		return models.ElectionConfig{}, fmt.Errorf("failed to query settings: %w", err)
	}
	c.StartsAt = nullTime(startsAt)
	c.EndsAt = nullTime(endsAt)
	return c, nil
}

func (s *Store) UpsertConfig(ctx context.Context, c models.ElectionConfig) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO settings (id, is_voting_open, is_registration_open, election_name, location, starts_at, ends_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			is_voting_open = excluded.is_voting_open,
			is_registration_open = excluded.is_registration_open,
			election_name = excluded.election_name,
			location = excluded.location,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			updated_at = excluded.updated_at
	`), c.IsVotingOpen, c.IsRegistrationOpen, c.ElectionName, c.Location, c.StartsAt, c.EndsAt, c.UpdatedAt)
	if err != nil {
		return writeErr("upsert settings", err)
	}

	s.publish(models.TableSettings, store.OpUpdate, "1")
	return nil
}

func (s *Store) InsertAudit(ctx context.Context, a models.VotingAudit) (models.VotingAudit, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO voting_audits (id, voter_id, terminal_id, snapshot_url, video_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), a.ID, a.VoterID, a.TerminalID, a.SnapshotURL, a.VideoURL, a.CreatedAt)
	if err != nil {
		return models.VotingAudit{}, writeErr("insert audit", err)
	}

	s.publish(models.TableAudits, store.OpInsert, a.ID)
	return a, nil
}

func (s *Store) UpdateAudit(ctx context.Context, a models.VotingAudit) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE voting_audits SET snapshot_url = $1, video_url = $2 WHERE id = $3
	`), a.SnapshotURL, a.VideoURL, a.ID)
	if err != nil {
		return writeErr("update audit", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	s.publish(models.TableAudits, store.OpUpdate, a.ID)
	return nil
}

func (s *Store) Subscribe(table string, fn func(store.Change)) func() {
	return s.broker.Subscribe(table, fn)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
