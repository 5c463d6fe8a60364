// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package memstore is an in-memory Data Store. It backs tests and the
// DATABASE_TYPE=memory development mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pilrt/feed"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

type Store struct {
	mu         sync.RWMutex
	voters     map[string]models.Voter
	byCode     map[string]string
	candidates []models.Candidate
	votes      []models.Vote
	config     models.ElectionConfig
	audits     map[string]models.VotingAudit

	broker *feed.Broker
}

var _ store.Store = (*Store)(nil)

// New creates an empty store publishing changes on broker. A nil broker
// gets a private one.
func New(broker *feed.Broker) *Store {
	if broker == nil {
		broker = feed.NewBroker()
	}
	return &Store{
		voters: make(map[string]models.Voter),
		byCode: make(map[string]string),
		audits: make(map[string]models.VotingAudit),
		config: models.ElectionConfig{ElectionName: "Pemilihan Ketua RT"},
		broker: broker,
	}
}

func (s *Store) publish(table, op, id string) {
	s.broker.Publish(store.Change{Table: table, Op: op, ID: id})
}

func (s *Store) VoterByCode(ctx context.Context, code string) (models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return models.Voter{}, models.ErrNotFound
	}
	return cloneVoter(s.voters[id]), nil
}

func (s *Store) VoterByID(ctx context.Context, id string) (models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.voters[id]
	if !ok {
		return models.Voter{}, models.ErrNotFound
	}
	return cloneVoter(v), nil
}

func (s *Store) ListVoters(ctx context.Context, f store.VoterFilter) ([]models.Voter, error) {
	s.mu.RLock()
	result := make([]models.Voter, 0, len(s.voters))
	for _, v := range s.voters {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		result = append(result, cloneVoter(v))
	}
	s.mu.RUnlock()

	store.SortVoters(result, f.OrderBy)
	return result, nil
}

func (s *Store) InsertVoter(ctx context.Context, v models.Voter) (models.Voter, error) {
	s.mu.Lock()
	if _, exists := s.byCode[v.InvitationCode]; exists {
		s.mu.Unlock()
		return models.Voter{}, models.ErrDuplicateCode
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = models.StatusRegistered
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	s.voters[v.ID] = cloneVoter(v)
	s.byCode[v.InvitationCode] = v.ID
	s.mu.Unlock()

	s.publish(models.TableVoters, store.OpInsert, v.ID)
	return v, nil
}

func (s *Store) UpdateVoter(ctx context.Context, id string, p store.VoterPatch) error {
	s.mu.Lock()
	v, ok := s.voters[id]
	if !ok {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	store.ApplyPatch(&v, p)
	s.voters[id] = v
	s.mu.Unlock()

	s.publish(models.TableVoters, store.OpUpdate, id)
	return nil
}

func (s *Store) MarkPresent(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	v, ok := s.voters[id]
	if !ok {
		s.mu.Unlock()
		return false, models.ErrNotFound
	}
	if v.IsPresent {
		s.mu.Unlock()
		return false, nil
	}
	t := now
	v.IsPresent = true
	v.Status = models.StatusCheckedIn
	v.CheckedInAt = &t
	v.QueueTimestamp = &t
	s.voters[id] = v
	s.mu.Unlock()

	s.publish(models.TableVoters, store.OpUpdate, id)
	return true, nil
}

func (s *Store) Candidates(ctx context.Context) ([]models.Candidate, error) {
	s.mu.RLock()
	result := append([]models.Candidate(nil), s.candidates...)
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].DisplayOrder < result[j].DisplayOrder })
	return result, nil
}

func (s *Store) InsertCandidate(ctx context.Context, c models.Candidate) (models.Candidate, error) {
	s.mu.Lock()
	for _, existing := range s.candidates {
		if existing.DisplayOrder == c.DisplayOrder {
			s.mu.Unlock()
			return models.Candidate{}, fmt.Errorf("display order %d already used", c.DisplayOrder)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.candidates = append(s.candidates, c)
	s.mu.Unlock()

	s.publish(models.TableCandidates, store.OpInsert, c.ID)
	return c, nil
}

func (s *Store) CastVote(ctx context.Context, voterID string, v models.Vote, now time.Time) (models.Vote, error) {
	s.mu.Lock()
	voter, ok := s.voters[voterID]
	if !ok {
		s.mu.Unlock()
		return models.Vote{}, models.ErrNotFound
	}
	if voter.HasVoted {
		s.mu.Unlock()
		return models.Vote{}, models.ErrAlreadyVoted
	}
	if !voter.IsPresent {
		s.mu.Unlock()
		return models.Vote{}, models.ErrNotCheckedIn
	}

	v = s.newVote(v, now)
	t := store.VotedAtTime(now)
	voter.HasVoted = true
	voter.VotedAt = &t
	s.voters[voterID] = voter
	s.votes = append(s.votes, v)
	s.mu.Unlock()

	s.publish(models.TableVotes, store.OpInsert, v.ID)
	s.publish(models.TableVoters, store.OpUpdate, voterID)
	return v, nil
}

func (s *Store) InsertVote(ctx context.Context, v models.Vote) (models.Vote, error) {
	s.mu.Lock()
	v = s.newVote(v, time.Now().UTC())
	s.votes = append(s.votes, v)
	s.mu.Unlock()

	s.publish(models.TableVotes, store.OpInsert, v.ID)
	return v, nil
}

// newVote fills defaults; callers hold the lock.
func (s *Store) newVote(v models.Vote, now time.Time) models.Vote {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.CreatedAt = store.BallotTime(v.CreatedAt)
	if v.CandidateID != nil {
		id := *v.CandidateID
		v.CandidateID = &id
	}
	return v
}

func (s *Store) DeleteLastVote(ctx context.Context) (models.Vote, error) {
	s.mu.Lock()
	if len(s.votes) == 0 {
		s.mu.Unlock()
		return models.Vote{}, models.ErrNotFound
	}
	last := 0
	for i, v := range s.votes {
		if !v.CreatedAt.Before(s.votes[last].CreatedAt) {
			last = i
		}
	}
	v := s.votes[last]
	s.votes = append(s.votes[:last], s.votes[last+1:]...)
	s.mu.Unlock()

	s.publish(models.TableVotes, store.OpDelete, v.ID)
	return v, nil
}

func (s *Store) ListVotes(ctx context.Context) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vote(nil), s.votes...), nil
}

func (s *Store) Config(ctx context.Context) (models.ElectionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

func (s *Store) UpsertConfig(ctx context.Context, c models.ElectionConfig) error {
	s.mu.Lock()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	s.config = c
	s.mu.Unlock()

	s.publish(models.TableSettings, store.OpUpdate, "")
	return nil
}

func (s *Store) InsertAudit(ctx context.Context, a models.VotingAudit) (models.VotingAudit, error) {
	s.mu.Lock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.audits[a.ID] = a
	s.mu.Unlock()

	s.publish(models.TableAudits, store.OpInsert, a.ID)
	return a, nil
}

func (s *Store) UpdateAudit(ctx context.Context, a models.VotingAudit) error {
	s.mu.Lock()
	if _, ok := s.audits[a.ID]; !ok {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	s.audits[a.ID] = a
	s.mu.Unlock()

	s.publish(models.TableAudits, store.OpUpdate, a.ID)
	return nil
}

// Audits returns every audit record for a voter.
func (s *Store) Audits(voterID string) []models.VotingAudit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.VotingAudit
	for _, a := range s.audits {
		if a.VoterID == voterID {
			result = append(result, a)
		}
	}
	return result
}

func (s *Store) Subscribe(table string, fn func(store.Change)) func() {
	return s.broker.Subscribe(table, fn)
}

func cloneVoter(v models.Voter) models.Voter {
	v.QueueTimestamp = cloneTime(v.QueueTimestamp)
	v.CalledAt = cloneTime(v.CalledAt)
	v.CheckedInAt = cloneTime(v.CheckedInAt)
	v.VotedAt = cloneTime(v.VotedAt)
	return v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
