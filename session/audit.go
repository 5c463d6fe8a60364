// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// MediaStore persists audit media and returns a reference URL.
type MediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// auditTrail owns one session's audit record. Writes are serialized so a
// late snapshot update never overwrites a newer video link.
type auditTrail struct {
	mu    sync.Mutex
	store store.Store
	rec   models.VotingAudit
	saved bool
}

func newAuditTrail(s store.Store, rec models.VotingAudit) *auditTrail {
	return &auditTrail{store: s, rec: rec}
}

func (a *auditTrail) id() string {
	return a.rec.ID
}

func (a *auditTrail) voterID() string {
	return a.rec.VoterID
}

// save applies mutate and writes the record, inserting it on first use.
// Failures are logged and returned; callers treat them as best-effort.
func (a *auditTrail) save(ctx context.Context, mutate func(*models.VotingAudit)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mutate != nil {
		mutate(&a.rec)
	}

	var err error
	if a.saved {
		err = a.store.UpdateAudit(ctx, a.rec)
	} else {
		_, err = a.store.InsertAudit(ctx, a.rec)
		a.saved = err == nil
	}
	if err != nil {
		slog.Warn("failed to save voting audit", "audit_id", a.rec.ID, "error", err)
	}
	return err
}

func (a *auditTrail) snapshot() models.VotingAudit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec
}

// Snapshot uploads the still image taken when the voter was admitted. It is
// best-effort: a failure is a logged ErrDevice and never changes the
// terminal state.
func (t *Terminal) Snapshot(ctx context.Context, r io.Reader, size int64, contentType string) (models.VotingAudit, error) {
	trail, err := t.currentAudit()
	if err != nil {
		return models.VotingAudit{}, err
	}

	url, err := t.deps.upload(ctx, trail, "snapshot", r, size, contentType)
	if err != nil {
		return trail.snapshot(), err
	}
	if err := trail.save(ctx, func(a *models.VotingAudit) { a.SnapshotURL = url }); err != nil {
		return trail.snapshot(), fmt.Errorf("%w: %v", models.ErrDevice, err)
	}
	return trail.snapshot(), nil
}

// AttachVideo queues the session recording for upload. The upload and the
// audit linkage run in the background and never gate the vote.
func (t *Terminal) AttachVideo(data []byte, contentType string) (string, error) {
	trail, err := t.currentAudit()
	if err != nil {
		return "", err
	}
	if t.deps.media == nil {
		slog.Warn("audit video dropped", "terminal_id", t.id, "error", models.ErrDevice)
		return trail.id(), models.ErrDevice
	}

	t.deps.background(func(ctx context.Context) {
		url, err := t.deps.upload(ctx, trail, "video", bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			return
		}
		trail.save(ctx, func(a *models.VotingAudit) { a.VideoURL = url })
	})
	return trail.id(), nil
}

// currentAudit returns the audit trail of the active session, including a
// session still showing its success screen.
func (t *Terminal) currentAudit() (*auditTrail, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.audit == nil {
		return nil, fmt.Errorf("%w: no voter session on terminal %s", models.ErrInvalidTransition, t.id)
	}
	return t.audit, nil
}

func (d *deps) upload(ctx context.Context, trail *auditTrail, kind string, r io.Reader, size int64, contentType string) (string, error) {
	if d.media == nil {
		slog.Warn("audit capture unavailable", "audit_id", trail.id(), "kind", kind, "error", models.ErrDevice)
		return "", models.ErrDevice
	}
	key := fmt.Sprintf("audits/%s/%s/%s", trail.voterID(), trail.id(), kind)
	url, err := d.media.Put(ctx, key, r, size, contentType)
	if err != nil {
		slog.Warn("audit upload failed", "audit_id", trail.id(), "kind", kind, "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrDevice, err)
	}
	return url, nil
}
