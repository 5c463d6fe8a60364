// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// Eligibility is the voting-path check a terminal runs on every scan.
type Eligibility interface {
	ForVoting(ctx context.Context, code string) (models.Voter, error)
}

type Options struct {
	// ResultWindow is how long a scan or submit rejection stays on screen.
	ResultWindow time.Duration
	// SuccessWindow is how long the success screen stays up.
	SuccessWindow time.Duration
	// ScanLatchWindow suppresses repeated decodes of one presented code.
	ScanLatchWindow time.Duration
	Now             func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ResultWindow:    4 * time.Second,
		SuccessWindow:   5 * time.Second,
		ScanLatchWindow: 2 * time.Second,
	}
}

// deps is shared by every terminal in a registry.
type deps struct {
	validator Eligibility
	store     store.Store
	media     MediaStore
	opts      Options

	ctx context.Context
	wg  sync.WaitGroup
}

func (d *deps) now() time.Time {
	if d.opts.Now != nil {
		return d.opts.Now()
	}
	return time.Now().UTC()
}

// background runs fn detached from any request, bounded by the registry
// context.
func (d *deps) background(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(d.ctx)
	}()
}

func (d *deps) checkCandidate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: candidate_id is required", models.ErrInvalidInput)
	}
	candidates, err := d.store.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}
	for _, c := range candidates {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: candidate %s", models.ErrNotFound, id)
}

// Registry holds voting terminals by id. Terminals are created on first use.
type Registry struct {
	deps *deps

	mu        sync.Mutex
	terminals map[string]*Terminal
}

// NewRegistry creates a registry. media may be nil, in which case audit
// capture is skipped with a logged ErrDevice. ctx bounds background audit
// uploads.
func NewRegistry(ctx context.Context, validator Eligibility, s store.Store, media MediaStore, opts Options) *Registry {
	return &Registry{
		deps: &deps{
			validator: validator,
			store:     s,
			media:     media,
			opts:      opts,
			ctx:       ctx,
		},
		terminals: make(map[string]*Terminal),
	}
}

func (r *Registry) Terminal(id string) *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.terminals[id]
	if !ok {
		t = newTerminal(id, r.deps)
		r.terminals[id] = t
	}
	return t
}

// Views returns the state of every known terminal ordered by id.
func (r *Registry) Views() []View {
	r.mu.Lock()
	terminals := make([]*Terminal, 0, len(r.terminals))
	for _, t := range r.terminals {
		terminals = append(terminals, t)
	}
	r.mu.Unlock()

	views := make([]View, 0, len(terminals))
	for _, t := range terminals {
		views = append(views, t.State())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].TerminalID < views[j].TerminalID })
	return views
}

// Wait blocks until background audit work has finished.
func (r *Registry) Wait() {
	r.deps.wg.Wait()
}
