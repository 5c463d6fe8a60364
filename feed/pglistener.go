// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

// NotifyChannel is the postgres channel the schema triggers notify on.
const NotifyChannel = "pilrt_changes"

// PGListener forwards postgres NOTIFY payloads into a Broker so that writes
// made by other server instances reach local subscribers.
type PGListener struct {
	listener *pq.Listener
	broker   *Broker
}

func NewPGListener(databaseURL string, broker *Broker) (*PGListener, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("postgres listener event", "event", ev, "error", err)
		}
	}

	l := pq.NewListener(databaseURL, 2*time.Second, time.Minute, report)
	if err := l.Listen(NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	return &PGListener{listener: l, broker: broker}, nil
}

// Run blocks until ctx is done.
func (p *PGListener) Run(ctx context.Context) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.listener.Notify:
			// nil after a reconnect: we may have missed changes, so nudge
			// every consumer to re-pull.
			if n == nil {
				for _, table := range []string{models.TableVoters, models.TableVotes, models.TableSettings, models.TableCandidates} {
					p.broker.Inject(store.Change{Table: table, Op: store.OpUpdate})
				}
				continue
			}
			c, err := decodeNotification(n.Extra)
			if err != nil {
				slog.Warn("ignoring malformed change notification", "payload", n.Extra, "error", err)
				continue
			}
			p.broker.Inject(c)
		case <-ping.C:
			if err := p.listener.Ping(); err != nil {
				slog.Warn("postgres listener ping failed", "error", err)
			}
		}
	}
}

func (p *PGListener) Close() error {
	return p.listener.Close()
}

func decodeNotification(payload string) (store.Change, error) {
	var c store.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return store.Change{}, err
	}
	if c.Table == "" {
		return store.Change{}, fmt.Errorf("missing table")
	}
	switch c.Op {
	case "INSERT":
		c.Op = store.OpInsert
	case "UPDATE":
		c.Op = store.OpUpdate
	case "DELETE":
		c.Op = store.OpDelete
	}
	return c, nil
}
