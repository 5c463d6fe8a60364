// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/pilrt/announce"
	"github.com/danielhkuo/pilrt/models"
	"github.com/danielhkuo/pilrt/store"
)

var ErrHubStopped = errors.New("display hub stopped")

// Message types pushed to displays
const (
	TypeBoard        = "board"
	TypeAnnouncement = "announcement"
)

// Message is one frame sent to a display.
type Message struct {
	Type         string          `json:"type"`
	Board        *announce.Board `json:"board,omitempty"`
	Announcement *Spoken         `json:"announcement,omitempty"`
}

// Spoken is the public part of an announcement. Invitation codes and other
// voter fields never leave the server.
type Spoken struct {
	Kind  string    `json:"kind"`
	Text  string    `json:"text"`
	Names []string  `json:"names"`
	At    time.Time `json:"at"`
}

// BoardSource re-derives the board from the store.
type BoardSource func(ctx context.Context) (announce.Board, error)

// tickInterval refreshes the relative "called ago" labels.
const tickInterval = 15 * time.Second

// Hub fans board updates and announcements out to every connected display.
// It never keeps queue state of its own; each refresh re-pulls the board.
type Hub struct {
	source BoardSource

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	refresh    chan struct{}
	done       chan struct{}

	mu   sync.RWMutex
	last []byte
}

func NewHub(source BoardSource) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer close(h.done)

	h.pull(ctx)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			if last := h.lastBoard(); last != nil {
				c.enqueue(last)
			}
			slog.Debug("display connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				slog.Debug("display disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.enqueue(msg) {
					delete(h.clients, c)
					close(c.send)
					slog.Warn("dropping slow display")
				}
			}

		case <-h.refresh:
			h.pull(ctx)

		case <-ticker.C:
			h.pull(ctx)
		}
	}
}

// Refresh asks the hub to re-pull the board. It never blocks; refreshes
// requested while one is pending collapse into it.
func (h *Hub) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Subscriber is the change feed side of the store.
type Subscriber interface {
	Subscribe(table string, fn func(store.Change)) (cancel func())
}

// Follow refreshes the board on every voter change. Duplicate or missed
// notifications are harmless since each refresh re-pulls the whole board.
func (h *Hub) Follow(s Subscriber) (cancel func()) {
	return s.Subscribe(models.TableVoters, func(store.Change) { h.Refresh() })
}

// Announce implements announce.Announcer by pushing the spoken text to every
// display, where the browser runs speech synthesis.
func (h *Hub) Announce(ctx context.Context, a announce.Announcement) error {
	names := make([]string, len(a.Voters))
	for i, v := range a.Voters {
		names[i] = announce.Addressed(v)
	}
	msg, err := json.Marshal(Message{
		Type:         TypeAnnouncement,
		Announcement: &Spoken{Kind: a.Kind, Text: a.Text, Names: names, At: a.At},
	})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Board returns a freshly derived board.
func (h *Hub) Board(ctx context.Context) (announce.Board, error) {
	return h.source(ctx)
}

// pull runs on the Run goroutine only.
func (h *Hub) pull(ctx context.Context) {
	board, err := h.source(ctx)
	if err != nil {
		slog.Error("failed to build display board", "error", err)
		return
	}
	msg, err := json.Marshal(Message{Type: TypeBoard, Board: &board})
	if err != nil {
		slog.Error("failed to encode display board", "error", err)
		return
	}

	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()

	for c := range h.clients {
		if !c.enqueue(msg) {
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) lastBoard() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
