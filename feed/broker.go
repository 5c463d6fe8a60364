// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/danielhkuo/pilrt/store"
)

// subscriberBuffer bounds how far a slow subscriber can fall behind before
// changes are dropped for it. Dropping is safe: consumers re-pull state on
// the next change they do receive.
const subscriberBuffer = 64

type subscriber struct {
	id    string
	table string
	ch    chan store.Change
	done  chan struct{}
}

// Broker is the in-process change feed. Publish never blocks.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool

	// hooks receive every published change synchronously, before fan-out.
	// Relays use this to forward local changes to other instances.
	hooks []func(store.Change)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]*subscriber)}
}

// Subscribe delivers changes for table ("" for every table) to fn on a
// dedicated goroutine, in publish order.
func (b *Broker) Subscribe(table string, fn func(store.Change)) func() {
	sub := &subscriber{
		id:    uuid.NewString(),
		table: table,
		ch:    make(chan store.Change, subscriberBuffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go func() {
		defer close(sub.done)
		for c := range sub.ch {
			fn(c)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[sub.id]; ok {
				delete(b.subs, sub.id)
				close(sub.ch)
			}
			b.mu.Unlock()
		})
	}
}

// Publish fans c out to matching subscribers and runs the hooks.
func (b *Broker) Publish(c store.Change) {
	b.publish(c, true)
}

// Inject delivers a change that originated elsewhere (another process)
// without running the hooks, so relays do not echo it back.
func (b *Broker) Inject(c store.Change) {
	b.publish(c, false)
}

func (b *Broker) publish(c store.Change, runHooks bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	if runHooks {
		for _, h := range b.hooks {
			h(c)
		}
	}

	for _, sub := range b.subs {
		if sub.table != "" && sub.table != c.Table {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			slog.Warn("change feed subscriber lagging, dropping change", "table", c.Table, "op", c.Op)
		}
	}
}

// OnPublish registers a hook called for every locally published change.
func (b *Broker) OnPublish(h func(store.Change)) {
	b.mu.Lock()
	b.hooks = append(b.hooks, h)
	b.mu.Unlock()
}

// Close cancels every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
