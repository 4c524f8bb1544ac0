// Package realtime bridges Postgres LISTEN/NOTIFY change notifications to
// in-process cache invalidation. Migration-installed triggers emit
// "table:op:key" payloads on one channel; the bridge fans events out to
// subscribers registered per entity and change kind. It only marks state
// stale: recomputation belongs to the owning component.
package realtime

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/konshedo/planivo/internal/safego"
	"github.com/konshedo/planivo/internal/telemetry"
)

// EntityKind names a change-emitting table.
type EntityKind string

const (
	EntityRoleAssignments  EntityKind = "user_roles"
	EntityModules          EntityKind = "modules"
	EntityModuleGrants     EntityKind = "module_grants"
	EntityApprovalRequests EntityKind = "approval_requests"
	EntityApprovalSteps    EntityKind = "approval_steps"
)

// ChangeKind is the operation that produced an event. ChangeAny is a
// subscription wildcard; ChangeReload is synthesized after a listener
// reconnect, when notifications may have been missed.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
	ChangeReload ChangeKind = "RELOAD"
	ChangeAny    ChangeKind = "*"
)

// Event is one change notification. Key is the trigger's best-effort row key
// (user id for role assignments, request id for approval tables) and may be
// empty; subscribers must fall back to coarse invalidation without it.
type Event struct {
	Entity EntityKind
	Change ChangeKind
	Key    string
}

// Handler receives events on its own panic-protected goroutine. Handlers
// must not block on the bridge.
type Handler func(Event)

type subscription struct {
	entity  EntityKind
	change  ChangeKind
	handler Handler
}

func (s *subscription) matches(ev Event) bool {
	if s.entity != ev.Entity {
		return false
	}
	return s.change == ChangeAny || s.change == ev.Change
}

// Bridge listens on one NOTIFY channel and dispatches parsed events to
// subscribers.
type Bridge struct {
	dsn          string
	channel      string
	pingInterval time.Duration
	listener     *pq.Listener

	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int

	quit      chan struct{}
	done      chan struct{}
	started   bool
	closeOnce sync.Once
}

// NewBridge creates a bridge over the given Postgres DSN and NOTIFY channel.
// pingInterval bounds how long a silently dead connection goes unnoticed;
// zero selects 90 seconds.
func NewBridge(dsn, channel string, pingInterval time.Duration) *Bridge {
	if pingInterval <= 0 {
		pingInterval = 90 * time.Second
	}
	return &Bridge{
		dsn:          dsn,
		channel:      channel,
		pingInterval: pingInterval,
		subs:         make(map[int]*subscription),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Subscribe registers a handler for an entity and change kind and returns
// its unsubscribe function. Unsubscribing is idempotent: after the first
// call returns, no further events are dispatched to the handler (deliveries
// already in flight may still complete).
func (b *Bridge) Subscribe(entity EntityKind, change ChangeKind, fn Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{entity: entity, change: change, handler: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Start connects the listener and launches the dispatch loop. The listener
// reconnects on its own; every reconnect broadcasts a reload event because
// notifications may have been lost in between.
func (b *Bridge) Start() error {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("realtime listener error", "error", err)
		}
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("realtime listener connection attempt failed, will retry")
		case pq.ListenerEventDisconnected:
			slog.Warn("realtime listener disconnected, reconnecting")
		case pq.ListenerEventReconnected:
			slog.Info("realtime listener reconnected, broadcasting reload")
			telemetry.RealtimeReconnectsTotal.Inc()
			b.broadcastReload()
		}
	}

	b.listener = pq.NewListener(b.dsn, 10*time.Second, time.Minute, report)
	if err := b.listener.Listen(b.channel); err != nil {
		b.listener.Close()
		return fmt.Errorf("listening on %s: %w", b.channel, err)
	}
	b.started = true

	slog.Info("realtime bridge listening", "channel", b.channel)
	go b.loop()
	return nil
}

func (b *Bridge) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			return
		case n := <-b.listener.Notify:
			if n == nil {
				// Connection dropped; the reconnect callback handles reload.
				continue
			}
			ev, ok := parsePayload(n.Extra)
			if !ok {
				slog.Warn("unparseable change notification", "payload", n.Extra)
				continue
			}
			b.dispatch(ev)
		case <-time.After(b.pingInterval):
			safego.Go("realtime-ping", func() {
				if err := b.listener.Ping(); err != nil {
					slog.Error("realtime listener ping failed", "error", err)
				}
			})
		}
	}
}

// dispatch fans one event out to every matching subscriber on its own
// goroutine so a slow handler cannot stall the notification loop.
func (b *Bridge) dispatch(ev Event) {
	telemetry.RealtimeEventsTotal.WithLabelValues(string(ev.Entity), string(ev.Change)).Inc()

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		h := h
		safego.Go("realtime-dispatch", func() { h(ev) })
	}
}

// broadcastReload synthesizes a reload event for every subscriber, tagged
// with the subscriber's own entity so each owner can coarse-invalidate.
func (b *Bridge) broadcastReload() {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		ev := Event{Entity: sub.entity, Change: ChangeReload}
		h := sub.handler
		telemetry.RealtimeEventsTotal.WithLabelValues(string(ev.Entity), string(ChangeReload)).Inc()
		safego.Go("realtime-reload", func() { h(ev) })
	}
}

// Close tears down the listener and drops all subscriptions. Safe to call
// more than once.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.quit)
		if b.listener != nil {
			err = b.listener.Close()
		}
		if b.started {
			<-b.done
		}

		b.mu.Lock()
		b.subs = make(map[int]*subscription)
		b.mu.Unlock()

		slog.Info("realtime bridge closed")
	})
	return err
}

// parsePayload splits a "table:op[:key]" trigger payload.
func parsePayload(payload string) (Event, bool) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) < 2 {
		return Event{}, false
	}
	change := ChangeKind(parts[1])
	switch change {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return Event{}, false
	}
	ev := Event{Entity: EntityKind(parts[0]), Change: change}
	if len(parts) == 3 {
		ev.Key = parts[2]
	}
	return ev, true
}
