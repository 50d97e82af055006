// Package live streams full per-user collection snapshots to subscribers.
package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/gateway"
)

// Reader is the read side of the store the hub snapshots from.
type Reader interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListGroups(ctx context.Context, userID string) ([]core.Group, error)
	ListDescriptions(ctx context.Context, userID string) ([]core.PredefinedDescription, error)
}

// Snapshot is the complete current state of one collection for one user.
// Only the slice matching Collection is populated.
type Snapshot struct {
	UserID       string
	Collection   core.Collection
	Transactions []core.Transaction
	Groups       []core.Group
	Descriptions []core.PredefinedDescription
	At           time.Time
	Err          error
}

// Filter builds the transaction predicate for a snapshot taken at now, so
// relative periods follow the wall clock.
type Filter func(now time.Time) core.Predicate

// Static wraps a predicate that does not depend on the time.
func Static(p core.Predicate) Filter {
	return func(time.Time) core.Predicate { return p }
}

type Subscription struct {
	C <-chan Snapshot

	ch         chan Snapshot
	userID     string
	collection core.Collection
	keep       Filter

	mu     sync.Mutex
	closed bool
}

// Hub implements gateway.Notifier: every committed batch triggers a fresh
// snapshot for the subscriptions it concerns.
type Hub struct {
	reader Reader
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}

	// serialises load-and-deliver so an older snapshot never overtakes a
	// newer one
	deliverMu sync.Mutex
}

var _ gateway.Notifier = (*Hub)(nil)

func NewHub(reader Reader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		reader: reader,
		logger: logger,
		now:    time.Now,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe starts a subscription that lives until ctx ends. An initial
// snapshot is queued before Subscribe returns. keep is rebuilt for every
// snapshot from its time and may be nil.
func (h *Hub) Subscribe(ctx context.Context, userID string, collection core.Collection, keep Filter) *Subscription {
	ch := make(chan Snapshot, 1)
	s := &Subscription{C: ch, ch: ch, userID: userID, collection: collection, keep: keep}

	h.deliverMu.Lock()
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()
	s.deliver(h.load(ctx, userID, collection))
	h.deliverMu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(s)
	}()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs[s.userID], s)
	if len(h.subs[s.userID]) == 0 {
		delete(h.subs, s.userID)
	}
	h.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Changed reloads each touched collection once and pushes it to the
// matching subscriptions.
func (h *Hub) Changed(ctx context.Context, userID string, collections []core.Collection) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	for _, c := range collections {
		targets := h.targets(userID, c)
		if len(targets) == 0 {
			continue
		}
		snap := h.load(ctx, userID, c)
		if snap.Err != nil {
			h.logger.ErrorContext(ctx, "Snapshot load failed", "user_id", userID, "collection", c, "error", snap.Err)
		}
		for _, s := range targets {
			s.deliver(snap)
		}
		h.logger.DebugContext(ctx, "Snapshot delivered", "user_id", userID, "collection", c, "subscribers", len(targets))
	}
}

func (h *Hub) targets(userID string, c core.Collection) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*Subscription
	for s := range h.subs[userID] {
		if s.collection == c {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) load(ctx context.Context, userID string, c core.Collection) Snapshot {
	snap := Snapshot{UserID: userID, Collection: c, At: h.now()}
	switch c {
	case core.Transactions:
		snap.Transactions, snap.Err = h.reader.ListTransactions(ctx, userID)
	case core.Groups:
		snap.Groups, snap.Err = h.reader.ListGroups(ctx, userID)
	case core.Descriptions:
		snap.Descriptions, snap.Err = h.reader.ListDescriptions(ctx, userID)
	}
	return snap
}

// deliver replaces any snapshot the subscriber has not read yet.
func (s *Subscription) deliver(snap Snapshot) {
	if s.keep != nil && snap.Transactions != nil {
		snap.Transactions = core.Filter(snap.Transactions, s.keep(snap.At))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
