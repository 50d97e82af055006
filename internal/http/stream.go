package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"financas/internal/auth"
	"financas/internal/core"
	"financas/internal/gateway"
	"financas/internal/live"
	applog "financas/internal/log"
)

const (
	keepAliveInterval = 25 * time.Second
	feedBuffer        = 16
)

// handleStream pushes server-sent events: a "snapshot" event carrying the
// full current state of a collection every time it changes, and an "error"
// event for every write the store rejected. The transactions snapshots
// honour the same filters as /api/reports. The stream ends when the session
// does.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	const op = "stream"
	user := userFrom(r.Context())
	query := r.URL.Query()

	tipo, err := ParseKindParam(query)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	f, err := ParseReportFilter(query)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	keep := func(now time.Time) core.Predicate {
		return core.And(core.MatchKind(tipo), f.Predicate(now))
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	token := sessionToken(r)
	unsubscribe := s.auth.OnAuthStateChange(func(e auth.Event) {
		if e.Token == token && e.User == nil {
			cancel()
		}
	})
	defer unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Streaming unsupported", applog.FieldError, err)
		return
	}

	groupsSub := s.hub.Subscribe(ctx, user.ID, core.Groups, nil)
	txSub := s.hub.Subscribe(ctx, user.ID, core.Transactions, keep)
	descSub := s.hub.Subscribe(ctx, user.ID, core.Descriptions, nil)

	var failures <-chan gateway.Report
	if s.feed != nil {
		sub := s.feed.Subscribe(user.ID, feedBuffer)
		defer sub.Close()
		failures = sub.C
	}

	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Event stream opened", applog.FieldSubscribers, s.hub.Subscribers(user.ID))
	defer logger.InfoContext(context.WithoutCancel(ctx), "Event stream closed")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	var groups core.GroupIndex
	var lastTx *live.Snapshot

	send := func(event string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			logger.ErrorContext(ctx, "Event encoding failed", applog.FieldError, err)
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}
	sendTransactions := func() bool {
		if lastTx == nil {
			return true
		}
		snap := *lastTx
		snap.Transactions = core.SortByDateDescending(snap.Transactions)
		return send("snapshot", toSnapshotEvent(snap, groups))
	}

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-groupsSub.C:
			if !ok {
				return
			}
			if snap.Err == nil {
				groups = core.NewGroupIndex(snap.Groups)
			}
			// Group names on transactions follow the new groups.
			if !send("snapshot", toSnapshotEvent(snap, groups)) || !sendTransactions() {
				return
			}

		case snap, ok := <-txSub.C:
			if !ok {
				return
			}
			if snap.Err != nil {
				if !send("snapshot", toSnapshotEvent(snap, groups)) {
					return
				}
				continue
			}
			lastTx = &snap
			if !sendTransactions() {
				return
			}

		case snap, ok := <-descSub.C:
			if !ok {
				return
			}
			if !send("snapshot", toSnapshotEvent(snap, groups)) {
				return
			}

		case rep, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			if !send("error", toErrorEvent(rep)) {
				return
			}

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		}
	}
}
