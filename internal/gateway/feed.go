package gateway

import (
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)

// Report describes a write that the store rejected after it was accepted.
type Report struct {
	UserID     string
	Op         storage.OpKind
	Collection core.Collection
	ID         string
	Err        error
	At         time.Time
}

// ErrorFeed fans backend failures out to per-user listeners. Listeners that
// fall behind lose reports rather than stall the writer.
type ErrorFeed struct {
	mu   sync.Mutex
	subs map[string]map[*FeedSubscription]struct{}
}

type FeedSubscription struct {
	C <-chan Report

	ch     chan Report
	feed   *ErrorFeed
	userID string
	once   sync.Once
}

func NewErrorFeed() *ErrorFeed {
	return &ErrorFeed{subs: make(map[string]map[*FeedSubscription]struct{})}
}

// Subscribe registers a listener for userID's failures.
func (f *ErrorFeed) Subscribe(userID string, buffer int) *FeedSubscription {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Report, buffer)
	s := &FeedSubscription{C: ch, ch: ch, feed: f, userID: userID}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[*FeedSubscription]struct{})
	}
	f.subs[userID][s] = struct{}{}
	return s
}

// Close unregisters the listener and closes C.
func (s *FeedSubscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		delete(s.feed.subs[s.userID], s)
		if len(s.feed.subs[s.userID]) == 0 {
			delete(s.feed.subs, s.userID)
		}
		close(s.ch)
	})
}

// Publish delivers r to every listener of r.UserID and returns how many
// listeners received it.
func (f *ErrorFeed) Publish(r Report) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for s := range f.subs[r.UserID] {
		select {
		case s.ch <- r:
			delivered++
		default:
		}
	}
	return delivered
}
