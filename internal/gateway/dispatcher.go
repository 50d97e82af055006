package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"
)

var (
	ErrClosed    = errors.New("mutation gateway closed")
	ErrQueueFull = errors.New("mutation queue full")
)

// Notifier is told about every committed batch, after the commit.
type Notifier interface {
	Changed(ctx context.Context, userID string, collections []core.Collection)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userID string, collections []core.Collection)

func (f NotifierFunc) Changed(ctx context.Context, userID string, collections []core.Collection) {
	f(ctx, userID, collections)
}

type Options struct {
	QueueSize int
	Notifiers []Notifier
	Feed      *ErrorFeed
	Logger    *slog.Logger
	NewID     func() string
}

type job struct {
	ctx     context.Context
	userID  string
	muts    []storage.Mutation
	pending *Pending
}

// Dispatcher accepts writes without blocking and applies them to the store
// from a single worker goroutine, in submission order.
type Dispatcher struct {
	store     storage.Store
	queue     chan job
	notifiers []Notifier
	feed      *ErrorFeed
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time

	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewDispatcher(store storage.Store, opts Options) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 256
	}
	if opts.Feed == nil {
		opts.Feed = NewErrorFeed()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Dispatcher{
		store:     store,
		queue:     make(chan job, opts.QueueSize),
		notifiers: opts.Notifiers,
		feed:      opts.Feed,
		logger:    opts.Logger,
		newID:     opts.NewID,
		now:       time.Now,
	}
}

// Feed returns the error side channel.
func (d *Dispatcher) Feed() *ErrorFeed { return d.feed }

// NewID returns a fresh document ID.
func (d *Dispatcher) NewID() string { return d.newID() }

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run()
	}()
}

// Stop refuses new writes, drains the queue and waits for the worker.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// Create stores doc under a fresh ID owned by userID. An ID already set on
// doc is kept.
func (d *Dispatcher) Create(ctx context.Context, userID string, doc core.Document) (string, *Pending) {
	id := doc.DocumentID()
	if id == "" {
		id = d.newID()
	}
	doc, err := withIdentity(doc, id, userID)
	if err != nil {
		return id, Resolved(id, err)
	}
	return id, d.enqueue(ctx, userID, id, []storage.Mutation{storage.Create(doc)})
}

func (d *Dispatcher) Update(ctx context.Context, userID string, collection core.Collection, id string, patch core.TransactionPatch) *Pending {
	m := storage.Update(id, patch)
	m.Collection = collection
	return d.enqueue(ctx, userID, id, []storage.Mutation{m})
}

func (d *Dispatcher) Delete(ctx context.Context, userID string, collection core.Collection, id string) *Pending {
	return d.enqueue(ctx, userID, id, []storage.Mutation{storage.Delete(collection, id)})
}

// BatchWrite submits muts as one atomic batch. Creates without an ID get
// one assigned.
func (d *Dispatcher) BatchWrite(ctx context.Context, userID string, muts []storage.Mutation) *Pending {
	batch := make([]storage.Mutation, len(muts))
	for i, m := range muts {
		if m.Op == storage.OpCreate && m.Doc != nil {
			id := m.Doc.DocumentID()
			if id == "" {
				id = d.newID()
			}
			doc, err := withIdentity(m.Doc, id, userID)
			if err != nil {
				return Resolved("", err)
			}
			m = storage.Create(doc)
		}
		batch[i] = m
	}
	return d.enqueue(ctx, userID, "", batch)
}

func (d *Dispatcher) enqueue(ctx context.Context, userID, id string, muts []storage.Mutation) *Pending {
	p := newPending(id)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		p.resolve(ErrClosed)
		return p
	}

	// the write outlives the request that asked for it
	j := job{ctx: context.WithoutCancel(ctx), userID: userID, muts: muts, pending: p}
	select {
	case d.queue <- j:
	default:
		d.report(j, ErrQueueFull)
	}
	return p
}

func (d *Dispatcher) run() {
	for j := range d.queue {
		d.apply(j)
	}
}

func (d *Dispatcher) apply(j job) {
	if err := d.store.Apply(j.ctx, j.userID, j.muts); err != nil {
		d.report(j, err)
		return
	}

	collections := touched(j.muts)
	d.logger.DebugContext(j.ctx, "Mutation batch applied",
		applog.FieldUserID, j.userID,
		applog.FieldMutations, len(j.muts),
		applog.FieldCollection, collections)

	for _, n := range d.notifiers {
		n.Changed(j.ctx, j.userID, collections)
	}
	j.pending.resolve(nil)
}

func (d *Dispatcher) report(j job, err error) {
	r := Report{UserID: j.userID, Err: err, At: d.now()}
	if len(j.muts) > 0 {
		r.Op, r.Collection, r.ID = j.muts[0].Op, j.muts[0].Collection, j.muts[0].ID
	}
	d.logger.ErrorContext(j.ctx, "Mutation failed",
		applog.FieldUserID, j.userID,
		applog.FieldOperation, r.Op,
		applog.FieldCollection, r.Collection,
		"id", r.ID,
		applog.FieldError, err)
	d.feed.Publish(r)
	j.pending.resolve(err)
}

// touched lists the collections a batch writes, in first-seen order.
func touched(muts []storage.Mutation) []core.Collection {
	var out []core.Collection
	seen := make(map[core.Collection]bool, 3)
	for _, m := range muts {
		if !seen[m.Collection] {
			seen[m.Collection] = true
			out = append(out, m.Collection)
		}
	}
	return out
}

func withIdentity(doc core.Document, id, userID string) (core.Document, error) {
	switch d := doc.(type) {
	case core.Transaction:
		d.ID, d.UserID = id, ownerOr(d.UserID, userID)
		return d, nil
	case core.Group:
		d.ID, d.UserID = id, ownerOr(d.UserID, userID)
		return d, nil
	case core.PredefinedDescription:
		d.ID, d.UserID = id, ownerOr(d.UserID, userID)
		return d, nil
	}
	return nil, fmt.Errorf("%w: unsupported document %T", storage.ErrInvalidMutation, doc)
}

// ownerOr keeps an explicit owner so the store can reject foreign writes.
func ownerOr(owner, userID string) string {
	if owner != "" {
		return owner
	}
	return userID
}
