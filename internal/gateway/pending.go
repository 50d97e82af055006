package gateway

import "context"

// Pending is the future of one accepted write. It resolves exactly once,
// after the store committed or rejected the batch.
type Pending struct {
	id   string
	done chan struct{}
	err  error
}

func newPending(id string) *Pending {
	return &Pending{id: id, done: make(chan struct{})}
}

// Resolved returns a Pending that is already finished with err. It stands in
// for writes that turned out to be unnecessary.
func Resolved(id string, err error) *Pending {
	p := newPending(id)
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// ID is the document ID for single-document writes, empty for batches.
func (p *Pending) ID() string { return p.id }

// Done is closed once the write finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the write's outcome. It is nil until Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the write finished or ctx ends. Giving up on the wait
// does not cancel the write.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
