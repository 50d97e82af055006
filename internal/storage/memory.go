package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"financas/internal/core"
)

// MemoryStore keeps everything in process memory. Batches are applied to a
// copy of the user's partition which replaces the original only when every
// mutation succeeded.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	users      map[string]UserRecord // by id
	emails     map[string]string     // lowercased email -> id
}

type partition struct {
	transactions []core.Transaction
	groups       []core.Group
	descriptions []core.PredefinedDescription
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]*partition),
		users:      make(map[string]UserRecord),
		emails:     make(map[string]string),
	}
}

func (p *partition) clone() *partition {
	if p == nil {
		return &partition{}
	}
	return &partition{
		transactions: append([]core.Transaction(nil), p.transactions...),
		groups:       append([]core.Group(nil), p.groups...),
		descriptions: append([]core.PredefinedDescription(nil), p.descriptions...),
	}
}

func (p *partition) indexOf(c core.Collection, id string) int {
	switch c {
	case core.Transactions:
		for i, t := range p.transactions {
			if t.ID == id {
				return i
			}
		}
	case core.Groups:
		for i, g := range p.groups {
			if g.ID == id {
				return i
			}
		}
	case core.Descriptions:
		for i, d := range p.descriptions {
			if d.ID == id {
				return i
			}
		}
	}
	return -1
}

func (p *partition) apply(userID string, m Mutation) error {
	i := p.indexOf(m.Collection, m.ID)
	switch m.Op {
	case OpCreate:
		if i >= 0 {
			return fmt.Errorf("%s/%s already exists", m.Collection, m.ID)
		}
		switch d := m.Doc.(type) {
		case core.Transaction:
			d.UserID = userID
			if d.Installment != nil {
				inst := *d.Installment
				d.Installment = &inst
			}
			p.transactions = append(p.transactions, d)
		case core.Group:
			d.UserID = userID
			p.groups = append(p.groups, d)
		case core.PredefinedDescription:
			d.UserID = userID
			p.descriptions = append(p.descriptions, d)
		default:
			return fmt.Errorf("%w: unsupported document %T", ErrInvalidMutation, m.Doc)
		}
	case OpUpdate:
		if i < 0 {
			return core.ErrNotFound
		}
		p.transactions[i] = m.Patch.Apply(p.transactions[i])
	case OpDelete:
		if i < 0 {
			return nil
		}
		switch m.Collection {
		case core.Transactions:
			p.transactions = append(p.transactions[:i:i], p.transactions[i+1:]...)
		case core.Groups:
			p.groups = append(p.groups[:i:i], p.groups[i+1:]...)
		case core.Descriptions:
			p.descriptions = append(p.descriptions[:i:i], p.descriptions[i+1:]...)
		}
	}
	return nil
}

func (s *MemoryStore) Apply(ctx context.Context, userID string, muts []Mutation) error {
	for _, m := range muts {
		if err := m.Validate(); err != nil {
			return err
		}
		if err := checkOwner(userID, m); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.partitions[userID].clone()
	for _, m := range muts {
		if err := next.apply(userID, m); err != nil {
			return fmt.Errorf("%s %s/%s: %w", m.Op, m.Collection, m.ID, err)
		}
	}
	s.partitions[userID] = next
	return nil
}

func (s *MemoryStore) read(userID string) *partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// partitions are replaced, never mutated in place, so the pointer is a
	// consistent snapshot
	if p := s.partitions[userID]; p != nil {
		return p
	}
	return &partition{}
}

func copyTransactions(ts []core.Transaction) []core.Transaction {
	if len(ts) == 0 {
		return nil
	}
	out := make([]core.Transaction, len(ts))
	for i, t := range ts {
		if t.Installment != nil {
			inst := *t.Installment
			t.Installment = &inst
		}
		out[i] = t
	}
	return out
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return copyTransactions(s.read(userID).transactions), nil
}

func (s *MemoryStore) ListGroups(ctx context.Context, userID string) ([]core.Group, error) {
	gs := s.read(userID).groups
	if len(gs) == 0 {
		return nil, nil
	}
	return append([]core.Group(nil), gs...), nil
}

func (s *MemoryStore) ListDescriptions(ctx context.Context, userID string) ([]core.PredefinedDescription, error) {
	ds := s.read(userID).descriptions
	if len(ds) == 0 {
		return nil, nil
	}
	return append([]core.PredefinedDescription(nil), ds...), nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	p := s.read(userID)
	i := p.indexOf(core.Transactions, id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return copyTransactions(p.transactions[i : i+1])[0], nil
}

func (s *MemoryStore) FindInstallments(ctx context.Context, userID, parcelaID string) ([]core.Transaction, error) {
	return copyTransactions(core.Siblings(s.read(userID).transactions, parcelaID)), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.emails[key]; ok {
		return ErrEmailTaken
	}
	s.users[u.ID] = u
	s.emails[key] = u.ID
	return nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) Close() error { return nil }
