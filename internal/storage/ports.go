package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financas/internal/core"
)

var (
	ErrPermissionDenied = errors.New("permission-denied")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidMutation  = errors.New("invalid mutation")
)

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

type OpKind string

// Mutation is one write inside a batch. Create carries Doc, Update carries
// Patch (transactions only), Delete only needs Collection and ID.
type Mutation struct {
	Op         OpKind
	Collection core.Collection
	ID         string
	Doc        core.Document
	Patch      core.TransactionPatch
}

func Create(doc core.Document) Mutation {
	return Mutation{Op: OpCreate, Collection: doc.Collection(), ID: doc.DocumentID(), Doc: doc}
}

func Update(id string, patch core.TransactionPatch) Mutation {
	return Mutation{Op: OpUpdate, Collection: core.Transactions, ID: id, Patch: patch}
}

func Delete(c core.Collection, id string) Mutation {
	return Mutation{Op: OpDelete, Collection: c, ID: id}
}

func (m Mutation) Validate() error {
	if !m.Collection.Valid() {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidMutation, m.Collection)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidMutation, m.Op)
	}
	switch m.Op {
	case OpCreate:
		if m.Doc == nil || m.Doc.Collection() != m.Collection || m.Doc.DocumentID() != m.ID {
			return fmt.Errorf("%w: create document does not match %s/%s", ErrInvalidMutation, m.Collection, m.ID)
		}
	case OpUpdate:
		if m.Collection != core.Transactions {
			return fmt.Errorf("%w: only transactions can be updated", ErrInvalidMutation)
		}
	case OpDelete:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMutation, m.Op)
	}
	return nil
}

// UserRecord is an account as persisted, including the password hash.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store is the per-user document store. Apply is atomic: either every
// mutation in the batch becomes visible or none does.
type Store interface {
	Apply(ctx context.Context, userID string, muts []Mutation) error

	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListGroups(ctx context.Context, userID string) ([]core.Group, error)
	ListDescriptions(ctx context.Context, userID string) ([]core.PredefinedDescription, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	FindInstallments(ctx context.Context, userID, parcelaID string) ([]core.Transaction, error)

	CreateUser(ctx context.Context, u UserRecord) error
	FindUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUser(ctx context.Context, id string) (UserRecord, error)

	Close() error
}

// ownerOf returns the owner recorded on a document.
func ownerOf(doc core.Document) string {
	switch d := doc.(type) {
	case core.Transaction:
		return d.UserID
	case core.Group:
		return d.UserID
	case core.PredefinedDescription:
		return d.UserID
	}
	return ""
}

// checkOwner rejects documents that claim a different owner than the
// partition they are written to.
func checkOwner(userID string, m Mutation) error {
	if userID == "" {
		return ErrPermissionDenied
	}
	if m.Op == OpCreate {
		if owner := ownerOf(m.Doc); owner != "" && owner != userID {
			return fmt.Errorf("%w: %s/%s belongs to another user", ErrPermissionDenied, m.Collection, m.ID)
		}
	}
	return nil
}
