package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/gateway"
	applog "financas/internal/log"
	"financas/internal/storage"
)

// Writer is the mutation gateway as seen by the ledger.
type Writer interface {
	Create(ctx context.Context, userID string, doc core.Document) (string, *gateway.Pending)
	Update(ctx context.Context, userID string, collection core.Collection, id string, patch core.TransactionPatch) *gateway.Pending
	Delete(ctx context.Context, userID string, collection core.Collection, id string) *gateway.Pending
	BatchWrite(ctx context.Context, userID string, muts []storage.Mutation) *gateway.Pending
	NewID() string
}

// Reader is the read side of the store.
type Reader interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListGroups(ctx context.Context, userID string) ([]core.Group, error)
	ListDescriptions(ctx context.Context, userID string) ([]core.PredefinedDescription, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	FindInstallments(ctx context.Context, userID, parcelaID string) ([]core.Transaction, error)
}

// LedgerService validates user intent and turns it into gateway writes.
// Every rejection happens before anything is submitted.
type LedgerService struct {
	writer Writer
	reader Reader
	now    func() time.Time
}

func NewLedgerService(writer Writer, reader Reader) *LedgerService {
	return &LedgerService{writer: writer, reader: reader, now: time.Now}
}

// TransactionInput is a new simple transaction. An empty Status means pago.
type TransactionInput struct {
	Descricao  string
	Valor      core.Money
	Tipo       core.Kind
	Data       time.Time
	Status     core.Status
	GroupID    string
	Observacao string
}

// TransactionEdit changes an existing simple transaction. Tipo may be given
// but must equal the stored one.
type TransactionEdit struct {
	Tipo  *core.Kind
	Patch core.TransactionPatch
}

func (s *LedgerService) AddTransaction(ctx context.Context, userID string, in TransactionInput) (string, *gateway.Pending, error) {
	if in.Status == "" {
		in.Status = core.Pago
	}
	t := core.Transaction{
		UserID:     userID,
		Descricao:  strings.TrimSpace(in.Descricao),
		Valor:      in.Valor,
		Tipo:       in.Tipo,
		Data:       in.Data,
		Status:     in.Status,
		GroupID:    normalizeGroup(in.GroupID),
		Observacao: strings.TrimSpace(in.Observacao),
	}
	if err := t.Validate(); err != nil {
		return "", nil, err
	}
	if err := s.checkGroup(ctx, userID, t.GroupID, t.Tipo); err != nil {
		return "", nil, err
	}

	id, p := s.writer.Create(ctx, userID, t)
	applog.FromContext(ctx).InfoContext(ctx, "Transaction submitted",
		applog.FieldUserID, userID,
		applog.FieldTransactionID, id,
		applog.FieldAmountCents, t.Valor.Cents,
		applog.FieldKind, t.Tipo)
	return id, p, nil
}

func (s *LedgerService) EditTransaction(ctx context.Context, userID, id string, edit TransactionEdit) (*gateway.Pending, error) {
	current, err := s.editable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if edit.Tipo != nil && *edit.Tipo != current.Tipo {
		return nil, core.ErrKindImmutable
	}

	patch := edit.Patch
	if patch.Descricao != nil {
		d := strings.TrimSpace(*patch.Descricao)
		patch.Descricao = &d
	}
	if patch.GroupID != nil {
		g := normalizeGroup(*patch.GroupID)
		patch.GroupID = &g
	}
	if patch.Empty() {
		return gateway.Resolved(id, nil), nil
	}

	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if patch.GroupID != nil {
		if err := s.checkGroup(ctx, userID, next.GroupID, next.Tipo); err != nil {
			return nil, err
		}
	}
	return s.writer.Update(ctx, userID, core.Transactions, id, patch), nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) (*gateway.Pending, error) {
	if _, err := s.editable(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.writer.Delete(ctx, userID, core.Transactions, id), nil
}

// editable loads a transaction that may be edited or deleted on its own.
func (s *LedgerService) editable(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.reader.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.IsParcela() {
		return core.Transaction{}, core.ErrInstallmentImmutable
	}
	return t, nil
}

// MarkPaid settles one transaction. Paying an already paid transaction
// submits nothing.
func (s *LedgerService) MarkPaid(ctx context.Context, userID, id string) (*gateway.Pending, error) {
	t, err := s.reader.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == core.Pago {
		return gateway.Resolved(id, nil), nil
	}
	paid := core.Pago
	return s.writer.Update(ctx, userID, core.Transactions, id, core.TransactionPatch{Status: &paid}), nil
}

// CreateInstallments writes every parcela of plan in one atomic batch and
// returns the shared parcela ID.
func (s *LedgerService) CreateInstallments(ctx context.Context, userID string, plan core.InstallmentPlan) (string, *gateway.Pending, error) {
	plan.GroupID = normalizeGroup(plan.GroupID)
	plan.Observacao = strings.TrimSpace(plan.Observacao)
	parts, err := core.PlanInstallments(userID, plan, nil)
	if err != nil {
		return "", nil, err
	}
	if err := s.checkGroup(ctx, userID, plan.GroupID, core.Despesa); err != nil {
		return "", nil, err
	}

	muts := make([]storage.Mutation, len(parts))
	for i, p := range parts {
		p.ID = s.writer.NewID()
		muts[i] = storage.Create(p)
	}
	parcelaID := parts[0].Installment.ParcelaID
	applog.FromContext(ctx).InfoContext(ctx, "Installments submitted",
		applog.FieldUserID, userID,
		applog.FieldParcelaID, parcelaID,
		applog.FieldAmountCents, plan.Total.Cents,
		"count", len(parts))
	return parcelaID, s.writer.BatchWrite(ctx, userID, muts), nil
}

// DeleteInstallmentGroup removes every member of a parcela group, whatever
// its status.
func (s *LedgerService) DeleteInstallmentGroup(ctx context.Context, userID, parcelaID string) (*gateway.Pending, error) {
	members, err := s.reader.FindInstallments(ctx, userID, parcelaID)
	if err != nil {
		return nil, fmt.Errorf("find installments: %w", err)
	}
	if len(members) == 0 {
		return nil, core.ErrNoInstallments
	}

	muts := make([]storage.Mutation, len(members))
	for i, m := range members {
		muts[i] = storage.Delete(core.Transactions, m.ID)
	}
	applog.FromContext(ctx).InfoContext(ctx, "Installment group deletion submitted",
		applog.FieldUserID, userID,
		applog.FieldParcelaID, parcelaID,
		"count", len(members))
	return s.writer.BatchWrite(ctx, userID, muts), nil
}

func (s *LedgerService) Installments(ctx context.Context, userID, parcelaID string) ([]core.Transaction, error) {
	members, err := s.reader.FindInstallments(ctx, userID, parcelaID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, core.ErrNoInstallments
	}
	return members, nil
}

func (s *LedgerService) AddGroup(ctx context.Context, userID, name string, tipo core.Kind) (string, *gateway.Pending, error) {
	g := core.Group{UserID: userID, Name: strings.TrimSpace(name), Tipo: tipo}
	if err := g.Validate(); err != nil {
		return "", nil, err
	}
	id, p := s.writer.Create(ctx, userID, g)
	return id, p, nil
}

// DeleteGroup leaves referencing transactions untouched; their group
// reference simply stops resolving.
func (s *LedgerService) DeleteGroup(ctx context.Context, userID, id string) *gateway.Pending {
	return s.writer.Delete(ctx, userID, core.Groups, id)
}

func (s *LedgerService) AddDescription(ctx context.Context, userID, name string, tipo core.Kind) (string, *gateway.Pending, error) {
	d := core.PredefinedDescription{UserID: userID, Name: strings.TrimSpace(name), Tipo: tipo}
	if err := d.Validate(); err != nil {
		return "", nil, err
	}
	id, p := s.writer.Create(ctx, userID, d)
	return id, p, nil
}

func (s *LedgerService) DeleteDescription(ctx context.Context, userID, id string) *gateway.Pending {
	return s.writer.Delete(ctx, userID, core.Descriptions, id)
}

// checkGroup rejects a group of the other tipo. A group that no longer
// exists is accepted, matching how dangling references are read.
func (s *LedgerService) checkGroup(ctx context.Context, userID, groupID string, tipo core.Kind) error {
	if groupID == "" {
		return nil
	}
	groups, err := s.reader.ListGroups(ctx, userID)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	if g, ok := core.NewGroupIndex(groups)[groupID]; ok && g.Tipo != tipo {
		return core.ErrGroupKindMismatch
	}
	return nil
}

// normalizeGroup maps the pickers' "none" and "all" choices to no group.
func normalizeGroup(id string) string {
	id = strings.TrimSpace(id)
	if id == "none" || id == core.All {
		return ""
	}
	return id
}

// IsSoft reports whether err is an expected outcome the UI shows as a
// notice rather than a failure.
func IsSoft(err error) bool {
	return errors.Is(err, core.ErrNoInstallments) || errors.Is(err, core.ErrNotFound)
}
