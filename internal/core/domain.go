package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Receita Kind = "receita"
	Despesa Kind = "despesa"
)

const (
	Pago     Status = "pago"
	Pendente Status = "pendente"
)

// Collection names as seen by the store and the gateway.
const (
	Transactions Collection = "transactions"
	Groups       Collection = "groups"
	Descriptions Collection = "descriptions"
)

const maxTextLength = 200

type (
	// Kind is the tipo of a transaction, group or predefined description.
	Kind string

	// Status is the settlement state of a transaction.
	Status string

	Collection string

	Money struct {
		Cents int64
	}

	// Installment marks a transaction as one parcela of a parceled purchase.
	// A nil *Installment on a Transaction means a simple transaction.
	Installment struct {
		ParcelaID string
		Atual     int // 1-based
		Total     int
	}

	Transaction struct {
		ID          string
		UserID      string
		Descricao   string
		Valor       Money
		Tipo        Kind
		Data        time.Time // zero when the record carries no date
		Status      Status
		GroupID     string // empty when ungrouped
		Observacao  string
		Installment *Installment
	}

	Group struct {
		ID     string
		UserID string
		Name   string
		Tipo   Kind
	}

	PredefinedDescription struct {
		ID     string
		UserID string
		Name   string
		Tipo   Kind
	}

	// TransactionPatch is a partial update. Nil fields are left untouched.
	TransactionPatch struct {
		Descricao  *string
		Valor      *Money
		Data       *time.Time
		Status     *Status
		GroupID    *string
		Observacao *string
	}
)

// Document is anything the store keeps in a per-user collection.
type Document interface {
	Collection() Collection
	DocumentID() string
}

func (Transaction) Collection() Collection           { return Transactions }
func (t Transaction) DocumentID() string             { return t.ID }
func (Group) Collection() Collection                 { return Groups }
func (g Group) DocumentID() string                   { return g.ID }
func (PredefinedDescription) Collection() Collection { return Descriptions }
func (d PredefinedDescription) DocumentID() string   { return d.ID }

func (k Kind) Valid() bool { return k == Receita || k == Despesa }

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (s Status) Valid() bool { return s == Pago || s == Pendente }

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (c Collection) Valid() bool {
	switch c {
	case Transactions, Groups, Descriptions:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsParcela reports whether t belongs to an installment group.
func (t Transaction) IsParcela() bool { return t.Installment != nil }

// HasDate reports whether t carries a usable business date.
func (t Transaction) HasDate() bool { return !t.Data.IsZero() }

// Settled reports whether t counts toward the balance.
func (t Transaction) Settled() bool { return t.Status == Pago }

// Signed returns valor with the sign of its tipo.
func (t Transaction) Signed() Money {
	if t.Tipo == Despesa {
		return Money{Cents: -t.Valor.Cents}
	}
	return t.Valor
}

func (i Installment) Validate() error {
	if strings.TrimSpace(i.ParcelaID) == "" {
		return fmt.Errorf("%w: missing parcela id", ErrInvalidInstallment)
	}
	if i.Total < 1 || i.Atual < 1 || i.Atual > i.Total {
		return fmt.Errorf("%w: %d/%d", ErrInvalidInstallment, i.Atual, i.Total)
	}
	return nil
}

// Validate checks a transaction before it is written. Dates are required on
// new writes even though legacy records without one are tolerated on read.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Descricao) == "" {
		return ErrEmptyDescription
	}
	if len(t.Descricao) > maxTextLength {
		return ErrDescriptionTooLong
	}
	if err := t.Valor.Validate(); err != nil {
		return err
	}
	if !t.Tipo.Valid() {
		return ErrInvalidKind
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.HasDate() {
		return ErrMissingDate
	}
	if len(t.Observacao) > 2*maxTextLength {
		return ErrObservationTooLong
	}
	if t.Installment != nil {
		if t.Tipo != Despesa {
			return fmt.Errorf("%w: installments are always despesa", ErrInvalidInstallment)
		}
		return t.Installment.Validate()
	}
	return nil
}

func (g Group) Validate() error {
	return validateNamed(g.Name, g.Tipo)
}

func (d PredefinedDescription) Validate() error {
	return validateNamed(d.Name, d.Tipo)
}

func validateNamed(name string, tipo Kind) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxTextLength {
		return ErrNameTooLong
	}
	if !tipo.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Descricao == nil && p.Valor == nil && p.Data == nil &&
		p.Status == nil && p.GroupID == nil && p.Observacao == nil
}

// Apply returns a copy of t with the patch applied. The result is not
// validated.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Descricao != nil {
		t.Descricao = *p.Descricao
	}
	if p.Valor != nil {
		t.Valor = *p.Valor
	}
	if p.Data != nil {
		t.Data = *p.Data
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.GroupID != nil {
		t.GroupID = *p.GroupID
	}
	if p.Observacao != nil {
		t.Observacao = *p.Observacao
	}
	return t
}

// GroupIndex resolves group IDs to names. Unknown IDs resolve to the empty
// string, since a transaction may still reference a deleted group.
type GroupIndex map[string]Group

func NewGroupIndex(groups []Group) GroupIndex {
	idx := make(GroupIndex, len(groups))
	for _, g := range groups {
		idx[g.ID] = g
	}
	return idx
}

func (idx GroupIndex) Name(id string) string {
	if id == "" {
		return ""
	}
	return idx[id].Name
}

// GroupsByKind returns the groups of one tipo, preserving input order.
func GroupsByKind(groups []Group, tipo Kind) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Tipo == tipo {
			out = append(out, g)
		}
	}
	return out
}

func DescriptionsByKind(descs []PredefinedDescription, tipo Kind) []PredefinedDescription {
	out := make([]PredefinedDescription, 0, len(descs))
	for _, d := range descs {
		if d.Tipo == tipo {
			out = append(out, d)
		}
	}
	return out
}
