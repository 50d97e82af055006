package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxInstallments = 480

// InstallmentPlan is the intent behind a parceled purchase.
type InstallmentPlan struct {
	Descricao  string
	Total      Money
	Count      int
	FirstDate  time.Time
	GroupID    string
	Observacao string
}

func (p InstallmentPlan) Validate() error {
	if strings.TrimSpace(p.Descricao) == "" {
		return ErrEmptyDescription
	}
	if err := p.Total.Validate(); err != nil {
		return err
	}
	if p.Count < 1 || p.Count > maxInstallments {
		return ErrInvalidInstallmentCount
	}
	if p.FirstDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// PerInstallment is the value charged on every parcela: Total/Count rounded
// to cents. The parts may not add back up to Total.
func (p InstallmentPlan) PerInstallment() Money {
	return p.Total.Divide(p.Count)
}

// InstallmentLabel renders "<desc> (<i>/<n>)".
func InstallmentLabel(desc string, i, n int) string {
	return fmt.Sprintf("%s (%d/%d)", desc, i, n)
}

// PlanInstallments expands p into Count pending despesas sharing a fresh
// parcela ID. IDs are left empty for the store to assign. newID may be nil.
func PlanInstallments(userID string, p InstallmentPlan, newID func() string) ([]Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if newID == nil {
		newID = uuid.NewString
	}

	desc := strings.TrimSpace(p.Descricao)
	parcelaID := newID()
	valor := p.PerInstallment()

	out := make([]Transaction, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		out = append(out, Transaction{
			UserID:     userID,
			Descricao:  InstallmentLabel(desc, i+1, p.Count),
			Valor:      valor,
			Tipo:       Despesa,
			Data:       AddMonths(p.FirstDate, i),
			Status:     Pendente,
			GroupID:    p.GroupID,
			Observacao: p.Observacao,
			Installment: &Installment{
				ParcelaID: parcelaID,
				Atual:     i + 1,
				Total:     p.Count,
			},
		})
	}
	return out, nil
}

// AddMonths adds n calendar months, keeping the day of month when it exists
// and clamping to the last day otherwise (Jan 31 + 1 = Feb 28 or 29).
// Unlike time.AddDate it never spills into the following month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Siblings returns the members of one installment group, ordered by
// parcela number.
func Siblings(ts []Transaction, parcelaID string) []Transaction {
	var out []Transaction
	for _, t := range ts {
		if t.Installment != nil && t.Installment.ParcelaID == parcelaID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Installment.Atual < out[j].Installment.Atual
	})
	return out
}
