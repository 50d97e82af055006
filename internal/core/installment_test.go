package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedID(id string) func() string {
	return func() string { return id }
}

func TestPlanInstallmentsNotebook(t *testing.T) {
	first := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	plan := InstallmentPlan{Descricao: "Notebook", Total: Money{Cents: 120000}, Count: 12, FirstDate: first, GroupID: "g-eletronicos"}

	parts, err := PlanInstallments("u1", plan, nil)
	require.NoError(t, err)
	require.Len(t, parts, 12)

	parcelaID := parts[0].Installment.ParcelaID
	require.NotEmpty(t, parcelaID)
	for i, p := range parts {
		assert.Equal(t, int64(10000), p.Valor.Cents)
		assert.Equal(t, fmt.Sprintf("Notebook (%d/12)", i+1), p.Descricao)
		assert.Equal(t, time.Date(2024, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC), p.Data)
		assert.Equal(t, Despesa, p.Tipo)
		assert.Equal(t, Pendente, p.Status)
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, "g-eletronicos", p.GroupID)
		assert.Empty(t, p.ID)
		require.True(t, p.IsParcela())
		assert.Equal(t, parcelaID, p.Installment.ParcelaID)
		assert.Equal(t, i+1, p.Installment.Atual)
		assert.Equal(t, 12, p.Installment.Total)
		assert.NoError(t, p.Validate())
	}
}

func TestPlanInstallmentsRoundingIsNotCorrected(t *testing.T) {
	plan := InstallmentPlan{Descricao: "Phone", Total: Money{Cents: 100000}, Count: 3, FirstDate: day(2024, time.March, 1)}
	parts, err := PlanInstallments("u1", plan, fixedID("p-1"))
	require.NoError(t, err)

	var sum Money
	for _, p := range parts {
		assert.Equal(t, int64(33333), p.Valor.Cents)
		sum = sum.Add(p.Valor)
	}
	assert.Equal(t, int64(99999), sum.Cents)
	assert.Equal(t, "p-1", parts[2].Installment.ParcelaID)
}

func TestPlanInstallmentsFreshParcelaID(t *testing.T) {
	plan := InstallmentPlan{Descricao: "TV", Total: Money{Cents: 300000}, Count: 2, FirstDate: day(2024, time.March, 1)}
	a, err := PlanInstallments("u1", plan, nil)
	require.NoError(t, err)
	b, err := PlanInstallments("u1", plan, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Installment.ParcelaID, b[0].Installment.ParcelaID)
}

func TestPlanInstallmentsValidation(t *testing.T) {
	valid := InstallmentPlan{Descricao: "X", Total: Money{Cents: 100}, Count: 2, FirstDate: day(2024, time.March, 1)}
	cases := []struct {
		name   string
		mutate func(*InstallmentPlan)
		want   error
	}{
		{"blank description", func(p *InstallmentPlan) { p.Descricao = "  " }, ErrEmptyDescription},
		{"zero total", func(p *InstallmentPlan) { p.Total = Money{} }, ErrInvalidAmount},
		{"negative total", func(p *InstallmentPlan) { p.Total = Money{Cents: -5} }, ErrInvalidAmount},
		{"zero count", func(p *InstallmentPlan) { p.Count = 0 }, ErrInvalidInstallmentCount},
		{"huge count", func(p *InstallmentPlan) { p.Count = 10_000 }, ErrInvalidInstallmentCount},
		{"no date", func(p *InstallmentPlan) { p.FirstDate = time.Time{} }, ErrMissingDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := valid
			tc.mutate(&plan)
			parts, err := PlanInstallments("u1", plan, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, parts)
		})
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{day(2024, time.January, 31), 1, day(2024, time.February, 29)},
		{day(2023, time.January, 31), 1, day(2023, time.February, 28)},
		{day(2024, time.January, 31), 2, day(2024, time.March, 31)},
		{day(2024, time.March, 31), 1, day(2024, time.April, 30)},
		{day(2024, time.November, 15), 3, day(2025, time.February, 15)},
		{day(2024, time.August, 31), 6, day(2025, time.February, 28)},
		{day(2024, time.May, 10), 0, day(2024, time.May, 10)},
	}
	for _, tc := range cases {
		got := AddMonths(tc.from, tc.n)
		assert.True(t, got.Equal(tc.want), "AddMonths(%s, %d) = %s, want %s", tc.from.Format(time.DateOnly), tc.n, got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
	}
}

func TestInstallmentDatesClampAtMonthEnd(t *testing.T) {
	plan := InstallmentPlan{Descricao: "Sofá", Total: Money{Cents: 400000}, Count: 4, FirstDate: day(2024, time.January, 31)}
	parts, err := PlanInstallments("u1", plan, nil)
	require.NoError(t, err)

	var got []string
	for _, p := range parts {
		got = append(got, p.Data.Format(time.DateOnly))
	}
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}, got)
}

func TestSiblings(t *testing.T) {
	plan := InstallmentPlan{Descricao: "Bike", Total: Money{Cents: 90000}, Count: 3, FirstDate: day(2024, time.March, 1)}
	parts, err := PlanInstallments("u1", plan, fixedID("bike"))
	require.NoError(t, err)

	mixed := []Transaction{parts[2], tx("other", Despesa, Pago, 1, day(2024, time.March, 2)), parts[0], parts[1]}
	sib := Siblings(mixed, "bike")
	require.Len(t, sib, 3)
	for i, s := range sib {
		assert.Equal(t, i+1, s.Installment.Atual)
	}
	assert.Empty(t, Siblings(mixed, "nope"))
}

func TestTransactionValidate(t *testing.T) {
	base := tx("v", Receita, Pago, 100, day(2024, time.March, 1))
	require.NoError(t, base.Validate())

	noDate := base
	noDate.Data = time.Time{}
	assert.ErrorIs(t, noDate.Validate(), ErrMissingDate)

	badKind := base
	badKind.Tipo = "transfer"
	assert.ErrorIs(t, badKind.Validate(), ErrInvalidKind)

	receitaParcela := base
	receitaParcela.Installment = &Installment{ParcelaID: "p", Atual: 1, Total: 2}
	assert.ErrorIs(t, receitaParcela.Validate(), ErrInvalidInstallment)

	outOfRange := base
	outOfRange.Tipo = Despesa
	outOfRange.Installment = &Installment{ParcelaID: "p", Atual: 3, Total: 2}
	assert.ErrorIs(t, outOfRange.Validate(), ErrInvalidInstallment)
	assert.True(t, IsValidation(outOfRange.Validate()))
}

func TestTransactionPatch(t *testing.T) {
	base := tx("v", Despesa, Pendente, 100, day(2024, time.March, 1))
	assert.True(t, TransactionPatch{}.Empty())

	paid := Pago
	desc := "novo"
	patched := TransactionPatch{Status: &paid, Descricao: &desc}.Apply(base)
	assert.Equal(t, Pago, patched.Status)
	assert.Equal(t, "novo", patched.Descricao)
	assert.Equal(t, Pendente, base.Status, "Apply must copy")
	assert.Equal(t, base.Valor, patched.Valor)
}
