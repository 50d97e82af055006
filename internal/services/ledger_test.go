package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
	"financas/internal/gateway"
	"financas/internal/storage"
)

type fixture struct {
	svc   *LedgerService
	store *storage.MemoryStore
	gw    *gateway.Dispatcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	gw := gateway.NewDispatcher(store, gateway.Options{})
	gw.Start()
	t.Cleanup(gw.Stop)
	return fixture{svc: NewLedgerService(gw, store), store: store, gw: gw}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func wait(t *testing.T, p *gateway.Pending) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func (f fixture) list(t *testing.T) []core.Transaction {
	t.Helper()
	ts, err := f.store.ListTransactions(context.Background(), "u1")
	require.NoError(t, err)
	return ts
}

func TestAddTransactionDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, p, err := f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "  Salário ",
		Valor:     core.Money{Cents: 500000},
		Tipo:      core.Receita,
		Data:      day(2024, time.March, 5),
		GroupID:   "none",
	})
	require.NoError(t, err)
	wait(t, p)

	got, err := f.store.GetTransaction(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Salário", got.Descricao)
	assert.Equal(t, core.Pago, got.Status)
	assert.Equal(t, "", got.GroupID)

	tests := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"empty description", TransactionInput{Descricao: " ", Valor: core.Money{Cents: 1}, Tipo: core.Despesa, Data: day(2024, 1, 1)}, core.ErrEmptyDescription},
		{"zero amount", TransactionInput{Descricao: "x", Tipo: core.Despesa, Data: day(2024, 1, 1)}, core.ErrInvalidAmount},
		{"no date", TransactionInput{Descricao: "x", Valor: core.Money{Cents: 1}, Tipo: core.Despesa}, core.ErrMissingDate},
		{"bad tipo", TransactionInput{Descricao: "x", Valor: core.Money{Cents: 1}, Tipo: "outro", Data: day(2024, 1, 1)}, core.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p, err := f.svc.AddTransaction(ctx, "u1", tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p)
			assert.Equal(t, CategoryValidation, Classify(err))
		})
	}
	assert.Len(t, f.list(t), 1, "rejected inputs must not be written")
}

func TestGroupKindMustMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gid, p, err := f.svc.AddGroup(ctx, "u1", "Trabalho", core.Receita)
	require.NoError(t, err)
	wait(t, p)

	_, _, err = f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Mercado", Valor: core.Money{Cents: 100}, Tipo: core.Despesa, Data: day(2024, 1, 2), GroupID: gid,
	})
	assert.ErrorIs(t, err, core.ErrGroupKindMismatch)

	// a group that no longer exists is tolerated
	_, p, err = f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Mercado", Valor: core.Money{Cents: 100}, Tipo: core.Despesa, Data: day(2024, 1, 2), GroupID: "gone",
	})
	require.NoError(t, err)
	wait(t, p)
}

func TestNotebookTwelveInstallments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parcelaID, p, err := f.svc.CreateInstallments(ctx, "u1", core.InstallmentPlan{
		Descricao: "Notebook",
		Total:     core.Money{Cents: 360000},
		Count:     12,
		FirstDate: day(2024, time.January, 15),
	})
	require.NoError(t, err)
	wait(t, p)

	members, err := f.svc.Installments(ctx, "u1", parcelaID)
	require.NoError(t, err)
	require.Len(t, members, 12)
	for i, m := range members {
		assert.Equal(t, int64(30000), m.Valor.Cents)
		assert.Equal(t, fmt.Sprintf("Notebook (%d/12)", i+1), m.Descricao)
		assert.Equal(t, core.Pendente, m.Status)
		assert.Equal(t, core.Despesa, m.Tipo)
		assert.Equal(t, core.AddMonths(day(2024, time.January, 15), i), m.Data)
	}

	// pending installments do not move the balance
	assert.Equal(t, int64(0), core.ComputeBalance(f.list(t)).Cents)
}

func TestPhoneThreeInstallmentsKeepsRoundingGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parcelaID, p, err := f.svc.CreateInstallments(ctx, "u1", core.InstallmentPlan{
		Descricao: "Celular",
		Total:     core.Money{Cents: 100000},
		Count:     3,
		FirstDate: day(2024, time.January, 31),
	})
	require.NoError(t, err)
	wait(t, p)

	members, err := f.svc.Installments(ctx, "u1", parcelaID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, int64(99999), core.Total(members).Cents)
	assert.Equal(t, day(2024, time.February, 29), members[1].Data)
	assert.Equal(t, day(2024, time.March, 31), members[2].Data)
}

func TestInstallmentMembersAreImmutable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parcelaID, p, err := f.svc.CreateInstallments(ctx, "u1", core.InstallmentPlan{
		Descricao: "TV", Total: core.Money{Cents: 20000}, Count: 2, FirstDate: day(2024, 5, 1),
	})
	require.NoError(t, err)
	wait(t, p)
	member := f.list(t)[0]

	desc := "TV nova"
	_, err = f.svc.EditTransaction(ctx, "u1", member.ID, TransactionEdit{Patch: core.TransactionPatch{Descricao: &desc}})
	assert.ErrorIs(t, err, core.ErrInstallmentImmutable)
	assert.Equal(t, CategoryDisallowed, Classify(err))

	_, err = f.svc.DeleteTransaction(ctx, "u1", member.ID)
	assert.ErrorIs(t, err, core.ErrInstallmentImmutable)

	// paying one member is allowed and touches only that member
	p, err = f.svc.MarkPaid(ctx, "u1", member.ID)
	require.NoError(t, err)
	wait(t, p)
	members, err := f.svc.Installments(ctx, "u1", parcelaID)
	require.NoError(t, err)
	assert.Equal(t, core.Pago, members[0].Status)
	assert.Equal(t, core.Pendente, members[1].Status)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, p, err := f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Luz", Valor: core.Money{Cents: 18000}, Tipo: core.Despesa, Data: day(2024, 2, 10), Status: core.Pendente,
	})
	require.NoError(t, err)
	wait(t, p)

	for i := 0; i < 2; i++ {
		p, err := f.svc.MarkPaid(ctx, "u1", id)
		require.NoError(t, err)
		wait(t, p)
	}
	ts := f.list(t)
	require.Len(t, ts, 1)
	assert.Equal(t, core.Pago, ts[0].Status)
	assert.Equal(t, int64(-18000), core.ComputeBalance(ts).Cents)
}

func TestDeleteInstallmentGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parcelaID, p, err := f.svc.CreateInstallments(ctx, "u1", core.InstallmentPlan{
		Descricao: "Sofá", Total: core.Money{Cents: 90000}, Count: 3, FirstDate: day(2024, 1, 10),
	})
	require.NoError(t, err)
	wait(t, p)
	_, p, err = f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Aluguel", Valor: core.Money{Cents: 150000}, Tipo: core.Despesa, Data: day(2024, 1, 5),
	})
	require.NoError(t, err)
	wait(t, p)

	first := f.list(t)[0]
	p, err = f.svc.MarkPaid(ctx, "u1", first.ID)
	require.NoError(t, err)
	wait(t, p)

	p, err = f.svc.DeleteInstallmentGroup(ctx, "u1", parcelaID)
	require.NoError(t, err)
	wait(t, p)

	ts := f.list(t)
	require.Len(t, ts, 1)
	assert.Equal(t, "Aluguel", ts[0].Descricao)

	_, err = f.svc.DeleteInstallmentGroup(ctx, "u1", parcelaID)
	assert.ErrorIs(t, err, core.ErrNoInstallments)
	assert.True(t, IsSoft(err))
	assert.Equal(t, "Nenhuma parcela encontrada para este parcelamento.", UserMessage(err))
}

func TestEditTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, p, err := f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Mercado", Valor: core.Money{Cents: 100}, Tipo: core.Despesa, Data: day(2024, 1, 2),
	})
	require.NoError(t, err)
	wait(t, p)

	receita := core.Receita
	_, err = f.svc.EditTransaction(ctx, "u1", id, TransactionEdit{Tipo: &receita})
	assert.ErrorIs(t, err, core.ErrKindImmutable)

	blank := " "
	_, err = f.svc.EditTransaction(ctx, "u1", id, TransactionEdit{Patch: core.TransactionPatch{Descricao: &blank}})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	valor := core.Money{Cents: 250}
	p, err = f.svc.EditTransaction(ctx, "u1", id, TransactionEdit{Patch: core.TransactionPatch{Valor: &valor}})
	require.NoError(t, err)
	wait(t, p)
	got, err := f.store.GetTransaction(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Valor.Cents)

	_, err = f.svc.EditTransaction(ctx, "u1", "missing", TransactionEdit{Patch: core.TransactionPatch{Valor: &valor}})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeletingGroupKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gid, p, err := f.svc.AddGroup(ctx, "u1", "Casa", core.Despesa)
	require.NoError(t, err)
	wait(t, p)
	_, p, err = f.svc.AddTransaction(ctx, "u1", TransactionInput{
		Descricao: "Luz", Valor: core.Money{Cents: 100}, Tipo: core.Despesa, Data: day(2024, 1, 2), GroupID: gid,
	})
	require.NoError(t, err)
	wait(t, p)

	wait(t, f.svc.DeleteGroup(ctx, "u1", gid))

	dash, err := f.svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, dash.Transactions, 1)
	assert.Equal(t, gid, dash.Transactions[0].GroupID)
	assert.Equal(t, "", dash.Groups.Name(gid))
}

func TestDescriptionsAndReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, p, err := f.svc.AddDescription(ctx, "u1", "Aluguel", core.Despesa)
	require.NoError(t, err)
	wait(t, p)
	_, p, err = f.svc.AddDescription(ctx, "u1", "Salário", core.Receita)
	require.NoError(t, err)
	wait(t, p)
	_, _, err = f.svc.AddDescription(ctx, "u1", "", core.Receita)
	assert.ErrorIs(t, err, core.ErrEmptyName)

	ds, err := f.svc.Descriptions(ctx, "u1", core.Despesa)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Aluguel", ds[0].Name)

	for _, in := range []TransactionInput{
		{Descricao: "Aluguel jan", Valor: core.Money{Cents: 1000}, Tipo: core.Despesa, Data: day(2024, 1, 5)},
		{Descricao: "Aluguel fev", Valor: core.Money{Cents: 1000}, Tipo: core.Despesa, Data: day(2024, 2, 5)},
		{Descricao: "Mercado", Valor: core.Money{Cents: 300}, Tipo: core.Despesa, Data: day(2024, 2, 6)},
		{Descricao: "Salário", Valor: core.Money{Cents: 9000}, Tipo: core.Receita, Data: day(2024, 2, 1)},
	} {
		_, p, err := f.svc.AddTransaction(ctx, "u1", in)
		require.NoError(t, err)
		wait(t, p)
	}

	r, err := f.svc.Report(ctx, "u1", core.Despesa, core.ReportFilter{NamePrefix: "Aluguel"})
	require.NoError(t, err)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "Aluguel fev", r.Items[0].Descricao)
	assert.Equal(t, int64(2000), r.Total.Cents)

	_, err = f.svc.Report(ctx, "u1", "x", core.ReportFilter{})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	dash, err := f.svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000-2300), dash.Summary.Balance.Cents)
	require.Len(t, dash.Months, 2)
	assert.Equal(t, "fev/24", dash.Months[0].Key.Label())
	assert.Len(t, dash.Recent, 4)
}

func TestClassifyAndUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		cat  Category
		text string
	}{
		{nil, CategoryNone, ""},
		{fmt.Errorf("wrap: %w", core.ErrMissingDate), CategoryValidation, "Selecione uma data."},
		{core.ErrInstallmentImmutable, CategoryDisallowed, "Parcelas não podem ser editadas ou excluídas individualmente. Exclua o parcelamento inteiro."},
		{core.ErrNotFound, CategoryNotFound, "Registro não encontrado."},
		{storage.ErrPermissionDenied, CategoryPermission, "Você não tem permissão para esta operação. Entre novamente."},
		{gateway.ErrQueueFull, CategoryUnavailable, "O serviço está temporariamente indisponível. Tente novamente em instantes."},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), CategoryUnavailable, "O serviço está temporariamente indisponível. Tente novamente em instantes."},
		{errors.New("disk exploded"), CategoryUnknown, "disk exploded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.cat, Classify(tt.err), "%v", tt.err)
		assert.Equal(t, tt.text, UserMessage(tt.err), "%v", tt.err)
	}
}
