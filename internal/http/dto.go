package http

import (
	"time"

	"financas/internal/core"
	"financas/internal/gateway"
	"financas/internal/live"
	"financas/internal/services"
)

type installmentView struct {
	ParcelaID string `json:"parcelaId"`
	Atual     int    `json:"atual"`
	Total     int    `json:"total"`
}

type transactionView struct {
	ID          string           `json:"id"`
	Descricao   string           `json:"descricao"`
	ValorCents  int64            `json:"valorCentavos"`
	Valor       string           `json:"valor"`
	Tipo        core.Kind        `json:"tipo"`
	Data        string           `json:"data,omitempty"`
	Status      core.Status      `json:"status"`
	GroupID     string           `json:"groupId,omitempty"`
	Grupo       string           `json:"grupo,omitempty"`
	Observacao  string           `json:"observacao,omitempty"`
	Installment *installmentView `json:"parcela,omitempty"`
}

type namedView struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Tipo core.Kind `json:"tipo"`
}

type summaryView struct {
	Balance          string `json:"saldo"`
	BalanceCents     int64  `json:"saldoCentavos"`
	TotalReceitas    string `json:"totalReceitas"`
	TotalDespesas    string `json:"totalDespesas"`
	PendingReceitas  string `json:"receitasPendentes"`
	PendingDespesas  string `json:"despesasPendentes"`
	TransactionCount int    `json:"quantidade"`
}

type monthView struct {
	Key           string `json:"mes"`
	Label         string `json:"rotulo"`
	TotalReceitas string `json:"totalReceitas"`
	TotalDespesas string `json:"totalDespesas"`
	Saldo         string `json:"saldo"`
	SaldoCompact  string `json:"saldoCompacto"`
	Count         int    `json:"quantidade"`
}

type dashboardView struct {
	Summary summaryView       `json:"resumo"`
	Months  []monthView       `json:"meses"`
	Recent  []transactionView `json:"recentes"`
}

type reportView struct {
	Tipo       core.Kind         `json:"tipo,omitempty"`
	Items      []transactionView `json:"itens"`
	Total      string            `json:"total"`
	TotalCents int64             `json:"totalCentavos"`
}

type snapshotEvent struct {
	Collection   core.Collection   `json:"collection"`
	Transactions []transactionView `json:"transactions,omitempty"`
	Groups       []namedView       `json:"groups,omitempty"`
	Descriptions []namedView       `json:"descriptions,omitempty"`
	At           time.Time         `json:"at"`
	Error        string            `json:"error,omitempty"`
}

type errorEvent struct {
	Op         string          `json:"op"`
	Collection core.Collection `json:"collection"`
	ID         string          `json:"id"`
	Error      string          `json:"error"`
	Category   string          `json:"category"`
	At         time.Time       `json:"at"`
}

func toTransactionView(t core.Transaction, groups core.GroupIndex) transactionView {
	v := transactionView{
		ID:         t.ID,
		Descricao:  t.Descricao,
		ValorCents: t.Valor.Cents,
		Valor:      core.FormatBRL(t.Valor),
		Tipo:       t.Tipo,
		Status:     t.Status,
		GroupID:    t.GroupID,
		Grupo:      groups.Name(t.GroupID),
		Observacao: t.Observacao,
	}
	if t.HasDate() {
		v.Data = t.Data.Format("2006-01-02")
	}
	if t.IsParcela() {
		v.Installment = &installmentView{
			ParcelaID: t.Installment.ParcelaID,
			Atual:     t.Installment.Atual,
			Total:     t.Installment.Total,
		}
	}
	return v
}

func toTransactionViews(ts []core.Transaction, groups core.GroupIndex) []transactionView {
	out := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionView(t, groups))
	}
	return out
}

func toGroupViews(gs []core.Group) []namedView {
	out := make([]namedView, 0, len(gs))
	for _, g := range gs {
		out = append(out, namedView{ID: g.ID, Name: g.Name, Tipo: g.Tipo})
	}
	return out
}

func toDescriptionViews(ds []core.PredefinedDescription) []namedView {
	out := make([]namedView, 0, len(ds))
	for _, d := range ds {
		out = append(out, namedView{ID: d.ID, Name: d.Name, Tipo: d.Tipo})
	}
	return out
}

func toSummaryView(s core.Summary) summaryView {
	return summaryView{
		Balance:          core.FormatBRL(s.Balance),
		BalanceCents:     s.Balance.Cents,
		TotalReceitas:    core.FormatBRL(s.TotalReceitas),
		TotalDespesas:    core.FormatBRL(s.TotalDespesas),
		PendingReceitas:  core.FormatBRL(s.PendingReceitas),
		PendingDespesas:  core.FormatBRL(s.PendingDespesas),
		TransactionCount: s.TransactionCount,
	}
}

func toDashboardView(d services.Dashboard) dashboardView {
	months := make([]monthView, 0, len(d.Months))
	for _, b := range d.Months {
		months = append(months, monthView{
			Key:           b.Key.String(),
			Label:         b.Key.Label(),
			TotalReceitas: core.FormatBRL(b.TotalReceitas),
			TotalDespesas: core.FormatBRL(b.TotalDespesas),
			Saldo:         core.FormatBRL(b.Saldo),
			SaldoCompact:  core.FormatCompact(b.Saldo),
			Count:         len(b.Transactions),
		})
	}
	return dashboardView{
		Summary: toSummaryView(d.Summary),
		Months:  months,
		Recent:  toTransactionViews(d.Recent, d.Groups),
	}
}

func toReportView(r core.Report, groups core.GroupIndex) reportView {
	return reportView{
		Tipo:       r.Tipo,
		Items:      toTransactionViews(r.Items, groups),
		Total:      core.FormatBRL(r.Total),
		TotalCents: r.Total.Cents,
	}
}

// toSnapshotEvent renders a hub snapshot. Group names on transactions are
// resolved with the index the stream keeps from its groups subscription.
func toSnapshotEvent(s live.Snapshot, groups core.GroupIndex) snapshotEvent {
	ev := snapshotEvent{Collection: s.Collection, At: s.At}
	if s.Err != nil {
		ev.Error = services.UserMessage(s.Err)
		return ev
	}
	switch s.Collection {
	case core.Transactions:
		ev.Transactions = toTransactionViews(s.Transactions, groups)
	case core.Groups:
		ev.Groups = toGroupViews(s.Groups)
	case core.Descriptions:
		ev.Descriptions = toDescriptionViews(s.Descriptions)
	}
	return ev
}

func toErrorEvent(r gateway.Report) errorEvent {
	return errorEvent{
		Op:         string(r.Op),
		Collection: r.Collection,
		ID:         r.ID,
		Error:      services.UserMessage(r.Err),
		Category:   string(services.Classify(r.Err)),
		At:         r.At,
	}
}
