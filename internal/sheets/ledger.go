package sheets

import (
	"fmt"
	"strings"

	"financas/internal/core"
)

const maxTabName = 100

var (
	ledgerHeader = []any{"Data", "Descrição", "Tipo", "Status", "Valor", "Grupo", "Parcela", "Observação"}
	totalsHeader = []any{"Mês", "Receitas", "Despesas", "Saldo"}
)

// TabName returns the tab holding the ledger of the given account. The
// email is preferred; the user ID is used when the email is unknown.
func TabName(userID, email string) string {
	name := strings.TrimSpace(email)
	if name == "" {
		name = userID
	}
	// Sheet names cannot contain these characters.
	name = strings.NewReplacer("[", "(", "]", ")", "*", "_", "?", "_", "/", "_", "\\", "_", ":", "_").Replace(name)
	name = "Financas " + name
	if r := []rune(name); len(r) > maxTabName {
		name = string(r[:maxTabName])
	}
	return name
}

// LedgerRows renders transactions as spreadsheet rows: a header, one row
// per transaction newest first, a blank row, then the settled monthly
// totals and the overall balance. Amounts are numbers so the sheet can sum
// them; despesas are negative.
func LedgerRows(ts []core.Transaction, groups core.GroupIndex) [][]any {
	sorted := core.SortByDateDescending(ts)
	rows := make([][]any, 0, len(sorted)+8)
	rows = append(rows, ledgerHeader)

	for _, t := range sorted {
		date := ""
		if t.HasDate() {
			date = t.Data.Format("2006-01-02")
		}
		parcela := ""
		if t.IsParcela() {
			parcela = fmt.Sprintf("%d/%d", t.Installment.Atual, t.Installment.Total)
		}
		rows = append(rows, []any{
			date,
			t.Descricao,
			string(t.Tipo),
			string(t.Status),
			t.Signed().Reais(),
			groups.Name(t.GroupID),
			parcela,
			t.Observacao,
		})
	}

	rows = append(rows, []any{}, totalsHeader)
	for _, b := range core.GroupByMonth(ts) {
		rows = append(rows, []any{
			b.Key.String(),
			b.TotalReceitas.Reais(),
			b.TotalDespesas.Reais(),
			b.Saldo.Reais(),
		})
	}
	rows = append(rows, []any{"Saldo", "", "", core.ComputeBalance(ts).Reais()})
	return rows
}
