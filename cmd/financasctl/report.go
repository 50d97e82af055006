package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"financas/internal/core"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a user's balance and monthly totals",
		Long: `Print the balance, settled and pending totals and the per-month
receitas and despesas for one account. Period flags narrow the
transactions the same way the web report does.`,
		RunE: runReport,
	}

	cmd.Flags().String("user", "", "account email (required)")
	cmd.Flags().String("period", "all", "period: all, day, week, month, year or month-year")
	cmd.Flags().Int("month", 0, "month (1-12) for --period month-year")
	cmd.Flags().Int("year", 0, "year for --period month-year")
	cmd.Flags().String("tipo", "", "only receita or despesa")
	cmd.Flags().String("search", "", "only transactions whose description contains this text")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	mode, _ := cmd.Flags().GetString("period")
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	tipoFlag, _ := cmd.Flags().GetString("tipo")
	search, _ := cmd.Flags().GetString("search")

	period, err := core.ParsePeriod(mode, month, year)
	if err != nil {
		return fmt.Errorf("invalid period %q: %w", mode, err)
	}
	var tipo core.Kind
	if tipoFlag != "" {
		if tipo, err = core.ParseKind(tipoFlag); err != nil {
			return err
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	user, err := lookupUser(ctx, store, email)
	if err != nil {
		return err
	}
	ts, err := store.ListTransactions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	report := core.BuildReport(ts, tipo, core.ReportFilter{Term: search, Period: period}, time.Now())
	summary := core.Summarize(report.Items)

	fmt.Println(formatTitle("Financas: " + user.Email))
	fmt.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("Saldo ")+formatMoney(summary.Balance),
		subtleStyle.Render("Receitas pagas   ")+core.FormatBRL(summary.TotalReceitas),
		subtleStyle.Render("Despesas pagas   ")+core.FormatBRL(summary.TotalDespesas),
		subtleStyle.Render("Receitas pendentes ")+core.FormatBRL(summary.PendingReceitas),
		subtleStyle.Render("Despesas pendentes ")+core.FormatBRL(summary.PendingDespesas),
		subtleStyle.Render(fmt.Sprintf("%d transações", summary.TransactionCount)),
	)))
	fmt.Println()

	buckets := core.GroupByMonth(report.Items)
	if len(buckets) == 0 {
		fmt.Println(subtleStyle.Render("No dated transactions in this period."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Mês"),
		headerStyle.Render("Receitas"),
		headerStyle.Render("Despesas"),
		headerStyle.Render("Saldo"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 8),
		strings.Repeat("─", 14),
		strings.Repeat("─", 14),
		strings.Repeat("─", 14))
	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			b.Key.Label(),
			core.FormatBRL(b.TotalReceitas),
			core.FormatBRL(b.TotalDespesas),
			formatMoney(b.Saldo))
	}
	return w.Flush()
}
