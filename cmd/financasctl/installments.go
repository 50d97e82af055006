package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"financas/internal/core"
	"financas/internal/gateway"
	"financas/internal/services"
)

func installmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installments",
		Short: "Manage parceled purchases",
	}
	cmd.AddCommand(installmentsListCmd())
	cmd.AddCommand(installmentsDeleteCmd())
	return cmd
}

func installmentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <parcelaId>",
		Short: "List the members of an installment group",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstallmentsList,
	}
	cmd.Flags().String("user", "", "account email (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func installmentsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <parcelaId>",
		Short: "Delete every parcela of an installment group",
		Long: `Delete every member of an installment group in one atomic batch,
whatever their status. Nothing is removed if any delete fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runInstallmentsDelete,
	}
	cmd.Flags().String("user", "", "account email (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runInstallmentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	user, err := lookupUser(ctx, store, email)
	if err != nil {
		return err
	}
	members, err := services.NewLedgerService(nil, store).Installments(ctx, user.ID, args[0])
	if services.IsSoft(err) {
		fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render(services.UserMessage(err)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", services.UserMessage(err), err)
	}

	fmt.Println(formatTitle("Parcelas " + args[0]))
	for _, m := range members {
		fmt.Printf("%2d/%-2d  %-10s  %-30s  %s  %s\n",
			m.Installment.Atual, m.Installment.Total,
			m.Data.Format("2006-01-02"),
			m.Descricao,
			core.FormatBRL(m.Valor),
			subtleStyle.Render(string(m.Status)))
	}
	return nil
}

func runInstallmentsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	parcelaID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	user, err := lookupUser(ctx, store, email)
	if err != nil {
		return err
	}

	dispatcher := gateway.NewDispatcher(store, gateway.Options{QueueSize: 1, Logger: slog.Default()})
	dispatcher.Start()
	defer dispatcher.Stop()

	ledger := services.NewLedgerService(dispatcher, store)
	pending, err := ledger.DeleteInstallmentGroup(ctx, user.ID, parcelaID)
	if services.IsSoft(err) {
		fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render(services.UserMessage(err)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", services.UserMessage(err), err)
	}
	if err := pending.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", services.UserMessage(err), err)
	}

	fmt.Println(formatSuccess("Deleted installment group " + parcelaID))
	return nil
}
