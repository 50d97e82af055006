package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"financas/internal/auth"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(usersCreateCmd())
	return cmd
}

func usersCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account with the same rules as sign up on the web:
a valid email address and a password of at least six characters.`,
		RunE: runUsersCreate,
	}

	cmd.Flags().String("email", "", "account email (required)")
	cmd.Flags().String("password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runUsersCreate(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	svc := auth.NewService(store, auth.Options{MaxSessions: 1, Logger: slog.Default()})
	sess, err := svc.SignUp(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("%s: %w", auth.Message(err), err)
	}
	// The session opened by sign up is only used by the web client.
	svc.SignOut(cmd.Context(), sess.Token)

	fmt.Println(formatSuccess(fmt.Sprintf("Created %s (%s)", sess.User.Email, sess.User.ID)))
	return nil
}
