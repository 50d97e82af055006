package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"financas/internal/cli"
	applog "financas/internal/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "financasctl",
		Short: "Administer a financas installation",
		Long: `financasctl runs maintenance tasks against the financas SQLite database:
schema migrations, account creation, ledger reports and installment cleanup.

Settings come from flags, then FINANCAS_* environment variables, then defaults.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./financas.yaml)")
	rootCmd.PersistentFlags().String("db", "./data/financas.db", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(installmentsCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("financas")
		viper.SetConfigType("yaml")
	}

	// FINANCAS_DATABASE_PATH, FINANCAS_LOGGING_LEVEL, ...
	viper.SetEnvPrefix("FINANCAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	return setupLogging()
}

func setupLogging() error {
	level, err := applog.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    viper.GetString("logging.format"),
		Component: "financasctl",
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)
	slog.Debug("Configuration loaded", "database", viper.GetString("database.path"))
	return nil
}
