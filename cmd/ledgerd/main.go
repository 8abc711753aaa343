package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SscSPs/voledger/internal/platform/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagConfigEnv = "config-env"
	flagPort      = "port"
	flagBackend   = "backend"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every sub command needs once the root pre-run has loaded it.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:           "ledgerd",
		Short:         "Value object ledger daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}
	rootCmd.PersistentFlags().String(flagConfigEnv, "", "additional .env file to load before the environment is read")
	rootCmd.PersistentFlags().String(flagPort, "", "HTTP listen port (overrides PORT)")
	rootCmd.PersistentFlags().String(flagBackend, "", "storage backend, one of: memory, bolt, postgres (overrides STORAGE_BACKEND)")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newTokenCmd(a))
	return rootCmd
}

func (a *app) initialize(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString(flagConfigEnv)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagConfigEnv, err)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	// flags win over the environment only when they were set explicitly
	for key, flag := range map[string]string{"PORT": flagPort, "STORAGE_BACKEND": flagBackend} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %q: %w", flag, err)
			}
		}
	}

	a.cfg, err = config.LoadConfigFrom(a.v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.logger, err = newLogger(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)
	return nil
}

// newLogger builds the structured JSON logger on stdout.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}
