package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/shoplist/internal/app"
	"github.com/vyrodovalexey/shoplist/internal/config"
)

// globalFlags override values loaded from the environment.
type globalFlags struct {
	envFile    string
	store      string
	sqlitePath string
	notifier   string
	to         string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "shoplistctl",
		Short:         "Manage the household shopping list",
		Long:          "shoplistctl reads the item catalog, sends shopping lists and browses past lists.",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "Load environment variables from this file when it exists")
	pf.StringVar(&flags.store, "store", "", "Backing store driver: sqlite or memory")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "SQLite database file")
	pf.StringVar(&flags.notifier, "notifier", "", "Notifier: twilio or log")
	pf.StringVar(&flags.to, "to", "", "WhatsApp number that receives finalized lists")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	cmd.AddCommand(
		newInitCmd(flags),
		newItemsCmd(flags),
		newCategoriesCmd(flags),
		newAddCmd(flags),
		newHistoryCmd(flags),
		newPreviewCmd(flags),
		newFinalizeCmd(flags),
		newServeCmd(flags),
		newHashPasswordCmd(),
	)

	return cmd
}

// loadConfig loads configuration and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return nil, err
	}

	if f.store != "" {
		cfg.StoreDriver = f.store
	}
	if f.sqlitePath != "" {
		cfg.SQLitePath = f.sqlitePath
	}
	if f.notifier != "" {
		cfg.Notifier = f.notifier
	}
	if f.to != "" {
		cfg.WhatsAppTo = f.to
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// open loads configuration and builds the application.
func (f *globalFlags) open(ctx context.Context, cmd *cobra.Command) (*app.App, *config.Config, *zap.Logger, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newConsoleLogger(f.logLevel, cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, cfg, logger, nil
}

// newConsoleLogger writes human readable logs to the command's stderr.
func newConsoleLogger(level string, cmd *cobra.Command) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(cmd.ErrOrStderr()),
		zapLevel,
	)
	return zap.New(core), nil
}
