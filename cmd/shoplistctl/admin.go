package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/auth"
	"github.com/vyrodovalexey/shoplist/internal/config"
	"github.com/vyrodovalexey/shoplist/internal/server"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog tables and default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, cfg, _, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			location := "memory"
			if cfg.StoreDriver == config.StoreSQLite {
				location = cfg.SQLitePath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store ready at %s with %d categories\n",
				location, len(a.Service.Categories(ctx)))
			return nil
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cfg, logger, err := flags.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
			if err != nil {
				return err
			}

			logger.Info("serving", zap.String("address", cfg.Address()))
			return server.New(cfg, logger, a.Service, authenticator).Run(ctx, cfg.ShutdownTimeout)
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for APP_BASIC_AUTH_USERS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
