package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/usersaynoso/shadowme-server/internal/app"
	"github.com/usersaynoso/shadowme-server/internal/config"
	"github.com/usersaynoso/shadowme-server/internal/log"
	"github.com/usersaynoso/shadowme-server/internal/store"
	"github.com/usersaynoso/shadowme-server/internal/store/sqlite"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "shadowme-server",
		Short:         "ShadowMe social server with realtime shadow sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and realtime server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap := log.New("info")
			cfg, path, err := config.Load(bootstrap, configPath)
			if err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting shadowme server")

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed-emotions",
		Short: "Seed the emotion catalogue into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap := log.New("info")
			cfg, _, err := config.Load(bootstrap, configPath)
			if err != nil {
				return err
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()

			if err := st.SeedEmotions(context.Background(), store.DefaultEmotions); err != nil {
				return fmt.Errorf("seed emotions: %w", err)
			}

			bootstrap.Info().Int("count", len(store.DefaultEmotions)).Msg("emotion catalogue seeded")
			return nil
		},
	}

	root.AddCommand(serve, seed)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
