package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/organ-match-service/internal/db"
	"github.com/senyabanana/organ-match-service/internal/logger"
	"github.com/senyabanana/organ-match-service/internal/router/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "organ-match-service"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "organ-match",
		Short:        "Donor-recipient matching and allocation engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(matchCmd(&configPath))
	return rootCmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the scheduled matching trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, direction := range []struct {
		use, short string
		up         bool
	}{
		{"up", "Apply pending migrations", true},
		{"down", "Revert all migrations", false},
	} {
		direction := direction
		cmd.AddCommand(&cobra.Command{
			Use:   direction.use,
			Short: direction.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadConfig(*configPath)
				if err != nil {
					return err
				}
				if err := db.RunMigration(cfg.MigrationURL, cfg.PostgresConn, direction.up); err != nil {
					return err
				}
				cmd.Printf("migrate %s finished\n", direction.use)
				return nil
			},
		})
	}
	return cmd
}

func matchCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Matching engine operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one matching pass and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.allocation.RunPass(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	})
	return cmd
}

func setup(configPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func runServer(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.StorageBackend == config.StoragePostgres {
		if err := db.RunMigration(cfg.MigrationURL, cfg.PostgresConn, true); err != nil {
			log.Error("failed to migrate database", zap.Error(err))
			return err
		}
		log.Info("db migrated successfully")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", zap.Error(err))
		return err
	}
	defer a.close()

	if cfg.MatchInterval > 0 {
		go a.allocation.RunScheduled(ctx, cfg.MatchInterval)
		log.Info("scheduled matching enabled", zap.Duration("interval", cfg.MatchInterval))
	}

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is listening", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
