package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"offline-quiz-service/internal/config"
	transport "offline-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()
	log := deps.logger

	if cfg.SyncOnStart() {
		updated, _ := deps.syncer.Sync(ctx)
		status := deps.syncer.Status()
		log.Info("initial sync done", "updated", updated, "version", status.LocalVersion)
	}

	// A typed nil would register the auth routes.
	var accounts transport.Accounts
	if deps.accounts != nil {
		accounts = deps.accounts
	}

	router := transport.NewRouter(deps.service, accounts, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if werr := router.Shutdown(shutdownCtx); werr != nil {
		log.Warn("websocket handlers still running at shutdown", "err", werr)
	}
	deps.service.Abandon()
	if werr := deps.writer.Close(shutdownCtx); werr != nil {
		log.Warn("remote mirrors still pending at shutdown", "err", werr)
	}
	return err
}
