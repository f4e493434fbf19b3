package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gangwalrachit/SpotiSpy/internal/models"
	"github.com/gangwalrachit/SpotiSpy/internal/repositories"
	"github.com/gangwalrachit/SpotiSpy/internal/server"
	"github.com/gangwalrachit/SpotiSpy/internal/services"
	"github.com/gangwalrachit/SpotiSpy/internal/shared"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the dashboard web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "Keep identities in memory instead of SQLite (lost on restart)",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the identity store, Spotify client, session binder, and handlers
// into an HTTP server, then runs it until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	if err := config.Validate(); err != nil {
		return err
	}

	var identities models.IdentityStore
	if cmd.Bool("memory") {
		r.logger.Warn("using in-memory identity store, records are lost on restart")
		identities = repositories.NewMemoryIdentityStore()
	} else {
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			return err
		}

		identities = repositories.NewIdentityRepository(db)
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	sessions := server.NewSessionBinder([]byte(config.Server.SessionSecret))

	contentHandler, err := server.NewContentHandler(spotify, identities, sessions, r.logger)
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewAuthHandler(spotify, identities, sessions, r.logger))
	router.Handler(contentHandler)

	httpServer := &http.Server{
		Addr:    config.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting dashboard", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	return nil
}
