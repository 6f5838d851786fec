package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/bookshelf/internal/database"
	"github.com/deppfellow/bookshelf/internal/handler"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/deppfellow/bookshelf/internal/router"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/deppfellow/bookshelf/internal/service"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	loggerPkg "github.com/deppfellow/bookshelf/internal/logger"
)

// ShutdownTimeout bounds how long in-flight requests may take once a
// shutdown signal arrives.
const ShutdownTimeout = 30 * time.Second

// NewServeCommand runs the HTTP API until SIGINT or SIGTERM.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API and the background job workers.

Migrations run first when database.auto_migrate is set. SIGINT or SIGTERM
stops the server gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	loggerService := loggerPkg.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := loggerPkg.NewLoggerWithService(cfg.Observability, loggerService)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, &log, cfg); err != nil {
			return errors.Wrap(err, "migrating database")
		}
	}

	srv, err := server.New(cfg, &log, loggerService, server.Options{StartWorkers: true})
	if err != nil {
		return errors.Wrap(err, "initializing server")
	}

	services, err := service.NewService(srv, repository.NewRepositories(srv))
	if err != nil {
		srv.Close()
		return errors.Wrap(err, "creating services")
	}

	log.Info().
		Bool("auth_enabled", services.Auth.Enabled()).
		Bool("job_workers", srv.Job != nil && srv.Job.Running()).
		Msg("services ready")

	r := router.NewRouter(srv, handler.NewHandlers(srv, services))
	srv.SetupHTTPServer(r)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		srv.Close()
		return errors.Wrap(err, "serving HTTP")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}

	log.Info().Msg("server exited properly")

	return nil
}
