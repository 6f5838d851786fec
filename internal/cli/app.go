package cli

import (
	"io"
	"time"

	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/deppfellow/bookshelf/internal/service"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/bookshelf/internal/logger"
)

// app is everything a command needs once the store is open.
type app struct {
	cfg           *config.Config
	logger        *zerolog.Logger
	loggerService *loggerPkg.LoggerService
	server        *server.Server
	services      *service.Services
}

// loadConfig returns the SQLite configuration when --sqlite is set and
// the environment configuration otherwise.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.SQLite != "" {
		return sqliteConfig(o.SQLite), nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}

	return cfg, nil
}

func sqliteConfig(path string) *config.Config {
	obs := config.DefaultObservabilityConfig()
	obs.Environment = "local"
	obs.Logging.Level = "warn"
	obs.Logging.Format = "console"

	return &config.Config{
		Primary: config.Primary{Env: "local"},
		Server: config.ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   path,
		},
		Redis:         config.RedisConfig{CacheTTL: 5 * time.Minute},
		Observability: obs,
	}
}

// openApp loads configuration and opens the store, logging to logOut.
func openApp(opts *RootOptions, logOut io.Writer, serverOpts server.Options) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	loggerService := loggerPkg.NewLoggerService(cfg.Observability)
	log := loggerPkg.NewLoggerTo(logOut, cfg.Observability, loggerService)

	srv, err := server.New(cfg, &log, loggerService, serverOpts)
	if err != nil {
		loggerService.Shutdown()
		return nil, err
	}

	services, err := service.NewService(srv, repository.NewRepositories(srv))
	if err != nil {
		srv.Close()
		loggerService.Shutdown()
		return nil, errors.Wrap(err, "creating services")
	}

	return &app{
		cfg:           cfg,
		logger:        &log,
		loggerService: loggerService,
		server:        srv,
		services:      services,
	}, nil
}

func (a *app) Close() {
	if err := a.server.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close server resources")
	}
	a.loggerService.Shutdown()
}
