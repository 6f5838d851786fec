// Package job runs background work on Asynq.
//
// The service enqueues tasks through an asynq.Client and, in the serve
// command, processes them with an asynq.Server, both backed by the
// configured Redis.
package job

import (
	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/deppfellow/bookshelf/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// JobService holds the Asynq client (enqueue) and, once Start ran, the
// worker server. Processes that only enqueue never open the server's
// Redis connections.
type JobService struct {
	Client *asynq.Client
	server *asynq.Server
	logger *zerolog.Logger

	redisOpt    asynq.RedisClientOpt
	emailClient *email.Client
	notifyEmail string
}

// NewJobService creates a JobService enqueuing on cfg.Redis.Address.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	return &JobService{
		Client:   asynq.NewClient(redisOpt),
		logger:   logger,
		redisOpt: redisOpt,
	}
}

func (j *JobService) newServer() *asynq.Server {
	return asynq.NewServer(
		j.redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger:   asynqLogger{logger: j.logger},
			LogLevel: asynq.WarnLevel,
		},
	)
}

// InitHandlers prepares what task handlers depend on. Email stays off
// unless both a Resend key and a recipient are configured.
func (j *JobService) InitHandlers(cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Integration.ResendAPIKey != "" && cfg.Integration.NotifyEmail != "" {
		j.emailClient = email.NewClient(cfg, logger)
		j.notifyEmail = cfg.Integration.NotifyEmail
	}
}

// Mux routes task types to their handlers.
func (j *JobService) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskBookAdded, j.handleBookAddedTask)

	return mux
}

// Start builds and launches the worker server. It does not block.
func (j *JobService) Start() error {
	j.logger.Info().Msg("starting background job server")

	j.server = j.newServer()

	return j.server.Start(j.Mux())
}

// Running reports whether Start launched the worker server.
func (j *JobService) Running() bool {
	return j.server != nil
}

// Stop waits for running tasks when the worker server was started, then
// closes the client.
func (j *JobService) Stop() {
	if j.server != nil {
		j.logger.Info().Msg("stopping background job server")
		j.server.Shutdown()
		j.server = nil
	}

	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to close job client")
	}
}
