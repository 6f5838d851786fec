package service

import (
	"github.com/deppfellow/bookshelf/internal/lib/cache"
	"github.com/deppfellow/bookshelf/internal/lib/job"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/deppfellow/bookshelf/internal/server"
)

// Services groups every service the handlers and commands call.
type Services struct {
	Auth  *AuthService
	Books *BookService
	Job   *job.JobService
}

// NewService wires every service onto the server's shared resources.
// Redis-backed pieces are left out when Redis is not configured.
func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var opts []BookOption

	if s.Redis != nil {
		opts = append(opts, WithCache(cache.NewBookCache(s.Redis, s.Config.Redis.CacheTTL)))
	}
	if s.Job != nil {
		opts = append(opts, WithNotifier(s.Job))
	}

	return &Services{
		Auth:  NewAuthService(s),
		Books: NewBookService(s.Logger, repos.Books, opts...),
		Job:   s.Job,
	}, nil
}
