package repository

import (
	"github.com/deppfellow/bookshelf/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Books *BookRepository
}

// NewRepositories builds every repository on the server's database.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Books: NewBookRepository(s.DB.Adapter(), s.DB.Dialect()),
	}
}
