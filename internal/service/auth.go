package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/bookshelf/internal/server"
)

// AuthService configures the Clerk SDK with the secret key.
type AuthService struct {
	server  *server.Server
	enabled bool
}

func NewAuthService(s *server.Server) *AuthService {
	key := s.Config.Auth.SecretKey
	if key != "" {
		clerk.SetKey(key)
	}

	return &AuthService{
		server:  s,
		enabled: key != "",
	}
}

// Enabled reports whether a Clerk secret key is configured.
func (a *AuthService) Enabled() bool {
	return a.enabled
}
