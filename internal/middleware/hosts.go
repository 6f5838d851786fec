package middleware

import (
	"net"
	"strings"

	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/labstack/echo/v4"
)

// AllowedHosts rejects requests whose Host header is not in hosts.
//
// An entry "*" allows every host and an entry starting with "." allows
// the domain and all its subdomains. An empty list allows everything.
func AllowedHosts(hosts []string) echo.MiddlewareFunc {
	allowed := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "*" {
			allowed = nil
			break
		}
		if h != "" {
			allowed = append(allowed, h)
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(allowed) == 0 {
			return next
		}

		return func(c echo.Context) error {
			if !hostAllowed(requestHost(c.Request().Host), allowed) {
				return errs.NewBadRequestError("Invalid host header", true, nil, nil, nil)
			}

			return next(c)
		}
	}
}

func requestHost(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}

	return strings.TrimSuffix(strings.ToLower(host), ".")
}

func hostAllowed(host string, allowed []string) bool {
	for _, pattern := range allowed {
		if strings.HasPrefix(pattern, ".") {
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}

	return false
}
