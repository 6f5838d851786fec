package middleware

import (
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/server"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
)

// AdminRole is the Clerk organization role allowed to modify books.
const AdminRole = "org:admin"

// AuthMiddleware authenticates requests with Clerk session tokens.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireAuth verifies the bearer token and stores the user id, role and
// permissions on the Echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		))(
		func(c echo.Context) error {
			claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
			if !ok {
				GetLogger(c).Warn().Msg("could not get session claims from context")
				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(UserRoleKey, claims.ActiveOrganizationRole)
			c.Set("permissions", claims.Claims.ActiveOrganizationPermissions)

			userLogger := GetLogger(c).With().
				Str("user_id", claims.Subject).
				Str("user_role", claims.ActiveOrganizationRole).
				Logger()
			c.Set(LoggerKey, &userLogger)

			userLogger.Debug().Msg("user authenticated")

			return next(c)
		})
}

// RequireAdmin lets through only users whose active organization role is
// AdminRole. It must run after RequireAuth.
func (auth *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if GetUserRole(c) != AdminRole {
			GetLogger(c).Warn().Str("user_id", GetUserID(c)).Msg("write attempted without admin role")
			return errs.NewForbiddenError("You do not have permission to perform this action", true)
		}

		return next(c)
	}
}

// AdminOnly returns the middleware guarding write routes.
//
// Without a Clerk secret key, local environments leave writes open and
// every other environment refuses them.
func (auth *AuthMiddleware) AdminOnly() []echo.MiddlewareFunc {
	if auth.server.Config.Auth.SecretKey != "" {
		return []echo.MiddlewareFunc{auth.RequireAuth, auth.RequireAdmin}
	}

	if auth.server.Config.IsLocal() {
		auth.server.Logger.Warn().Msg("no auth secret key configured, write routes are open in local env")
		return nil
	}

	return []echo.MiddlewareFunc{func(echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return errs.NewForbiddenError("Write access is not configured", false)
		}
	}}
}

func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	body := errs.NewUnauthorizedError("Unauthorized", false)

	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusUnauthorized)

	if err := jsoniter.NewEncoder(w).Encode(body); err != nil {
		auth.server.Logger.Error().Err(err).Msg("failed to write unauthorized response")
		return
	}

	auth.server.Logger.Warn().
		Str("path", r.URL.Path).
		Str("request_id", w.Header().Get(RequestIDHeader)).
		Msg("request rejected by authentication")
}
