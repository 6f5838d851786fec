// Package middleware holds the Echo middleware of the API.
//
// It covers request IDs, request-scoped logging, New Relic tracing, CORS,
// host checking, rate limiting, Clerk authentication with an admin gate
// for writes, panic recovery and the global error handler.
package middleware
