// Package errs defines the error shapes the API returns.
//
// Every failure a client can see is an *HTTPError: a stable machine code,
// a human message, the HTTP status, and optional field-level errors for
// rejected input.
package errs
