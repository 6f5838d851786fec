// Package handler is the HTTP layer between the router and the services.
//
// Handlers bind and validate requests through the validation package, call
// a service and write the result. Errors are returned untouched for the
// global error handler to render.
package handler
