// Package validation binds request data and validates it.
//
// Struct tags are checked with go-playground/validator; failures, and the
// rules tags cannot express, come back as field errors a client can show
// next to its inputs.
package validation
