// Package service contains the business logic.
//
// It sits between the handler and repository layers: it enforces the
// rules a book must satisfy, keeps the cache coherent, announces new
// books to the job queue, and turns store errors into API errors.
package service
