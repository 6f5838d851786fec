// Package lib holds supporting code that is not a layer of its own: the
// book cache, background jobs, email delivery and small helpers.
package lib
