// Package repository handles all interactions with the database.
//
// Queries are built with goqu for the connection's dialect and run
// through a database.DBAdapter, so the same repository serves PostgreSQL
// and SQLite.
package repository
