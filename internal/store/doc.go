// Package store implements the panel's PostgreSQL persistence: user
// accounts with their two-factor state and the append-only audit log.
//
// Every type takes a DB, which *pgxpool.Pool satisfies.
package store
