// Package client contains the client-side building blocks that touch the
// outside world.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) used by
//     the sync service: Ping, Apply and Fetch.
//  2. A PostgreSQL implementation (see PostgresClient) that applies outbox
//     entries directly against the backend schema. Each Apply records the
//     idempotency key and performs the mutation in a single transaction, so a
//     retried entry is never applied twice.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations),
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// ErrUnavailable means the backend could not be reached and the call may be
// retried later. ErrRejected means the backend refused the mutation.
//
// Concurrency & Contexts
//
// PostgresClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client
