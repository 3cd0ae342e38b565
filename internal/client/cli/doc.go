// Package cli provides the interactive tripkeeper client.
//
// It wires configuration, the local store, the sync processor and a REPL.
// Trips are always written locally first; when a remote DSN is configured a
// background watcher probes the backend and drains the outbox whenever it
// comes back online.
//
// Commands:
//   - start: record a departure
//   - finish <id>: record the arrival of an open trip
//   - delete <id>, show <id>
//   - list [status=... vehicle=... driver=... order=startedAt|completedAt dir=asc|desc page=N size=N company=...]
//   - pending: outbox entries still waiting for the backend
//   - sync: push and pull now
//
// App.Run blocks until the user exits or the context is cancelled.
package cli
