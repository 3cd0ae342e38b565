package models

import (
	"fmt"
	"time"
)

// Operation is the kind of mutation journaled in the outbox.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}

// OutboxEntry is one not-yet-confirmed mutation.
type OutboxEntry struct {
	// Seq is assigned by the outbox and strictly increases with insertion.
	Seq       int64
	Operation Operation
	RecordID  string
	// RecordVersion is the local version the entry corresponds to. It is used
	// to mark the trip synced once the entry is acknowledged.
	RecordVersion int64
	// Payload is the full snapshot; nil for deletes.
	Payload        *Payload
	IdempotencyKey string
	RetryCount     int
	NextRetryAt    time.Time
	LastError      string
	// Parked entries were refused by the backend. They stay queued for
	// inspection but are never pushed again.
	Parked    bool
	CreatedAt time.Time
}

// MutationKey is the idempotency key of a create or update.
func MutationKey(id string, version int64) string {
	return fmt.Sprintf("%s:%d", id, version)
}

// DeleteKey is the idempotency key of a delete.
func DeleteKey(id string) string {
	return id + ":delete"
}
