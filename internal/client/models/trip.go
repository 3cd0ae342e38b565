// Package models defines the client-side trip record, its outbox journal
// entries and the list query types.
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/common"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	StatusInProgress TripStatus = "IN_PROGRESS"
	StatusCompleted  TripStatus = "COMPLETED"
	StatusDeleted    TripStatus = "DELETED"
)

func (s TripStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// SyncStatus tells whether the local copy has been confirmed by the backend.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

func (s SyncStatus) Valid() bool {
	return s == SyncPending || s == SyncSynced
}

// Trip is a single vehicle usage entry.
type Trip struct {
	// ID is generated on the client and globally unique.
	ID string
	// CompanyID scopes the trip to a tenant.
	CompanyID string

	VehicleID       string
	VehicleLabel    string
	DriverMatricula string
	DriverName      string

	// StartCounter is the odometer reading at departure.
	StartCounter float64
	// EndCounter is the odometer reading at arrival; nil until completed.
	EndCounter *float64

	Origin      string
	Destination string

	StartedAt   time.Time
	CompletedAt *time.Time

	Status TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version starts at 1 and grows by one with every local mutation.
	Version int64
	// SyncStatus stays pending until the backend confirms the latest version.
	SyncStatus SyncStatus
	// LastSyncError keeps the last push failure for display. Local only.
	LastSyncError string
}

// Validate checks the invariants enforced at the store boundary.
func (t *Trip) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: id is required", common.ErrValidation)
	case t.CompanyID == "":
		return fmt.Errorf("%w: company id is required", common.ErrValidation)
	case !t.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", common.ErrValidation, t.Status)
	case !t.SyncStatus.Valid():
		return fmt.Errorf("%w: unknown sync status %q", common.ErrValidation, t.SyncStatus)
	case t.Version < 1:
		return fmt.Errorf("%w: version must be positive, got %d", common.ErrValidation, t.Version)
	case t.StartedAt.IsZero():
		return fmt.Errorf("%w: start time is required", common.ErrValidation)
	case !validCounter(t.StartCounter):
		return fmt.Errorf("%w: invalid start counter %v", common.ErrValidation, t.StartCounter)
	case t.EndCounter != nil && !validCounter(*t.EndCounter):
		return fmt.Errorf("%w: invalid end counter %v", common.ErrValidation, *t.EndCounter)
	}

	if t.Status == StatusCompleted {
		if t.EndCounter == nil {
			return fmt.Errorf("%w: completed trip needs an end counter", common.ErrValidation)
		}
		if *t.EndCounter < t.StartCounter {
			return fmt.Errorf("%w: end counter %v is below start counter %v",
				common.ErrValidation, *t.EndCounter, t.StartCounter)
		}
	}
	return nil
}

func validCounter(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Distance returns the travelled distance once both counters are known.
func (t *Trip) Distance() (float64, bool) {
	if t.EndCounter == nil {
		return 0, false
	}
	return *t.EndCounter - t.StartCounter, true
}

// NewTrip carries the caller-supplied fields of a trip being started.
// Zero Status defaults to IN_PROGRESS, zero StartedAt to the current time and
// empty CompanyID to the service default.
type NewTrip struct {
	CompanyID       string
	VehicleID       string
	VehicleLabel    string
	DriverMatricula string
	DriverName      string
	StartCounter    float64
	EndCounter      *float64
	Origin          string
	Destination     string
	StartedAt       time.Time
	CompletedAt     *time.Time
	Status          TripStatus
}

// TripPatch is a shallow update: every non-nil field replaces the stored one.
type TripPatch struct {
	VehicleID       *string
	VehicleLabel    *string
	DriverMatricula *string
	DriverName      *string
	StartCounter    *float64
	EndCounter      *float64
	Origin          *string
	Destination     *string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Status          *TripStatus
}

// ApplyTo merges the patch into t.
func (p TripPatch) ApplyTo(t *Trip) {
	setIf(&t.VehicleID, p.VehicleID)
	setIf(&t.VehicleLabel, p.VehicleLabel)
	setIf(&t.DriverMatricula, p.DriverMatricula)
	setIf(&t.DriverName, p.DriverName)
	setIf(&t.StartCounter, p.StartCounter)
	setIf(&t.Origin, p.Origin)
	setIf(&t.Destination, p.Destination)
	setIf(&t.StartedAt, p.StartedAt)
	setIf(&t.Status, p.Status)
	if p.EndCounter != nil {
		v := *p.EndCounter
		t.EndCounter = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		t.CompletedAt = &v
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Ptr returns a pointer to v. Handy when building patches.
func Ptr[T any](v T) *T {
	return &v
}
