// Package models defines the rows stored by the backend.
package models

import "time"

// Trip is the backend copy of a trip. Revision is assigned from a database
// sequence on every write and drives the incremental feed.
type Trip struct {
	ID              string
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
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Revision        int64
}

// StatusDeleted marks a soft-deleted trip.
const StatusDeleted = "DELETED"
