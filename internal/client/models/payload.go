package models

import "time"

// Payload is the sanitized trip snapshot that crosses the boundary toward the
// backend. Local bookkeeping (version, sync status, sync errors) never
// appears here.
type Payload struct {
	ID              string     `json:"id"`
	CompanyID       string     `json:"companyId"`
	VehicleID       string     `json:"vehicleId"`
	VehicleLabel    string     `json:"vehicleLabel"`
	DriverMatricula string     `json:"driverMatricula"`
	DriverName      string     `json:"driverName"`
	StartCounter    float64    `json:"startCounter"`
	EndCounter      *float64   `json:"endCounter,omitempty"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Status          TripStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Payload strips the local-only fields from t.
func (t *Trip) Payload() Payload {
	p := Payload{
		ID:              t.ID,
		CompanyID:       t.CompanyID,
		VehicleID:       t.VehicleID,
		VehicleLabel:    t.VehicleLabel,
		DriverMatricula: t.DriverMatricula,
		DriverName:      t.DriverName,
		StartCounter:    t.StartCounter,
		Origin:          t.Origin,
		Destination:     t.Destination,
		StartedAt:       t.StartedAt,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.EndCounter != nil {
		v := *t.EndCounter
		p.EndCounter = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		p.CompletedAt = &v
	}
	return p
}

// Trip builds a trip from a remote snapshot. Local bookkeeping fields are
// left zero for the caller to fill in.
func (p Payload) Trip() Trip {
	t := Trip{
		ID:              p.ID,
		CompanyID:       p.CompanyID,
		VehicleID:       p.VehicleID,
		VehicleLabel:    p.VehicleLabel,
		DriverMatricula: p.DriverMatricula,
		DriverName:      p.DriverName,
		StartCounter:    p.StartCounter,
		Origin:          p.Origin,
		Destination:     p.Destination,
		StartedAt:       p.StartedAt,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.EndCounter != nil {
		v := *p.EndCounter
		t.EndCounter = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		t.CompletedAt = &v
	}
	return t
}
