package models

// OrderBy names the timestamp a listing is ordered by.
type OrderBy string

const (
	OrderByStartedAt   OrderBy = "startedAt"
	OrderByCompletedAt OrderBy = "completedAt"
)

// Direction of a listing.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// DefaultPageSize is used when a query leaves PageSize unset.
const DefaultPageSize = 10

// Filters narrow a listing. Empty fields do not filter.
type Filters struct {
	CompanyID       string
	Status          TripStatus
	OrderBy         OrderBy
	Direction       Direction
	VehicleID       string
	DriverMatricula string
}

// ListQuery selects a zero-based page of trips.
type ListQuery struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Page is one slice of a listing plus the total number of matches.
type Page struct {
	Items []Trip
	Total int
}
