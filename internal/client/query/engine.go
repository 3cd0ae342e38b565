// Package query plans and executes paged trip listings over the local store.
//
// The planner picks the narrowest index for the filters: the compound
// (company, status, timestamp) index when both company and status are given,
// the company index when only the company is given, and a full scan
// otherwise. Remaining predicates are applied while walking the cursor, every
// match counts toward the total and only the requested page is kept.
//
// Cost is linear in the number of matching trips for every call. This is fine
// for a local database of a few thousand trips but it is not a seek.
package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/trips"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
)

// Plan describes how a listing is executed.
type Plan struct {
	Index     trips.Index
	Range     trips.KeyRange
	Direction models.Direction
	// Buffer is set when the index order differs from the requested order;
	// matches are then collected and sorted in memory before paging.
	Buffer bool
}

// Engine runs listings against a trips.Store.
type Engine struct {
	store trips.Store
}

func NewEngine(store trips.Store) *Engine {
	return &Engine{store: store}
}

// Normalize fills defaults and rejects unknown enum values.
func Normalize(q models.ListQuery) (models.ListQuery, error) {
	if q.Page < 0 {
		return q, fmt.Errorf("%w: negative page %d", common.ErrValidation, q.Page)
	}
	if q.PageSize <= 0 {
		q.PageSize = models.DefaultPageSize
	}

	f := &q.Filters
	if f.OrderBy == "" {
		f.OrderBy = models.OrderByStartedAt
	}
	if f.Direction == "" {
		f.Direction = models.Desc
	}

	switch {
	case f.OrderBy != models.OrderByStartedAt && f.OrderBy != models.OrderByCompletedAt:
		return q, fmt.Errorf("%w: unknown order %q", common.ErrValidation, f.OrderBy)
	case f.Direction != models.Asc && f.Direction != models.Desc:
		return q, fmt.Errorf("%w: unknown direction %q", common.ErrValidation, f.Direction)
	case f.Status != "" && !f.Status.Valid():
		return q, fmt.Errorf("%w: unknown status %q", common.ErrValidation, f.Status)
	}
	return q, nil
}

// PlanFor picks the index and key range for normalized filters.
func PlanFor(f models.Filters) Plan {
	switch {
	case f.CompanyID != "" && f.Status != "":
		idx := trips.IndexCompanyStatusStarted
		if f.OrderBy == models.OrderByCompletedAt {
			idx = trips.IndexCompanyStatusCompleted
		}
		return Plan{
			Index: idx,
			Range: trips.Bound(
				[]string{f.CompanyID, string(f.Status), ""},
				[]string{f.CompanyID, string(f.Status), trips.MaxKey},
			),
			Direction: f.Direction,
		}

	case f.CompanyID != "":
		return Plan{
			Index:     trips.IndexCompany,
			Range:     trips.Only(f.CompanyID),
			Direction: f.Direction,
			Buffer:    f.OrderBy != models.OrderByStartedAt,
		}

	default:
		return Plan{
			Index:     trips.IndexPrimary,
			Range:     trips.All(),
			Direction: models.Asc,
			Buffer:    true,
		}
	}
}

// List returns one page of matching trips and the total number of matches.
func (e *Engine) List(ctx context.Context, q models.ListQuery) (models.Page, error) {
	q, err := Normalize(q)
	if err != nil {
		return models.Page{}, err
	}
	plan := PlanFor(q.Filters)

	cur, err := e.store.OpenCursor(ctx, plan.Index, plan.Range, plan.Direction)
	if err != nil {
		return models.Page{}, err
	}
	defer cur.Close()

	offset := q.Page * q.PageSize
	page := models.Page{Items: []models.Trip{}}
	var buffered []models.Trip

	for cur.Next() {
		t := cur.Trip()
		if !matches(q.Filters, &t) {
			continue
		}
		if plan.Buffer {
			buffered = append(buffered, t)
			continue
		}
		if page.Total >= offset && len(page.Items) < q.PageSize {
			page.Items = append(page.Items, t)
		}
		page.Total++
	}
	if err := cur.Err(); err != nil {
		return models.Page{}, err
	}

	if plan.Buffer {
		sortTrips(buffered, q.Filters.OrderBy, q.Filters.Direction)
		page.Total = len(buffered)
		if offset < len(buffered) {
			end := min(offset+q.PageSize, len(buffered))
			page.Items = append(page.Items, buffered[offset:end]...)
		}
	}
	return page, nil
}

func matches(f models.Filters, t *models.Trip) bool {
	switch {
	case f.CompanyID != "" && t.CompanyID != f.CompanyID:
		return false
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.VehicleID != "" && t.VehicleID != f.VehicleID:
		return false
	case f.DriverMatricula != "" && t.DriverMatricula != f.DriverMatricula:
		return false
	}
	return true
}

// sortTrips orders by the requested timestamp, then id. Trips without the
// timestamp go last in either direction.
func sortTrips(ts []models.Trip, by models.OrderBy, dir models.Direction) {
	key := func(t *models.Trip) *time.Time {
		if by == models.OrderByCompletedAt {
			return t.CompletedAt
		}
		return &t.StartedAt
	}

	slices.SortStableFunc(ts, func(a, b models.Trip) int {
		ka, kb := key(&a), key(&b)
		switch {
		case ka == nil && kb == nil:
			return cmp.Compare(a.ID, b.ID)
		case ka == nil:
			return 1
		case kb == nil:
			return -1
		}

		c := ka.Compare(*kb)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if dir == models.Desc {
			c = -c
		}
		return c
	})
}
