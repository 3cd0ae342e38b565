package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/client"
	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
)

var errNoRemote = errors.New("no remote configured, trips stay local")

// now is a test seam.
var now = time.Now

// Start prompts for a departure and records it.
func (a *App) Start(ctx context.Context) error {
	var in models.NewTrip
	var err error

	if a.trips.DefaultCompany() == "" {
		if in.CompanyID, err = GetRequiredText(a.reader, "Company id", a.out); err != nil {
			return err
		}
	}
	if in.VehicleID, err = GetRequiredText(a.reader, "Vehicle id", a.out); err != nil {
		return err
	}
	if in.VehicleLabel, err = GetSimpleText(a.reader, "Vehicle label (optional)", a.out); err != nil {
		return err
	}
	if in.DriverMatricula, err = GetRequiredText(a.reader, "Driver matricula", a.out); err != nil {
		return err
	}
	if in.DriverName, err = GetSimpleText(a.reader, "Driver name (optional)", a.out); err != nil {
		return err
	}
	if in.StartCounter, err = GetNumber(a.reader, "Start counter", a.out); err != nil {
		return err
	}
	if in.Origin, err = GetSimpleText(a.reader, "Origin", a.out); err != nil {
		return err
	}

	trip, err := a.trips.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Started trip %s\n", trip.ID)
	return nil
}

// Finish records the arrival of an open trip.
func (a *App) Finish(ctx context.Context, id string) error {
	id, err := a.resolveID(id, "Enter trip id to finish")
	if err != nil {
		return err
	}

	trip, err := a.trips.Get(ctx, id)
	if err != nil {
		return err
	}
	if trip.Status != models.StatusInProgress {
		return fmt.Errorf("%w: trip %s is %s", common.ErrValidation, id, trip.Status)
	}

	end, err := GetNumber(a.reader, "End counter", a.out)
	if err != nil {
		return err
	}
	dest, err := GetSimpleText(a.reader, "Destination", a.out)
	if err != nil {
		return err
	}

	patch := models.TripPatch{
		EndCounter:  &end,
		Status:      models.Ptr(models.StatusCompleted),
		CompletedAt: models.Ptr(now()),
	}
	if dest != "" {
		patch.Destination = &dest
	}

	updated, err := a.trips.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	dist, _ := updated.Distance()
	fmt.Fprintf(a.out, "Finished trip %s, distance %s\n", updated.ID, formatNumber(dist))
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	id, err := a.resolveID(id, "Enter trip id to delete")
	if err != nil {
		return err
	}
	if _, err := a.trips.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted trip %s\n", id)
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	id, err := a.resolveID(id, "Enter trip id to show")
	if err != nil {
		return err
	}
	trip, err := a.trips.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, formatTrip(trip))
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	q, err := parseListArgs(args, a.config.PageSize)
	if err != nil {
		return err
	}
	page, err := a.trips.List(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tVEHICLE\tDRIVER\tSTARTED\tDISTANCE\tSYNC")
	for _, t := range page.Items {
		dist := "-"
		if d, ok := t.Distance(); ok {
			dist = formatNumber(d)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Status, t.VehicleID, t.DriverMatricula,
			t.StartedAt.Local().Format(time.DateTime), dist, t.SyncStatus)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d: %d of %d trips\n", q.Page, len(page.Items), page.Total)
	return nil
}

func (a *App) Pending(ctx context.Context) error {
	entries, err := a.trips.Pending(ctx, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "Nothing pending")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOP\tKEY\tRETRIES\tNEXT RETRY\tLAST ERROR")
	for _, e := range entries {
		next := e.NextRetryAt.Local().Format(time.DateTime)
		if e.Parked {
			next = "parked"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.Seq, e.Operation, e.IdempotencyKey, e.RetryCount, next, e.LastError)
	}
	return tw.Flush()
}

func (a *App) Sync(ctx context.Context) error {
	if a.sync == nil {
		return errNoRemote
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	pushed, pulled, err := a.sync.Sync(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		a.setMode(ModeOffline)
	}
	fmt.Fprintf(a.out, "pushed %d, pulled %d\n", pushed.Applied, pulled)
	return err
}

// Resync drops the feed cursor and pulls every remote trip again.
func (a *App) Resync(ctx context.Context) error {
	if a.sync == nil {
		return errNoRemote
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	pulled, err := a.sync.Resync(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		a.setMode(ModeOffline)
	}
	fmt.Fprintf(a.out, "pulled %d\n", pulled)
	return err
}

func (a *App) resolveID(id, prompt string) (string, error) {
	if id != "" {
		return id, nil
	}
	return GetRequiredText(a.reader, prompt, a.out)
}

// parseListArgs turns key=value tokens into a query.
func parseListArgs(args []string, pageSize int) (models.ListQuery, error) {
	q := models.ListQuery{PageSize: pageSize}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return q, fmt.Errorf("%w: expected key=value, got %q", common.ErrValidation, arg)
		}
		key = strings.ToLower(key)
		switch key {
		case "status":
			q.Filters.Status = models.TripStatus(strings.ToUpper(value))
		case "vehicle":
			q.Filters.VehicleID = value
		case "driver":
			q.Filters.DriverMatricula = value
		case "company":
			q.Filters.CompanyID = value
		case "order":
			q.Filters.OrderBy = models.OrderBy(value)
		case "dir":
			q.Filters.Direction = models.Direction(strings.ToLower(value))
		case "page", "size":
			n, err := strconv.Atoi(value)
			if err != nil {
				return q, fmt.Errorf("%w: %s must be a number", common.ErrValidation, key)
			}
			if key == "page" {
				q.Page = n
			} else {
				q.PageSize = n
			}
		default:
			return q, fmt.Errorf("%w: unknown filter %q", common.ErrValidation, key)
		}
	}
	return q, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTrip(t *models.Trip) string {
	var b strings.Builder
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%-12s %s\n", k+":", v)
		}
	}

	line("ID", t.ID)
	line("Company", t.CompanyID)
	line("Status", string(t.Status))
	line("Vehicle", strings.TrimSpace(t.VehicleID+" "+t.VehicleLabel))
	line("Driver", strings.TrimSpace(t.DriverMatricula+" "+t.DriverName))
	line("Origin", t.Origin)
	line("Destination", t.Destination)
	line("Started", t.StartedAt.Local().Format(time.DateTime))
	line("Start", formatNumber(t.StartCounter))
	if t.EndCounter != nil {
		line("End", formatNumber(*t.EndCounter))
	}
	if d, ok := t.Distance(); ok {
		line("Distance", formatNumber(d))
	}
	if t.CompletedAt != nil {
		line("Completed", t.CompletedAt.Local().Format(time.DateTime))
	}
	line("Version", strconv.FormatInt(t.Version, 10))
	line("Sync", string(t.SyncStatus))
	line("Sync error", t.LastSyncError)
	return b.String()
}
