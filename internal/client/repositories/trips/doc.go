// Package trips is the local record store for trip entries.
//
// # Overview
//
// Store is a durable, keyed store with secondary indexes. It supports point
// lookups and lazy, ordered range scans (OpenCursor) over:
//
//   - IndexPrimary: id
//   - IndexCompany: company_id (ties by started_at, id)
//   - IndexCompanyStatusStarted: (company_id, status, started_at)
//   - IndexCompanyStatusCompleted: (company_id, status, completed_at)
//
// Rows whose indexed timestamp is NULL never match a bounded range scan over
// that timestamp.
//
// # Deletion
//
// There is no delete operation. Callers express deletion as a status change.
//
// # Errors
//
// Invariant violations return common.ErrValidation before touching the
// database, unknown ids return common.ErrorNotFound, failed compare-and-swap
// returns common.ErrVersionConflict and anything the driver rejects is wrapped
// with common.ErrStorageFailure.
//
// Typical Usage
//
//	store := trips.NewSQLiteStore(db)
//	_ = store.Put(ctx, &trip)
//	cur, _ := store.OpenCursor(ctx, trips.IndexCompany, trips.Only("acme"), models.Desc)
//	defer cur.Close()
//	for cur.Next() {
//	    t := cur.Trip()
//	}
package trips
