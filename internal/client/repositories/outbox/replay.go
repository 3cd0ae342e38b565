package outbox

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
)

// Latest keeps the newest entry per record id. Since every create and update
// carries a full snapshot, pushing only these converges the backend.
func Latest(entries []models.OutboxEntry) map[string]models.OutboxEntry {
	out := make(map[string]models.OutboxEntry, len(entries))
	for _, e := range entries {
		if cur, ok := out[e.RecordID]; ok && cur.Seq > e.Seq {
			continue
		}
		out[e.RecordID] = e
	}
	return out
}

// Replay applies entries wholesale in sequence order and returns the
// resulting snapshot per record id. A delete keeps the previous snapshot with
// status DELETED, or a bare tombstone when no snapshot was queued.
func Replay(entries []models.OutboxEntry) map[string]models.Payload {
	ordered := make([]models.OutboxEntry, len(entries))
	copy(ordered, entries)
	sortBySeq(ordered)

	out := make(map[string]models.Payload)
	for _, e := range ordered {
		switch e.Operation {
		case models.OpCreate, models.OpUpdate:
			if e.Payload != nil {
				out[e.RecordID] = *e.Payload
			}
		case models.OpDelete:
			p, ok := out[e.RecordID]
			if !ok {
				p = models.Payload{ID: e.RecordID}
			}
			p.Status = models.StatusDeleted
			out[e.RecordID] = p
		}
	}
	return out
}

func sortBySeq(entries []models.OutboxEntry) {
	slices.SortFunc(entries, func(a, b models.OutboxEntry) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
}
