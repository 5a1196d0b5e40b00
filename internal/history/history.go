// Package history holds the append-only ledger of claim status changes.
// Entries are written in the same database transaction as the status change
// they record; they are never mutated or deleted.
package history

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one accepted status change (or the claim's creation).
type Entry struct {
	ID          uuid.UUID
	ClaimID     uuid.UUID
	StatusCode  string
	Note        string
	ChangedByID uuid.UUID
	ChangedAt   time.Time
}
