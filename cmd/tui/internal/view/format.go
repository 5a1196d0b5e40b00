package view

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
)

const dbTimeout = 5 * time.Second

// OpsActor is the identity used for commands issued from the terminal.
// Admin passes every role gate.
var OpsActor = claim.Actor{ID: uuid.Nil, Role: claim.RoleAdmin}

// FormatCents formats an amount stored as cents into a human-readable string.
func FormatCents(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100.0)
}

// FormatTime formats a time.Time into YYYY-MM-DD HH:MM.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
