package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/history"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*history.Entry, error) {
	query := `
		SELECT id, claim_id, status_code, note, changed_by_id, changed_at
		FROM status_history
		WHERE claim_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []*history.Entry

	for rows.Next() {
		var e history.Entry
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.StatusCode, &e.Note, &e.ChangedByID, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}

	return entries, nil
}
