package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/workorder"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectWorkOrderColumns = `
	id, claim_id, type, status, technician_id, labor_hours, start_time, end_time, created_at
`

func scanWorkOrder(s scanner) (*workorder.WorkOrder, error) {
	var wo workorder.WorkOrder

	var typeStr, statusStr string

	if err := s.Scan(
		&wo.ID, &wo.ClaimID, &typeStr, &statusStr, &wo.TechnicianID,
		&wo.LaborHours, &wo.StartTime, &wo.EndTime, &wo.CreatedAt,
	); err != nil {
		return nil, err
	}

	wo.Type = workorder.Type(typeStr)
	wo.Status = workorder.Status(statusStr)

	return &wo, nil
}

func (s *Store) GetWorkOrder(ctx context.Context, id uuid.UUID) (*workorder.WorkOrder, error) {
	query := `SELECT ` + selectWorkOrderColumns + ` FROM work_orders WHERE id = $1`

	wo, err := scanWorkOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, workorder.ErrNotFound
		}

		return nil, fmt.Errorf("getting work order: %w", err)
	}

	return wo, nil
}

func (s *Store) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*workorder.WorkOrder, error) {
	query := `SELECT ` + selectWorkOrderColumns + ` FROM work_orders WHERE claim_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("listing work orders: %w", err)
	}
	defer rows.Close()

	var orders []*workorder.WorkOrder

	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work order: %w", err)
		}

		orders = append(orders, wo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work order rows: %w", err)
	}

	return orders, nil
}

func (s *Store) HasOpen(ctx context.Context, claimID uuid.UUID, t workorder.Type) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM work_orders
			WHERE claim_id = $1 AND type = $2 AND status = $3
		)
	`

	var open bool
	if err := s.db.QueryRowContext(ctx, query, claimID, t, workorder.StatusOpen).Scan(&open); err != nil {
		return false, fmt.Errorf("checking open work order: %w", err)
	}

	return open, nil
}

func (s *Store) CloseWorkOrder(ctx context.Context, id uuid.UUID, status workorder.Status, endTime time.Time) error {
	query := `
		UPDATE work_orders
		SET status = $1, end_time = $2
		WHERE id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, status, endTime, id, workorder.StatusOpen)
	if err != nil {
		return fmt.Errorf("closing work order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing work order: %w", err)
	}

	if n == 0 {
		return workorder.ErrAlreadyClosed
	}

	return nil
}
