package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/history"
	"github.com/carvex/warranty/internal/workorder"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectClaimColumns = `
	c.id, c.claim_number, c.status, c.repair_type,
	c.assigned_technician_id, c.customer_consent, c.diagnostic_summary,
	c.approved_by_id, c.approved_at,
	c.estimated_repair_cost, c.warranty_cost, c.company_paid_cost, c.total_estimated_cost,
	c.rejection_count, c.resubmit_count, c.cancel_request_count,
	c.missing_requirements, c.pending_cancel_reason, c.pending_cancel_requester_id, c.customer_payment_status,
	c.version, c.created_at, c.updated_at
`

// scanClaim reads a claim row in selectClaimColumns order.
func scanClaim(s scanner) (*claim.Claim, error) {
	var c claim.Claim

	var (
		statusStr, repairTypeStr, paymentStr    string
		diagnostic, cancelReason                sql.NullString
		technicianID, approvedByID, cancelReqBy *uuid.UUID
		requirements                            []byte
	)

	if err := s.Scan(
		&c.ID, &c.ClaimNumber, &statusStr, &repairTypeStr,
		&technicianID, &c.CustomerConsent, &diagnostic,
		&approvedByID, &c.ApprovedAt,
		&c.EstimatedRepairCost, &c.WarrantyCost, &c.CompanyPaidCost, &c.TotalEstimatedCost,
		&c.RejectionCount, &c.ResubmitCount, &c.CancelRequestCount,
		&requirements, &cancelReason, &cancelReqBy, &paymentStr,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.Status = claim.Status(statusStr)
	c.RepairType = claim.RepairType(repairTypeStr)
	c.CustomerPaymentStatus = claim.PaymentStatus(paymentStr)
	c.AssignedTechnicianID = technicianID
	c.ApprovedByID = approvedByID
	c.DiagnosticSummary = diagnostic.String
	c.PendingCancelReason = cancelReason.String
	c.PendingCancelRequesterID = cancelReqBy

	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &c.MissingRequirements); err != nil {
			return nil, fmt.Errorf("decoding missing requirements: %w", err)
		}
	}

	return &c, nil
}

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim, entry *history.Entry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO claims (
			claim_number, status, repair_type, assigned_technician_id, customer_consent,
			estimated_repair_cost, missing_requirements, customer_payment_status, version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`

	requirements, err := json.Marshal(c.MissingRequirements)
	if err != nil {
		return fmt.Errorf("encoding missing requirements: %w", err)
	}

	err = dbTx.QueryRowContext(ctx, query,
		c.ClaimNumber,
		c.Status,
		c.RepairType,
		c.AssignedTechnicianID,
		c.CustomerConsent,
		c.EstimatedRepairCost,
		requirements,
		c.CustomerPaymentStatus,
		c.Version,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating claim: %w", err)
	}

	entry.ClaimID = c.ID
	entry.ChangedAt = c.CreatedAt

	if err := appendHistory(ctx, dbTx, entry); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing claim creation: %w", err)
	}

	return nil
}

func (s *Store) GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	query := `SELECT ` + selectClaimColumns + ` FROM claims c WHERE c.id = $1`

	c, err := scanClaim(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, claim.ErrNotFound
		}

		return nil, fmt.Errorf("getting claim: %w", err)
	}

	return c, nil
}

func (s *Store) ListClaims(ctx context.Context, filter claim.ListFilter) ([]*claim.Claim, error) {
	query := `SELECT ` + selectClaimColumns + ` FROM claims c WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND c.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.RepairType != nil {
		query += fmt.Sprintf(" AND c.repair_type = $%d", argIdx)

		args = append(args, *filter.RepairType)
		argIdx++
	}

	query += " ORDER BY c.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []*claim.Claim

	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}

		claims = append(claims, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating claim rows: %w", err)
	}

	return claims, nil
}

// claimLockKey hashes the claim ID into an advisory lock key so that all
// commands on one claim serialize on the same lock.
func claimLockKey(id uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(id[:])

	return int64(h.Sum64())
}

type claimTx struct {
	tx *sql.Tx
	c  *claim.Claim
}

// Begin opens a transaction, takes the per-claim advisory lock, and loads
// the claim row under it. The lock is held until commit or rollback, so
// guard evaluation and the version-checked update form one atomic step.
func (s *Store) Begin(ctx context.Context, claimID uuid.UUID) (claim.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", claimLockKey(claimID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring claim lock: %w", err)
	}

	query := `SELECT ` + selectClaimColumns + ` FROM claims c WHERE c.id = $1 FOR UPDATE OF c`

	c, err := scanClaim(dbTx.QueryRowContext(ctx, query, claimID))
	if err != nil {
		dbTx.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return nil, claim.ErrNotFound
		}

		return nil, fmt.Errorf("loading claim: %w", err)
	}

	return &claimTx{tx: dbTx, c: c}, nil
}

func (t *claimTx) Claim() *claim.Claim { return t.c }

func (t *claimTx) Commit() error   { return t.tx.Commit() }
func (t *claimTx) Rollback() error { return t.tx.Rollback() }

func (t *claimTx) HasOpenWorkOrder(ctx context.Context, typ workorder.Type) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM work_orders
			WHERE claim_id = $1 AND type = $2 AND status = $3
		)
	`

	var open bool
	if err := t.tx.QueryRowContext(ctx, query, t.c.ID, typ, workorder.StatusOpen).Scan(&open); err != nil {
		return false, fmt.Errorf("checking open work order: %w", err)
	}

	return open, nil
}

func (t *claimTx) HasUnclosedWorkOrder(ctx context.Context, typ workorder.Type) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM work_orders
			WHERE claim_id = $1 AND type = $2 AND status != $3
		)
	`

	var exists bool
	if err := t.tx.QueryRowContext(ctx, query, t.c.ID, typ, workorder.StatusClosed).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking unclosed work order: %w", err)
	}

	return exists, nil
}

func (t *claimTx) OpenWorkOrder(ctx context.Context, typ workorder.Type) (*workorder.WorkOrder, error) {
	query := `
		SELECT id, claim_id, type, status, technician_id, labor_hours, start_time, end_time, created_at
		FROM work_orders
		WHERE claim_id = $1 AND type = $2 AND status = $3
	`

	var (
		wo                 workorder.WorkOrder
		typeStr, statusStr string
	)

	err := t.tx.QueryRowContext(ctx, query, t.c.ID, typ, workorder.StatusOpen).Scan(
		&wo.ID, &wo.ClaimID, &typeStr, &statusStr, &wo.TechnicianID,
		&wo.LaborHours, &wo.StartTime, &wo.EndTime, &wo.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, workorder.ErrNotFound
		}

		return nil, fmt.Errorf("loading open work order: %w", err)
	}

	wo.Type = workorder.Type(typeStr)
	wo.Status = workorder.Status(statusStr)

	return &wo, nil
}

func (t *claimTx) CreateWorkOrder(ctx context.Context, wo *workorder.WorkOrder) error {
	query := `
		INSERT INTO work_orders (claim_id, type, status, technician_id, labor_hours, start_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := t.tx.QueryRowContext(ctx, query,
		wo.ClaimID, wo.Type, wo.Status, wo.TechnicianID, wo.LaborHours, wo.StartTime,
	).Scan(&wo.ID, &wo.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating work order: %w", err)
	}

	return nil
}

func (t *claimTx) CloseWorkOrder(ctx context.Context, id uuid.UUID, status workorder.Status, endTime time.Time, laborHours float64) error {
	query := `
		UPDATE work_orders
		SET status = $1, end_time = $2, labor_hours = $3
		WHERE id = $4 AND status = $5
	`

	res, err := t.tx.ExecContext(ctx, query, status, endTime, laborHours, id, workorder.StatusOpen)
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

// UpdateClaim writes the mutated claim guarded by the previous version.
// Zero rows affected means a concurrent commit won the race.
func (t *claimTx) UpdateClaim(ctx context.Context, c *claim.Claim) error {
	query := `
		UPDATE claims
		SET status = $1, repair_type = $2, assigned_technician_id = $3, customer_consent = $4,
			diagnostic_summary = $5, approved_by_id = $6, approved_at = $7,
			estimated_repair_cost = $8, warranty_cost = $9, company_paid_cost = $10, total_estimated_cost = $11,
			rejection_count = $12, resubmit_count = $13, cancel_request_count = $14,
			missing_requirements = $15, pending_cancel_reason = $16, pending_cancel_requester_id = $17,
			customer_payment_status = $18, version = $19, updated_at = NOW()
		WHERE id = $20 AND version = $21
	`

	requirements, err := json.Marshal(c.MissingRequirements)
	if err != nil {
		return fmt.Errorf("encoding missing requirements: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, query,
		c.Status, c.RepairType, c.AssignedTechnicianID, c.CustomerConsent,
		c.DiagnosticSummary, c.ApprovedByID, c.ApprovedAt,
		c.EstimatedRepairCost, c.WarrantyCost, c.CompanyPaidCost, c.TotalEstimatedCost,
		c.RejectionCount, c.ResubmitCount, c.CancelRequestCount,
		requirements, c.PendingCancelReason, c.PendingCancelRequesterID, c.CustomerPaymentStatus,
		c.Version, c.ID, c.Version-1,
	)
	if err != nil {
		return fmt.Errorf("updating claim: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating claim: %w", err)
	}

	if n == 0 {
		return claim.ErrStaleState
	}

	return nil
}

func (t *claimTx) AppendHistory(ctx context.Context, e *history.Entry) error {
	return appendHistory(ctx, t.tx, e)
}

func appendHistory(ctx context.Context, tx *sql.Tx, e *history.Entry) error {
	query := `
		INSERT INTO status_history (claim_id, status_code, note, changed_by_id, changed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := tx.QueryRowContext(ctx, query, e.ClaimID, e.StatusCode, e.Note, e.ChangedByID, e.ChangedAt).Scan(&e.ID); err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}

	return nil
}
