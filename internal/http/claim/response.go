package claim

import (
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/history"
)

type claimResponse struct {
	ID          uuid.UUID        `json:"id"`
	ClaimNumber string           `json:"claim_number"`
	Status      claim.Status     `json:"status"`
	RepairType  claim.RepairType `json:"repair_type,omitempty"`

	AssignedTechnicianID *uuid.UUID `json:"assigned_technician_id,omitempty"`
	CustomerConsent      bool       `json:"customer_consent"`
	DiagnosticSummary    string     `json:"diagnostic_summary,omitempty"`

	ApprovedByID *uuid.UUID `json:"approved_by_id,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`

	EstimatedRepairCost int64 `json:"estimated_repair_cost"`
	WarrantyCost        int64 `json:"warranty_cost"`
	CompanyPaidCost     int64 `json:"company_paid_cost"`
	TotalEstimatedCost  int64 `json:"total_estimated_cost"`

	RejectionCount     int `json:"rejection_count"`
	ResubmitCount      int `json:"resubmit_count"`
	CancelRequestCount int `json:"cancel_request_count"`

	MissingRequirements []string `json:"missing_requirements,omitempty"`

	PendingCancelReason      string     `json:"pending_cancel_reason,omitempty"`
	PendingCancelRequesterID *uuid.UUID `json:"pending_cancel_requester_id,omitempty"`

	CustomerPaymentStatus claim.PaymentStatus `json:"customer_payment_status,omitempty"`

	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toResponse(c *claim.Claim) claimResponse {
	return claimResponse{
		ID:                       c.ID,
		ClaimNumber:              c.ClaimNumber,
		Status:                   c.Status,
		RepairType:               c.RepairType,
		AssignedTechnicianID:     c.AssignedTechnicianID,
		CustomerConsent:          c.CustomerConsent,
		DiagnosticSummary:        c.DiagnosticSummary,
		ApprovedByID:             c.ApprovedByID,
		ApprovedAt:               c.ApprovedAt,
		EstimatedRepairCost:      c.EstimatedRepairCost,
		WarrantyCost:             c.WarrantyCost,
		CompanyPaidCost:          c.CompanyPaidCost,
		TotalEstimatedCost:       c.TotalEstimatedCost,
		RejectionCount:           c.RejectionCount,
		ResubmitCount:            c.ResubmitCount,
		CancelRequestCount:       c.CancelRequestCount,
		MissingRequirements:      c.MissingRequirements,
		PendingCancelReason:      c.PendingCancelReason,
		PendingCancelRequesterID: c.PendingCancelRequesterID,
		CustomerPaymentStatus:    c.CustomerPaymentStatus,
		Version:                  c.Version,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

func toResponseList(claims []*claim.Claim) []claimResponse {
	resp := make([]claimResponse, len(claims))
	for i, c := range claims {
		resp[i] = toResponse(c)
	}

	return resp
}

type historyResponse struct {
	ID          uuid.UUID `json:"id"`
	StatusCode  string    `json:"status_code"`
	Note        string    `json:"note,omitempty"`
	ChangedByID uuid.UUID `json:"changed_by_id"`
	ChangedAt   time.Time `json:"changed_at"`
}

func toHistoryList(entries []*history.Entry) []historyResponse {
	resp := make([]historyResponse, len(entries))
	for i, e := range entries {
		resp[i] = historyResponse{
			ID:          e.ID,
			StatusCode:  e.StatusCode,
			Note:        e.Note,
			ChangedByID: e.ChangedByID,
			ChangedAt:   e.ChangedAt,
		}
	}

	return resp
}

type resultResponse struct {
	Claim claimResponse    `json:"claim"`
	Entry *historyResponse `json:"entry,omitempty"`
}

func toResultResponse(r *claim.Result) resultResponse {
	resp := resultResponse{Claim: toResponse(r.Claim)}

	if r.Entry != nil {
		resp.Entry = &historyResponse{
			ID:          r.Entry.ID,
			StatusCode:  r.Entry.StatusCode,
			Note:        r.Entry.Note,
			ChangedByID: r.Entry.ChangedByID,
			ChangedAt:   r.Entry.ChangedAt,
		}
	}

	return resp
}
