package claim

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/cancellation"
	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/history"
	"github.com/carvex/warranty/internal/http/auth"
	"github.com/carvex/warranty/internal/workorder"
)

type Handler struct {
	svc        *claim.Service
	cancelSvc  *cancellation.Service
	historySvc *history.Service
}

func NewHandler(svc *claim.Service, cancelSvc *cancellation.Service, historySvc *history.Service) *Handler {
	return &Handler{
		svc:        svc,
		cancelSvc:  cancelSvc,
		historySvc: historySvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/history", h.getHistory)

	// One route per lifecycle command.
	r.Post("/{id}/intake", h.command(claim.CmdToIntake))
	r.Post("/{id}/diagnostic", h.command(claim.CmdSubmitDiagnostic))
	r.Post("/{id}/submit", h.command(claim.CmdSubmitToEVM))
	r.Post("/{id}/approve", h.command(claim.CmdApprove))
	r.Post("/{id}/reject", h.command(claim.CmdReject))
	r.Post("/{id}/work-orders", h.command(claim.CmdCreateWorkOrder))
	r.Post("/{id}/resubmit", h.command(claim.CmdResubmit))
	r.Post("/{id}/move-to-handover", h.command(claim.CmdMoveToHandover))
	r.Post("/{id}/problems", h.command(claim.CmdReportProblem))
	r.Post("/{id}/problems/resolve", h.command(claim.CmdResolveProblem))
	r.Post("/{id}/start-repair", h.command(claim.CmdStartRepair))
	r.Post("/{id}/await-parts", h.command(claim.CmdAwaitParts))
	r.Post("/{id}/require-payment", h.command(claim.CmdRequirePayment))
	r.Post("/{id}/confirm-payment", h.command(claim.CmdConfirmPayment))
	r.Post("/{id}/work-done", h.command(claim.CmdMarkWorkDone))
	r.Post("/{id}/prepare-handover", h.command(claim.CmdPrepareHandover))
	r.Post("/{id}/complete", h.command(claim.CmdCompleteClaim))
	r.Post("/{id}/reopen", h.command(claim.CmdReopen))

	// Cancellation sub-flow.
	r.Post("/{id}/cancel-requests", h.requestCancel)
	r.Post("/{id}/cancel-requests/resolve", h.resolveCancel)
	r.Post("/{id}/cancel", h.cancelDirect)
}

type createClaimRequest struct {
	ClaimNumber          string           `json:"claim_number"`
	RepairType           claim.RepairType `json:"repair_type"`
	AssignedTechnicianID *uuid.UUID       `json:"assigned_technician_id,omitempty"`
	CustomerConsent      bool             `json:"customer_consent"`
	MissingRequirements  []string         `json:"missing_requirements,omitempty"`
	ImmediateIntake      bool             `json:"immediate_intake"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "no actor", http.StatusUnauthorized)
		return
	}

	var req createClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Create(r.Context(), actor, claim.CreateParams{
		ClaimNumber:          req.ClaimNumber,
		RepairType:           req.RepairType,
		AssignedTechnicianID: req.AssignedTechnicianID,
		CustomerConsent:      req.CustomerConsent,
		MissingRequirements:  req.MissingRequirements,
		ImmediateIntake:      req.ImmediateIntake,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(c)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := claim.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(claim.Status(s))
	}

	if s := r.URL.Query().Get("repair_type"); s != "" {
		filter.RepairType = new(claim.RepairType(s))
	}

	claims, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(claims)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(c)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.historySvc.ListByClaim(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toHistoryList(entries)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// commandRequest is the union of all command payloads. Each route picks the
// fields its command needs.
type commandRequest struct {
	ExpectedVersion int `json:"expected_version"`

	Summary             string         `json:"summary,omitempty"`
	EstimatedRepairCost int64          `json:"estimated_repair_cost,omitempty"`
	TotalEstimatedCost  int64          `json:"total_estimated_cost,omitempty"`
	WarrantyCost        int64          `json:"warranty_cost,omitempty"`
	CompanyPaidCost     int64          `json:"company_paid_cost,omitempty"`
	Reason              string         `json:"reason,omitempty"`
	Note                string         `json:"note,omitempty"`
	Notes               string         `json:"notes,omitempty"`
	WorkOrderType       workorder.Type `json:"work_order_type,omitempty"`
	TechnicianID        uuid.UUID      `json:"technician_id,omitempty"`
	ProblemType         string         `json:"problem_type,omitempty"`
	Description         string         `json:"description,omitempty"`
	Action              string         `json:"action,omitempty"`
	Parts               string         `json:"parts,omitempty"`
	LaborHours          float64        `json:"labor_hours,omitempty"`
}

func (h *Handler) command(name claim.CommandName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFrom(r.Context())
		if !ok {
			http.Error(w, "no actor", http.StatusUnauthorized)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		cmd, err := buildCommand(name, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := h.svc.Apply(r.Context(), id, actor, req.ExpectedVersion, cmd)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(toResultResponse(result)); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func buildCommand(name claim.CommandName, req commandRequest) (claim.Command, error) {
	switch name {
	case claim.CmdToIntake:
		return claim.ToIntake{}, nil
	case claim.CmdSubmitDiagnostic:
		return claim.SubmitDiagnostic{Summary: req.Summary}, nil
	case claim.CmdSubmitToEVM:
		return claim.SubmitToEVM{
			EstimatedRepairCost: req.EstimatedRepairCost,
			TotalEstimatedCost:  req.TotalEstimatedCost,
		}, nil
	case claim.CmdApprove:
		return claim.Approve{WarrantyCost: req.WarrantyCost}, nil
	case claim.CmdReject:
		return claim.Reject{Reason: req.Reason}, nil
	case claim.CmdCreateWorkOrder:
		return claim.CreateWorkOrder{
			Type:         req.WorkOrderType,
			TechnicianID: req.TechnicianID,
		}, nil
	case claim.CmdResubmit:
		return claim.Resubmit{Note: req.Note}, nil
	case claim.CmdMoveToHandover:
		return claim.MoveToHandover{Note: req.Note}, nil
	case claim.CmdReportProblem:
		return claim.ReportProblem{
			ProblemType: req.ProblemType,
			Description: req.Description,
		}, nil
	case claim.CmdResolveProblem:
		return claim.ResolveProblem{Action: req.Action, Notes: req.Notes}, nil
	case claim.CmdStartRepair:
		return claim.StartRepair{}, nil
	case claim.CmdAwaitParts:
		return claim.AwaitParts{Parts: req.Parts}, nil
	case claim.CmdRequirePayment:
		return claim.RequirePayment{}, nil
	case claim.CmdConfirmPayment:
		return claim.ConfirmPayment{}, nil
	case claim.CmdMarkWorkDone:
		return claim.MarkWorkDone{Notes: req.Notes, LaborHours: req.LaborHours}, nil
	case claim.CmdPrepareHandover:
		return claim.PrepareHandover{Note: req.Note}, nil
	case claim.CmdCompleteClaim:
		return claim.CompleteClaim{
			Notes:           req.Notes,
			CompanyPaidCost: req.CompanyPaidCost,
		}, nil
	case claim.CmdReopen:
		return claim.Reopen{Reason: req.Reason}, nil
	}

	return nil, fmt.Errorf("unknown command: %s", name)
}

type cancelRequest struct {
	ExpectedVersion int    `json:"expected_version"`
	Reason          string `json:"reason,omitempty"`
}

func (h *Handler) requestCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "no actor", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.cancelSvc.Request(r.Context(), id, actor, req.ExpectedVersion, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(c)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type resolveCancelRequest struct {
	ExpectedVersion int                   `json:"expected_version"`
	Decision        cancellation.Decision `json:"decision"`
	Note            string                `json:"note,omitempty"`
}

func (h *Handler) resolveCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "no actor", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req resolveCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.cancelSvc.Resolve(r.Context(), id, actor, req.ExpectedVersion, req.Decision, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResultResponse(result)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) cancelDirect(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "no actor", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.cancelSvc.CancelDirect(r.Context(), id, actor, req.ExpectedVersion, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResultResponse(result)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes. Concurrency and
// ordering conflicts are 409, rule violations are 422.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, claim.ErrNotFound):
		http.Error(w, "claim not found", http.StatusNotFound)
	case errors.Is(err, claim.ErrStaleState), errors.Is(err, claim.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, claim.ErrGuardViolation),
		errors.Is(err, claim.ErrCounterExhausted),
		errors.Is(err, claim.ErrDuplicateWorkOrder):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
