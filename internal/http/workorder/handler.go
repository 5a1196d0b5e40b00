package workorder

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/workorder"
)

type Handler struct {
	svc *workorder.Service
}

func NewHandler(svc *workorder.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.close)
}

type workOrderResponse struct {
	ID           uuid.UUID        `json:"id"`
	ClaimID      uuid.UUID        `json:"claim_id"`
	Type         workorder.Type   `json:"type"`
	Status       workorder.Status `json:"status"`
	TechnicianID uuid.UUID        `json:"technician_id"`
	LaborHours   float64          `json:"labor_hours"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      *time.Time       `json:"end_time,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func toResponse(wo *workorder.WorkOrder) workOrderResponse {
	return workOrderResponse{
		ID:           wo.ID,
		ClaimID:      wo.ClaimID,
		Type:         wo.Type,
		Status:       wo.Status,
		TechnicianID: wo.TechnicianID,
		LaborHours:   wo.LaborHours,
		StartTime:    wo.StartTime,
		EndTime:      wo.EndTime,
		CreatedAt:    wo.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claimID, err := uuid.Parse(r.URL.Query().Get("claim_id"))
	if err != nil {
		http.Error(w, "claim_id query parameter is required", http.StatusBadRequest)
		return
	}

	orders, err := h.svc.ListByClaim(r.Context(), claimID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]workOrderResponse, len(orders))
	for i, wo := range orders {
		resp[i] = toResponse(wo)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	wo, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, workorder.ErrNotFound) {
			http.Error(w, "work order not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wo)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type closeRequest struct {
	Status workorder.Status `json:"status"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Close(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, workorder.ErrNotFound):
			http.Error(w, "work order not found", http.StatusNotFound)
		case errors.Is(err, workorder.ErrAlreadyClosed):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
