package importcsv

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/http/auth"
	"github.com/carvex/warranty/internal/importer"
)

type Handler struct {
	importSvc *importer.Service
	claimSvc  *claim.Service
}

func NewHandler(importSvc *importer.Service, claimSvc *claim.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		claimSvc:  claimSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importedClaim struct {
	ID          uuid.UUID        `json:"id"`
	ClaimNumber string           `json:"claim_number"`
	Status      claim.Status     `json:"status"`
	RepairType  claim.RepairType `json:"repair_type,omitempty"`
}

type importResponse struct {
	Imported int             `json:"imported"`
	Skipped  []skippedClaim  `json:"skipped,omitempty"`
	Claims   []importedClaim `json:"claims"`
}

type skippedClaim struct {
	ClaimNumber string `json:"claim_number"`
	Reason      string `json:"reason"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		http.Error(w, "no actor", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	source := importer.Source(r.FormValue("source"))
	if source == "" {
		http.Error(w, "source field is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(source, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := importResponse{Claims: make([]importedClaim, 0, len(params))}

	// Rows are independent; a duplicate claim number should not sink the
	// rest of the file.
	for _, p := range params {
		c, err := h.claimSvc.Create(r.Context(), actor, p)
		if err != nil {
			resp.Skipped = append(resp.Skipped, skippedClaim{
				ClaimNumber: p.ClaimNumber,
				Reason:      err.Error(),
			})

			continue
		}

		resp.Claims = append(resp.Claims, importedClaim{
			ID:          c.ID,
			ClaimNumber: c.ClaimNumber,
			Status:      c.Status,
			RepairType:  c.RepairType,
		})
	}

	resp.Imported = len(resp.Claims)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
