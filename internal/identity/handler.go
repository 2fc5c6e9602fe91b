package identity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sige-edu/sige/internal/platform/httpx"
)

// ResyncEnqueuer schedules a bulk recomputation in the background worker.
type ResyncEnqueuer interface {
	EnqueueResync(ctx context.Context, principalID string) error
}

// Handler exposes cache inspection and the operator repair endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer ResyncEnqueuer
}

// NewHandler constructs a Handler. The enqueuer may be nil; bulk resync then
// runs inline.
func NewHandler(logger *slog.Logger, service *Service, enqueuer ResyncEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// Routes mounts the identity endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/principals/{principalID}", h.GetEntry)
	r.Post("/principals/{principalID}/resync", h.Resync)
	r.Post("/resync", h.ResyncAll)
}

type entryResponse struct {
	PrincipalID     string    `json:"principal_id"`
	Role            string    `json:"role"`
	Active          bool      `json:"active"`
	SchoolID        string    `json:"school_id,omitempty"`
	OfficeID        string    `json:"office_id,omitempty"`
	MunicipalityKey string    `json:"municipality_key,omitempty"`
	ProvinceKey     string    `json:"province_key,omitempty"`
	Version         int64     `json:"version"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// GetEntry returns the cached snapshot for debugging drift.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Entry(r.Context(), chi.URLParam(r, "principalID"))
	if err != nil {
		h.logger.Error("identity get entry", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if entry == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no cache entry for principal")
		return
	}
	resp := entryResponse{
		PrincipalID:     entry.PrincipalID,
		Role:            string(entry.Role),
		Active:          entry.Active,
		MunicipalityKey: entry.MunicipalityKey,
		ProvinceKey:     entry.ProvinceKey,
		Version:         entry.Version,
		UpdatedAt:       entry.UpdatedAt,
	}
	if entry.SchoolID.Valid {
		resp.SchoolID = entry.SchoolID.UUID.String()
	}
	if entry.OfficeID.Valid {
		resp.OfficeID = entry.OfficeID.UUID.String()
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Resync recomputes one principal synchronously.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	principalID := chi.URLParam(r, "principalID")
	if err := h.service.Resync(r.Context(), principalID); err != nil {
		h.logger.Error("identity resync", slog.String("principal_id", principalID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "resynced"})
}

// ResyncAll schedules (or, without a worker, runs) a bulk recomputation.
func (h *Handler) ResyncAll(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueResync(r.Context(), ""); err != nil {
			h.logger.Error("identity enqueue resync", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}
	count, err := h.service.ResyncAll(r.Context())
	if err != nil {
		h.logger.Error("identity resync all", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "resynced", "principals": count})
}
