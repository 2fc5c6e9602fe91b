package records

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/guard"
	"github.com/sige-edu/sige/internal/platform/httpx"
)

// Handler exposes the record entry API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the record endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

type recordResponse struct {
	ID                 string `json:"id"`
	StudentPrincipalID string `json:"student_principal_id"`
	SchoolID           string `json:"school_id"`
	ClassID            string `json:"class_id,omitempty"`
	Kind               string `json:"kind"`
	Summary            string `json:"summary"`
}

func toResponse(rec Record) recordResponse {
	resp := recordResponse{
		ID:                 rec.ID.String(),
		StudentPrincipalID: rec.StudentPrincipalID,
		SchoolID:           rec.SchoolID.String(),
		Kind:               string(rec.Kind),
		Summary:            rec.Summary,
	}
	if rec.ClassID.Valid {
		resp.ClassID = rec.ClassID.UUID.String()
	}
	return resp
}

type createRequest struct {
	StudentPrincipalID string `json:"student_principal_id" validate:"required"`
	SchoolID           string `json:"school_id" validate:"required,uuid"`
	ClassID            string `json:"class_id" validate:"omitempty,uuid"`
	Kind               string `json:"kind" validate:"required,oneof=GRADE ENROLLMENT PAYMENT DOCUMENT_REQUEST"`
	Summary            string `json:"summary"`
}

// Create stores a record entry.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	schoolID, err := uuid.Parse(req.SchoolID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid school_id")
		return
	}
	in := CreateInput{
		StudentPrincipalID: req.StudentPrincipalID,
		SchoolID:           schoolID,
		Kind:               Kind(req.Kind),
		Summary:            req.Summary,
	}
	if req.ClassID != "" {
		classID, err := uuid.Parse(req.ClassID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid class_id")
			return
		}
		in.ClassID = uuid.NullUUID{UUID: classID, Valid: true}
	}
	rec, err := h.service.Create(r.Context(), guard.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(rec))
}

// Get returns one record if visible to the caller.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	rec, err := h.service.Get(r.Context(), guard.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(rec))
}

// List returns the records visible to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recordsList, err := h.service.List(r.Context(), guard.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]recordResponse, 0, len(recordsList))
	for _, rec := range recordsList {
		out = append(out, toResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
		return
	}
	h.logger.Error("records handler", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
