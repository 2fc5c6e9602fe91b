package assignment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/platform/httpx"
)

// Handler exposes the assignment admin API.
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

// Routes mounts the assignment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{principalID}", h.Get)
	r.Post("/{principalID}/approve", h.Approve)
	r.Post("/{principalID}/deactivate", h.Deactivate)
	r.Post("/{principalID}/role", h.ChangeRole)
	r.Delete("/{principalID}", h.Delete)
}

type assignmentResponse struct {
	PrincipalID   string `json:"principal_id"`
	Role          string `json:"role"`
	TenantScopeID string `json:"tenant_scope_id,omitempty"`
	Status        string `json:"status"`
	Active        bool   `json:"active"`
}

func toResponse(a Assignment) assignmentResponse {
	resp := assignmentResponse{
		PrincipalID: a.PrincipalID,
		Role:        string(a.Role),
		Status:      string(a.Status),
		Active:      a.Active,
	}
	if a.TenantScopeID.Valid {
		resp.TenantScopeID = a.TenantScopeID.UUID.String()
	}
	return resp
}

type createRequest struct {
	PrincipalID   string `json:"principal_id" validate:"required"`
	Role          string `json:"role" validate:"required"`
	TenantScopeID string `json:"tenant_scope_id" validate:"omitempty,uuid"`
	Approved      bool   `json:"approved"`
}

// Create onboards a principal.
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
	in := AssignInput{
		PrincipalID: req.PrincipalID,
		Role:        identity.Role(req.Role),
		Approved:    req.Approved,
	}
	if req.TenantScopeID != "" {
		id, err := uuid.Parse(req.TenantScopeID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tenant_scope_id")
			return
		}
		in.TenantScopeID = uuid.NullUUID{UUID: id, Valid: true}
	}
	created, err := h.service.Assign(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

// Get returns one assignment.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "principalID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

// List returns all assignments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Approve activates a pending assignment.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Approve(r.Context(), chi.URLParam(r, "principalID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

// Deactivate revokes an assignment.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "principalID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

type changeRoleRequest struct {
	Role          string `json:"role" validate:"required"`
	TenantScopeID string `json:"tenant_scope_id" validate:"omitempty,uuid"`
}

// ChangeRole supersedes the principal's role.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var scope uuid.NullUUID
	if req.TenantScopeID != "" {
		id, err := uuid.Parse(req.TenantScopeID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tenant_scope_id")
			return
		}
		scope = uuid.NullUUID{UUID: id, Valid: true}
	}
	a, err := h.service.ChangeRole(r.Context(), chi.URLParam(r, "principalID"), identity.Role(req.Role), scope)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

// Delete removes an assignment entirely.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "principalID")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateAssignment):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrScopeRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("assignment handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
