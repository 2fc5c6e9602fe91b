package directory

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/platform/httpx"
)

// Handler exposes the tenant directory admin API.
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

// Routes mounts the directory endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/offices", func(r chi.Router) {
		r.Get("/", h.ListOffices)
		r.Post("/", h.CreateOffice)
		r.Get("/{id}", h.GetOffice)
		r.Patch("/{id}", h.UpdateOffice)
	})
	r.Route("/schools", func(r chi.Router) {
		r.Get("/", h.ListSchools)
		r.Post("/", h.CreateSchool)
		r.Get("/{id}", h.GetSchool)
		r.Patch("/{id}", h.UpdateSchool)
	})
}

type officeResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	PrincipalID    string `json:"principal_id,omitempty"`
	PlaceKey       string `json:"place_key"`
	ParentPlaceKey string `json:"parent_place_key,omitempty"`
	Active         bool   `json:"active"`
}

func toOfficeResponse(o Office) officeResponse {
	return officeResponse{
		ID:             o.ID.String(),
		Kind:           string(o.Kind),
		PrincipalID:    o.PrincipalID,
		PlaceKey:       o.PlaceKey,
		ParentPlaceKey: o.ParentPlaceKey,
		Active:         o.Active,
	}
}

type createOfficeRequest struct {
	Kind           string `json:"kind" validate:"required,oneof=MUNICIPAL PROVINCIAL"`
	PrincipalID    string `json:"principal_id"`
	PlaceKey       string `json:"place_key" validate:"required"`
	ParentPlaceKey string `json:"parent_place_key"`
	Active         bool   `json:"active"`
}

// CreateOffice registers an office node.
func (h *Handler) CreateOffice(w http.ResponseWriter, r *http.Request) {
	var req createOfficeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	office, err := h.service.CreateOffice(r.Context(), CreateOfficeInput{
		Kind:           OfficeKind(req.Kind),
		PrincipalID:    req.PrincipalID,
		PlaceKey:       req.PlaceKey,
		ParentPlaceKey: req.ParentPlaceKey,
		Active:         req.Active,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOfficeResponse(office))
}

type updateOfficeRequest struct {
	PrincipalID    *string `json:"principal_id"`
	PlaceKey       *string `json:"place_key"`
	ParentPlaceKey *string `json:"parent_place_key"`
	Active         *bool   `json:"active"`
}

// UpdateOffice mutates an office.
func (h *Handler) UpdateOffice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid office id")
		return
	}
	var req updateOfficeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	office, err := h.service.UpdateOffice(r.Context(), id, UpdateOfficeInput{
		PrincipalID:    req.PrincipalID,
		PlaceKey:       req.PlaceKey,
		ParentPlaceKey: req.ParentPlaceKey,
		Active:         req.Active,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOfficeResponse(office))
}

// GetOffice returns one office.
func (h *Handler) GetOffice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid office id")
		return
	}
	office, err := h.service.GetOffice(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOfficeResponse(office))
}

// ListOffices returns all offices.
func (h *Handler) ListOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := h.service.ListOffices(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]officeResponse, 0, len(offices))
	for _, o := range offices {
		out = append(out, toOfficeResponse(o))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type schoolResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MunicipalityKey string `json:"municipality_key"`
	ProvinceKey     string `json:"province_key"`
	Active          bool   `json:"active"`
	Blocked         bool   `json:"blocked"`
}

func toSchoolResponse(s School) schoolResponse {
	return schoolResponse{
		ID:              s.ID.String(),
		Name:            s.Name,
		MunicipalityKey: s.MunicipalityKey,
		ProvinceKey:     s.ProvinceKey,
		Active:          s.Active,
		Blocked:         s.Blocked,
	}
}

type createSchoolRequest struct {
	Name            string `json:"name" validate:"required"`
	MunicipalityKey string `json:"municipality_key" validate:"required"`
	ProvinceKey     string `json:"province_key" validate:"required"`
	Active          bool   `json:"active"`
}

// CreateSchool registers a school leaf.
func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req createSchoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	school, err := h.service.CreateSchool(r.Context(), CreateSchoolInput{
		Name:            req.Name,
		MunicipalityKey: req.MunicipalityKey,
		ProvinceKey:     req.ProvinceKey,
		Active:          req.Active,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSchoolResponse(school))
}

type updateSchoolRequest struct {
	Name            *string `json:"name"`
	MunicipalityKey *string `json:"municipality_key"`
	ProvinceKey     *string `json:"province_key"`
	Active          *bool   `json:"active"`
	Blocked         *bool   `json:"blocked"`
}

// UpdateSchool mutates a school.
func (h *Handler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid school id")
		return
	}
	var req updateSchoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	school, err := h.service.UpdateSchool(r.Context(), id, UpdateSchoolInput{
		Name:            req.Name,
		MunicipalityKey: req.MunicipalityKey,
		ProvinceKey:     req.ProvinceKey,
		Active:          req.Active,
		Blocked:         req.Blocked,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSchoolResponse(school))
}

// GetSchool returns one school.
func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid school id")
		return
	}
	school, err := h.service.GetSchool(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSchoolResponse(school))
}

// ListSchools returns all schools.
func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.service.ListSchools(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]schoolResponse, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchoolResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateActiveOffice):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidPlaceKey):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("directory handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
