package departments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/platform/httpx"
	"github.com/helios-hr/helios/internal/rbac"
	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
)

// Handler manages department endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.Get("/", h.handleList)
	r.Get("/{departmentID}", h.handleGet)
	r.With(mw.RequireAny(roles.SuperAdmin, roles.TenantAdmin, roles.HROfficer)).Group(func(g chi.Router) {
		g.Post("/", h.handleCreate)
		g.Put("/{departmentID}", h.handleUpdate)
		g.Patch("/{departmentID}/status", h.handleToggleStatus)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input DepartmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	dept, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dept)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	dept, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dept)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	var input DepartmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	dept, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dept)
}

func (h *Handler) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	active, err := h.service.ToggleStatus(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "active": active})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, err := h.service.List(r.Context(), shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) departmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "departmentID"))
	if err != nil {
		httpx.ValidationProblem(w, "malformed department id")
		return uuid.Nil, false
	}
	return id, true
}
