package tenants

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

// Handler exposes tenant management over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a tenant handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers tenant routes. Creation and listing are super admin
// only; reads and updates are additionally open to the tenant's own admins,
// enforced in the service layer.
func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.With(mw.RequireSuperAdmin).Post("/", h.handleCreate)
	r.With(mw.RequireSuperAdmin).Get("/", h.handleList)
	r.With(mw.RequireAny(roles.SuperAdmin, roles.TenantAdmin)).Group(func(g chi.Router) {
		g.Get("/{tenantID}", h.handleGet)
		g.Put("/{tenantID}", h.handleUpdate)
		g.Patch("/{tenantID}/status", h.handleToggleStatus)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateTenantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	tenant, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tenant)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	tenant, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	var input UpdateTenantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	tenant, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	status, err := h.service.ToggleStatus(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	tenants, err := h.service.List(r.Context(), shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tenants)
}

func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.ValidationProblem(w, "malformed tenant id")
		return uuid.Nil, false
	}
	return id, true
}
