package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helios-hr/helios/internal/observability"
	"github.com/helios-hr/helios/internal/platform/httpx"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	tokens    *token.Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *token.Service, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		tokens:    tokens,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes. Login takes Basic credentials and is
// public; the remaining routes operate on the authenticated principal.
func (h *Handler) MountRoutes(public, protected chi.Router) {
	public.Post("/login", h.handleLogin)
	protected.Post("/logout", h.handleLogout)
	protected.Post("/password", h.handleChangePassword)
	protected.Post("/email", h.handleChangeEmail)
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin runs after the rate-limit and tenant-resolution stages. It
// verifies Basic credentials against the tenant in scope and issues a bearer
// token bound to that tenant.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenancy.Get(ctx)
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidTenantHeader)
		return
	}

	email, password, ok := r.BasicAuth()
	if !ok || email == "" {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	principal, err := h.service.Authenticate(ctx, email, password)
	if err != nil {
		h.logger.Info("login failed", slog.String("identity", email), slog.String("tenant", tenantID.String()))
		h.metrics.ObserveLogin("failure")
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	h.metrics.ObserveLogin("success")

	signed, claims, err := h.tokens.Issue(principal, tenantID)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.RegisterSession(ctx, claims.ID, principal.UserID, claims.ExpiresAt.Time, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusCreated, loginResponse{Token: signed})
}

// handleLogout blacklists the presented token for its remaining lifetime.
// Replaying the same token afterwards fails validation, so a second logout
// call arrives unauthenticated and is rejected upstream.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := token.ClaimsFrom(ctx)
	if tenancy.PrincipalFrom(ctx) == nil || claims == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	raw := token.FromRequest(r)
	if raw == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.tokens.Invalidate(ctx, raw); err != nil {
		h.logger.Error("invalidate token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveSession(ctx, claims.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := tenancy.PrincipalFrom(ctx)
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(ctx, principal.UserID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type changeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := tenancy.PrincipalFrom(ctx)
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req changeEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ValidationProblem(w, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	if err := h.service.ChangeEmail(ctx, principal.UserID, req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
