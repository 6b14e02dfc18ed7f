package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apierrors "zapcatalog/internal/errors"
	"zapcatalog/internal/infrastructure"
	"zapcatalog/internal/license"
	"zapcatalog/pkg/contracts/domain"
)

// validate checks request payload tags for every handler in the package.
var validate = validator.New()

// LicenseHandler serves activation, status and logout for the merchant
// session.
type LicenseHandler struct {
	sessions *license.SessionManager
	metrics  *infrastructure.AppMetrics
	logger   *slog.Logger
}

// NewLicenseHandler creates the license handler.
func NewLicenseHandler(sessions *license.SessionManager, metrics *infrastructure.AppMetrics, logger *slog.Logger) *LicenseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseHandler{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the chi router for /api/license.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/activate", h.Activate)
	r.Get("/status", h.Status)
	r.Post("/logout", h.Logout)
	return r
}

// activationRequest binds the activation payload.
type activationRequest struct {
	domain.LicenseActivationRequest
}

func (a *activationRequest) Bind(r *http.Request) error {
	return validate.Struct(&a.LicenseActivationRequest)
}

// licenseStatusResponse is the status payload shared by Activate and Status.
type licenseStatusResponse struct {
	LicenseStatus domain.LicenseStatus `json:"license_status"`
	Email         string               `json:"email,omitempty"`
	ActivatedAt   *time.Time           `json:"activated_at,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &activationRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.sessions.Activate(req.Email, req.LicenseKey)
	if err != nil {
		h.logger.ErrorContext(ctx, "activation persistence failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	outcome := "valid"
	switch {
	case result.Valid:
	case result.Expired:
		outcome = "expired"
	default:
		outcome = "invalid"
	}
	if h.metrics != nil {
		h.metrics.ActivationAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	if !result.Valid {
		h.logger.WarnContext(ctx, "activation rejected",
			slog.String("email", req.Email),
			slog.String("reason", result.Reason))
		render.Render(w, r, verifyResultError(result))
		return
	}

	h.logger.InfoContext(ctx, "license activated", slog.String("email", req.Email))
	h.renderStatus(w, r)
}

// Status handles GET /api/license/status. It re-verifies on every call:
// validity is never cached across requests because the same key can expire
// between two calls.
func (h *LicenseHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r)
}

// Logout handles POST /api/license/logout, the explicit session teardown.
func (h *LicenseHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		if errors.Is(err, license.ErrNotActivated) {
			render.Render(w, r, apierrors.ErrNotActivated)
			return
		}
		h.logger.ErrorContext(r.Context(), "logout failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (h *LicenseHandler) renderStatus(w http.ResponseWriter, r *http.Request) {
	status, result := h.sessions.Status()

	resp := licenseStatusResponse{
		LicenseStatus: status,
		Reason:        result.Reason,
		Timestamp:     time.Now().UTC(),
	}
	if session, ok := h.sessions.Current(); ok {
		resp.Email = session.Email
		activatedAt := session.ActivatedAt
		resp.ActivatedAt = &activatedAt
		if expiry, err := license.TokenExpiry(session.Token); err == nil {
			resp.ExpiresAt = &expiry
		}
	}

	render.JSON(w, r, resp)
}

// verifyResultError maps a failed verification onto the error taxonomy.
func verifyResultError(result license.VerifyResult) *apierrors.APIError {
	switch result.Reason {
	case license.ReasonExpired:
		return apierrors.ErrLicenseExpired
	case license.ReasonBadFormat:
		return apierrors.ErrLicenseFormat
	case license.ReasonWrongKey:
		return apierrors.ErrWrongKey
	default:
		return apierrors.ErrLicenseFormat
	}
}
