package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "zapcatalog/internal/errors"
	"zapcatalog/internal/exporter"
	"zapcatalog/internal/infrastructure"
	"zapcatalog/internal/license"
	"zapcatalog/internal/store"
	"zapcatalog/pkg/contracts/domain"
)

// AdminHandler serves the master-guarded issuing surface: generate keys,
// list the local audit log and export it for spreadsheets.
type AdminHandler struct {
	authority *license.Authority
	store     *store.Store
	exporter  *exporter.HistoryExporter
	metrics   *infrastructure.AppMetrics
	logger    *slog.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(authority *license.Authority, st *store.Store, exp *exporter.HistoryExporter, metrics *infrastructure.AppMetrics, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		authority: authority,
		store:     st,
		exporter:  exp,
		metrics:   metrics,
		logger:    logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the chi router for /api/admin. Callers mount it behind the
// master password guard.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/licenses", h.IssueLicense)
	r.Get("/licenses", h.ListLicenses)
	r.Get("/licenses/export", h.ExportLicenses)
	return r
}

// issueRequest binds the issuing payload.
type issueRequest struct {
	domain.LicenseIssueRequest
}

func (i *issueRequest) Bind(r *http.Request) error {
	return validate.Struct(&i.LicenseIssueRequest)
}

// issueResponse is the generated key plus its bookkeeping row.
type issueResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}

// IssueLicense handles POST /api/admin/licenses: mint a key for an email and
// append it to the audit log.
func (h *AdminHandler) IssueLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &issueRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	token, err := h.authority.Issue(req.Email, req.ValidityDays)
	if err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	record := domain.LicenseHistoryRecord{
		Name:         req.Name,
		Email:        req.Email,
		Token:        token,
		ValidityDays: req.ValidityDays,
		IssuedAt:     time.Now().UTC(),
	}
	if err := h.store.AppendHistory(record); err != nil {
		h.logger.ErrorContext(ctx, "append history failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	if h.metrics != nil {
		infrastructure.RecordCounter(ctx, h.metrics.LicensesIssued)
	}
	h.logger.InfoContext(ctx, "license issued",
		slog.String("email", req.Email),
		slog.Int("validity_days", req.ValidityDays))

	resp := issueResponse{
		Token:    token,
		Email:    req.Email,
		IssuedAt: record.IssuedAt,
	}
	if expiry, err := license.TokenExpiry(token); err == nil {
		resp.ExpiresAt = expiry
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListLicenses handles GET /api/admin/licenses, returning the audit log.
func (h *AdminHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.History()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load history failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, records)
}

// ExportLicenses handles GET /api/admin/licenses/export?format=csv|xlsx.
// CSV ships with a UTF-8 BOM so spreadsheet apps pick the right encoding.
func (h *AdminHandler) ExportLicenses(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.History()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load history failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case "csv":
		data, err := h.exporter.CSV(records, true)
		if err != nil {
			render.Render(w, r, apierrors.ErrInternalServer)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="licenses_%s.csv"`, stamp))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "xlsx":
		data, err := h.exporter.XLSX(records)
		if err != nil {
			render.Render(w, r, apierrors.ErrInternalServer)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="licenses_%s.xlsx"`, stamp))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		render.Render(w, r, apierrors.ErrValidation("format", "must be csv or xlsx"))
	}
}
