package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "zapcatalog/internal/errors"
	"zapcatalog/internal/license"
	"zapcatalog/pkg/contracts/domain"
)

// SessionChecker is the slice of the session manager the guard needs.
type SessionChecker interface {
	Status() (domain.LicenseStatus, license.VerifyResult)
}

// LicenseGuard blocks merchant routes unless the activation session
// re-verifies right now. Expired and missing licenses get distinct
// responses so the UI can offer renewal versus activation.
func LicenseGuard(sessions SessionChecker, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status, result := sessions.Status()
			switch status {
			case domain.LicenseStatusActive:
				next.ServeHTTP(w, r)
			case domain.LicenseStatusExpired:
				logger.WarnContext(r.Context(), "request with expired license",
					slog.String("path", r.URL.Path))
				render.Render(w, r, apierrors.ErrLicenseExpired)
			case domain.LicenseStatusNotActivated:
				render.Render(w, r, apierrors.ErrNotActivated)
			default:
				logger.WarnContext(r.Context(), "request with invalid license",
					slog.String("path", r.URL.Path),
					slog.String("reason", result.Reason))
				render.Render(w, r, apierrors.ErrWrongKey)
			}
		})
	}
}

// MasterPasswordHeader carries the administrative credential.
const MasterPasswordHeader = "X-Master-Password"

// MasterGuard protects the administrative issuing endpoints with the
// configured master password. An empty configured password disables the
// surface entirely rather than leaving it open.
func MasterGuard(masterPassword string, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if masterPassword == "" {
				render.Render(w, r, apierrors.ErrNotFound)
				return
			}
			if r.Header.Get(MasterPasswordHeader) != masterPassword {
				logger.WarnContext(r.Context(), "admin authentication failure",
					slog.String("remote_addr", r.RemoteAddr))
				render.Render(w, r, apierrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
