package domain

import "time"

// LicenseStatus describes the outcome of checking the current activation.
type LicenseStatus string

const (
	LicenseStatusActive       LicenseStatus = "active"
	LicenseStatusExpired      LicenseStatus = "expired"
	LicenseStatusInvalid      LicenseStatus = "invalid"
	LicenseStatusNotActivated LicenseStatus = "not_activated"
)

// LicenseActivationRequest is the payload a merchant submits to unlock the
// dashboard: the email the key was sold to plus the key itself.
type LicenseActivationRequest struct {
	Email      string `json:"email" validate:"required,email"`
	LicenseKey string `json:"license_key" validate:"required,min=10"`
}

// LicenseIssueRequest is the administrative payload for generating a new key.
type LicenseIssueRequest struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email" validate:"required,email"`
	ValidityDays int    `json:"validity_days" validate:"required,gt=0"`
}

// LicenseHistoryRecord is a row of the local administrative audit log. It is
// bookkeeping only: verification never consults it.
type LicenseHistoryRecord struct {
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	Token        string    `json:"token"`
	ValidityDays int       `json:"validity_days"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ActivationSession is the explicit session value the application loads once
// at startup and clears on logout. Holding the email alongside the token
// matters because tokens are email-bound and must be re-verified as a pair.
type ActivationSession struct {
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	ActivatedAt time.Time `json:"activated_at"`
}
