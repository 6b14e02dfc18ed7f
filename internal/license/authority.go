package license

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// signaturePrefixLen is the number of hex characters of the digest kept in
// the key. Part of the wire format: changing it invalidates issued keys.
const signaturePrefixLen = 12

// LifetimeDays is the validity-day sentinel for effectively unlimited
// licenses (a century).
const LifetimeDays = 36500

// Verification failure reasons, surfaced verbatim to the UI layer.
const (
	ReasonBadFormat       = "bad format"
	ReasonWrongKey        = "wrong key or email"
	ReasonExpired         = "expired"
	ReasonValidationError = "validation error"
)

var (
	// ErrEmptyEmail is returned by Issue when no email is supplied.
	ErrEmptyEmail = errors.New("license: email is required")
	// ErrInvalidValidity is returned by Issue for non-positive day counts.
	ErrInvalidValidity = errors.New("license: validity days must be positive")
)

// VerifyResult is the structured outcome of a verification call. Exactly one
// of the three terminal states holds: valid, expired, or invalid (with the
// reason distinguishing bad format from a signature mismatch).
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Expired bool   `json:"expired"`
	Reason  string `json:"reason,omitempty"`
}

// Authority issues and verifies offline license keys. It is stateless apart
// from the shared secret; both operations are pure functions of their inputs
// and the wall clock.
type Authority struct {
	secret string
	logger *slog.Logger

	// now is swapped out by tests to cross expiration boundaries.
	now func() time.Time
}

// NewAuthority creates an authority signing with the given shared secret.
func NewAuthority(secret string, logger *slog.Logger) *Authority {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{
		secret: secret,
		logger: logger.With(slog.String("component", "license_authority")),
		now:    time.Now,
	}
}

// Issue generates a key for the given email, valid for validityDays days
// from now. Use LifetimeDays for effectively unlimited licenses.
func (a *Authority) Issue(email string, validityDays int) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", ErrEmptyEmail
	}
	if validityDays <= 0 {
		return "", ErrInvalidValidity
	}

	expiration := a.now().Add(time.Duration(validityDays) * 24 * time.Hour)
	// lowercase hex is the canonical form the signature is computed over
	expirationHex := strconv.FormatInt(expiration.UnixMilli(), 16)
	signature := a.sign(email, expirationHex)

	token := strings.ToUpper(expirationHex + "-" + signature)
	a.logger.Info("license issued",
		slog.String("email", email),
		slog.Int("validity_days", validityDays),
		slog.Time("expires_at", expiration),
	)
	return token, nil
}

// Verify checks a key against an email. It is safe on arbitrary input:
// malformed keys, wrong emails and expired licenses each map to a distinct
// VerifyResult, and nothing escapes as an error or panic.
func (a *Authority) Verify(email, token string) VerifyResult {
	parts := strings.Split(strings.TrimSpace(token), "-")
	if len(parts) != 2 {
		return VerifyResult{Reason: ReasonBadFormat}
	}

	// Signature input is case-sensitive on the hex digits, so normalize to
	// the lowercase form Issue hashed; the comparison itself is
	// case-insensitive.
	expirationHex := strings.ToLower(parts[0])
	expected := strings.ToUpper(a.sign(email, expirationHex))
	if strings.ToUpper(parts[1]) != expected {
		a.logger.Debug("license signature mismatch", slog.String("email", email))
		return VerifyResult{Reason: ReasonWrongKey}
	}

	expirationMillis, err := strconv.ParseInt(expirationHex, 16, 64)
	if err != nil {
		// Unreachable for keys whose signature matched an Issue-produced
		// input, but hostile input must degrade, never raise.
		return VerifyResult{Reason: ReasonValidationError}
	}
	if a.now().After(time.UnixMilli(expirationMillis)) {
		return VerifyResult{Expired: true, Reason: ReasonExpired}
	}
	return VerifyResult{Valid: true}
}

// TokenExpiry extracts the expiration instant embedded in a key without
// verifying its signature. Used by reporting surfaces only.
func TokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(token), "-")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("license: malformed key")
	}
	millis, err := strconv.ParseInt(strings.ToLower(parts[0]), 16, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("license: malformed expiration: %w", err)
	}
	return time.UnixMilli(millis), nil
}

// sign computes the truncated hex digest over (email, expirationHex, secret).
// The concatenation shape is the compatibility surface with already-issued
// keys and must not change.
func (a *Authority) sign(email, expirationHex string) string {
	payload := strings.ToLower(strings.TrimSpace(email)) + "|" + expirationHex + "|" + a.secret
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:signaturePrefixLen]
}
