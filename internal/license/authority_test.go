package license

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ZAP_CATALOG_2024_MASTER_KEY_#9921"

func newTestAuthority(t *testing.T, now time.Time) *Authority {
	t.Helper()
	a := NewAuthority(testSecret, nil)
	a.now = func() time.Time { return now }
	return a
}

func TestIssue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		email        string
		validityDays int
		wantErr      error
	}{
		{name: "valid issuance", email: "joao@example.com", validityDays: 30},
		{name: "lifetime sentinel", email: "joao@example.com", validityDays: LifetimeDays},
		{name: "empty email", email: "", validityDays: 30, wantErr: ErrEmptyEmail},
		{name: "whitespace email", email: "   ", validityDays: 30, wantErr: ErrEmptyEmail},
		{name: "zero days", email: "joao@example.com", validityDays: 0, wantErr: ErrInvalidValidity},
		{name: "negative days", email: "joao@example.com", validityDays: -5, wantErr: ErrInvalidValidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuthority(t, now)
			token, err := a.Issue(tt.email, tt.validityDays)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToUpper(token), token, "key must be uppercase at rest")
			parts := strings.Split(token, "-")
			require.Len(t, parts, 2)
			assert.Len(t, parts[1], signaturePrefixLen)

			expiry, err := TokenExpiry(token)
			require.NoError(t, err)
			assert.Equal(t, now.Add(time.Duration(tt.validityDays)*24*time.Hour).UnixMilli(), expiry.UnixMilli())
		})
	}
}

func TestVerify_IssuedKeyAgreement(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, now)

	token, err := a.Issue("joao@example.com", 30)
	require.NoError(t, err)

	result := a.Verify("joao@example.com", token)
	assert.True(t, result.Valid)
	assert.False(t, result.Expired)
	assert.Empty(t, result.Reason)
}

func TestVerify_EmailBinding(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, now)

	token, err := a.Issue("alice@example.com", 30)
	require.NoError(t, err)

	t.Run("different email rejected", func(t *testing.T) {
		result := a.Verify("bob@example.com", token)
		assert.False(t, result.Valid)
		assert.False(t, result.Expired)
		assert.Equal(t, ReasonWrongKey, result.Reason)
	})

	t.Run("email compare is case-insensitive", func(t *testing.T) {
		result := a.Verify("ALICE@EXAMPLE.COM", token)
		assert.True(t, result.Valid)
	})

	t.Run("email compare trims whitespace", func(t *testing.T) {
		result := a.Verify("  alice@example.com  ", token)
		assert.True(t, result.Valid)
	})
}

func TestVerify_ExpirationBoundary(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, issuedAt)

	token, err := a.Issue("joao@example.com", 30)
	require.NoError(t, err)

	tests := []struct {
		name        string
		clock       time.Time
		wantValid   bool
		wantExpired bool
	}{
		{name: "immediately after issuance", clock: issuedAt, wantValid: true},
		{name: "one day before expiry", clock: issuedAt.Add(29 * 24 * time.Hour), wantValid: true},
		{name: "one day past expiry", clock: issuedAt.Add(31 * 24 * time.Hour), wantExpired: true},
		{name: "far past expiry", clock: issuedAt.Add(365 * 24 * time.Hour), wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.now = func() time.Time { return tt.clock }
			result := a.Verify("joao@example.com", token)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantExpired, result.Expired)
			if tt.wantExpired {
				assert.Equal(t, ReasonExpired, result.Reason)
			}
		})
	}
}

func TestVerify_MalformedKeys(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, now)

	tests := []struct {
		name       string
		token      string
		wantReason string
	}{
		{name: "empty", token: "", wantReason: ReasonBadFormat},
		{name: "no delimiter", token: "ABCDEF123456", wantReason: ReasonBadFormat},
		{name: "three segments", token: "no-dash-here", wantReason: ReasonBadFormat},
		{name: "short three segments", token: "a-b-c", wantReason: ReasonBadFormat},
		{name: "garbage two segments", token: "zzzz-yyyy", wantReason: ReasonWrongKey},
		{name: "tampered signature", token: tamper(mustIssue(t, a, "joao@example.com", 30)), wantReason: ReasonWrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Verify("joao@example.com", tt.token)
			assert.False(t, result.Valid)
			assert.False(t, result.Expired)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}

func TestVerify_IsIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, now)

	token, err := a.Issue("joao@example.com", 7)
	require.NoError(t, err)

	first := a.Verify("joao@example.com", token)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.Verify("joao@example.com", token))
	}
}

// TestVerify_FullScenario walks the concrete lifecycle: issue for 30 days,
// verify with both email casings, then advance the clock 31 days.
func TestVerify_FullScenario(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthority(t, issuedAt)

	token, err := a.Issue("joao@example.com", 30)
	require.NoError(t, err)

	result := a.Verify("joao@example.com", token)
	require.True(t, result.Valid)
	require.False(t, result.Expired)

	result = a.Verify("JOAO@EXAMPLE.COM", token)
	require.True(t, result.Valid)

	a.now = func() time.Time { return issuedAt.Add(31 * 24 * time.Hour) }
	result = a.Verify("joao@example.com", token)
	assert.False(t, result.Valid)
	assert.True(t, result.Expired)
}

func TestTokenExpiry(t *testing.T) {
	t.Run("malformed key", func(t *testing.T) {
		_, err := TokenExpiry("garbage")
		assert.Error(t, err)
	})

	t.Run("non-hex expiration", func(t *testing.T) {
		_, err := TokenExpiry("ZZZZ-ABCDEF123456")
		assert.Error(t, err)
	})

	t.Run("round-trips issuance expiry", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		a := newTestAuthority(t, now)
		token, err := a.Issue("joao@example.com", 30)
		require.NoError(t, err)

		expiry, err := TokenExpiry(token)
		require.NoError(t, err)
		assert.Equal(t, now.Add(30*24*time.Hour).UnixMilli(), expiry.UnixMilli())
	})
}

func mustIssue(t *testing.T, a *Authority, email string, days int) string {
	t.Helper()
	token, err := a.Issue(email, days)
	require.NoError(t, err)
	return token
}

// tamper flips the last signature character so the key no longer matches.
func tamper(token string) string {
	last := token[len(token)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return token[:len(token)-1] + string(replacement)
}
