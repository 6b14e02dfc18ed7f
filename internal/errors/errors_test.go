package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad payload")
	assert.Equal(t, "bad payload", err.Error())
}

func TestAPIError_Render(t *testing.T) {
	err := ErrLicenseExpired
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	require.NoError(t, err.Render(w, r))
}

func TestPredefinedErrors_DistinctCodes(t *testing.T) {
	// The four license failure kinds must remain distinguishable.
	codes := map[string]int{}
	for _, e := range []*APIError{ErrLicenseFormat, ErrWrongKey, ErrLicenseExpired, ErrCatalogCorrupted, ErrNotActivated} {
		codes[e.ErrorCode]++
	}
	for code, n := range codes {
		assert.Equal(t, 1, n, "duplicate app code %s", code)
	}
	assert.Len(t, codes, 5)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("email", "must be a valid email")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	detail, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "email", detail.Field)
}
