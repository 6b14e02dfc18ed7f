package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapcatalog/internal/codec"
	"zapcatalog/internal/config"
	"zapcatalog/internal/middleware"
	"zapcatalog/pkg/contracts/domain"
)

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
		},
		Security: config.SecurityConfig{
			SecretSalt:      "app-test-secret",
			MasterPassword:  "master-secret",
			StorePassphrase: "app-test-passphrase",
			RateLimit:       config.RateLimitConfig{Enabled: false},
		},
		Logging: config.LoggingConfig{Level: "error", Output: "stdout"},
		Paths:   config.PathsConfig{DataDir: dir + "/data", ExportDir: dir + "/exports"},
		Catalog: config.CatalogConfig{
			BaseURL:     "https://zapcatalog.app",
			MaxProducts: 60,
			QRSize:      256,
		},
	}
}

func TestApplicationRouter(t *testing.T) {
	application, err := NewWithConfig(testAppConfig(t))
	require.NoError(t, err)

	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	get := func(t *testing.T, path string, headers map[string]string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("health is public", func(t *testing.T) {
		resp := get(t, "/api/health", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("metrics endpoint is mounted", func(t *testing.T) {
		resp := get(t, "/metrics", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("catalog editing requires activation", func(t *testing.T) {
		resp := get(t, "/api/catalog/products", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "NOT_ACTIVATED", body["error_code"])
	})

	t.Run("decode is public", func(t *testing.T) {
		token, err := codec.Encode(domain.StoreData{
			Config: domain.StoreConfig{StoreName: "Loja", Currency: "BRL", ThemeColor: "#000"},
		})
		require.NoError(t, err)

		resp := get(t, "/api/catalog/decode?d="+token, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("admin rejects a missing master password", func(t *testing.T) {
		resp := get(t, "/api/admin/licenses", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("full activation flow through the router", func(t *testing.T) {
		// Issue through the admin surface, then activate with that key.
		issueBody, err := json.Marshal(domain.LicenseIssueRequest{
			Email:        "joao@example.com",
			ValidityDays: 30,
		})
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/licenses", bytes.NewReader(issueBody))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.MasterPasswordHeader, "master-secret")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var issued struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&issued))
		require.NotEmpty(t, issued.Token)

		activateBody, err := json.Marshal(domain.LicenseActivationRequest{
			Email:      "joao@example.com",
			LicenseKey: issued.Token,
		})
		require.NoError(t, err)
		activateResp, err := http.Post(srv.URL+"/api/license/activate", "application/json", bytes.NewReader(activateBody))
		require.NoError(t, err)
		activateResp.Body.Close()
		require.Equal(t, http.StatusOK, activateResp.StatusCode)

		// The editing surface opens up once activated.
		productsResp := get(t, "/api/catalog/products", nil)
		productsResp.Body.Close()
		assert.Equal(t, http.StatusOK, productsResp.StatusCode)
	})
}
