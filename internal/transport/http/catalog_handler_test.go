package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapcatalog/internal/codec"
	"zapcatalog/internal/store"
	"zapcatalog/pkg/contracts/domain"
)

func newTestCatalogHandler(t *testing.T) (*CatalogHandler, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	h := NewCatalogHandler(st, "https://zapcatalog.app", 60, 256, nil, nil)
	return h, st
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func testConfig() domain.StoreConfig {
	return domain.StoreConfig{
		StoreName:  "Pizzaria do João",
		Phone:      "5511999999999",
		Currency:   "BRL",
		ThemeColor: "#e63946",
		OpenTime:   "18:00",
		CloseTime:  "23:30",
	}
}

func TestCatalogConfig(t *testing.T) {
	h, _ := newTestCatalogHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	t.Run("fresh profile returns zero config", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodGet, "/config", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var cfg domain.StoreConfig
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
		assert.Empty(t, cfg.StoreName)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPut, "/config", testConfig())
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, srv, http.MethodGet, "/config", nil)
		defer resp.Body.Close()

		var cfg domain.StoreConfig
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
		assert.Equal(t, "Pizzaria do João", cfg.StoreName)
		assert.Equal(t, "5511999999999", cfg.Phone)
	})

	t.Run("invalid hours rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.OpenTime = "23:00"
		cfg.CloseTime = "08:00"
		resp := doJSON(t, srv, http.MethodPut, "/config", cfg)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-digit phone rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.Phone = "+55 (11) 99999-9999"
		resp := doJSON(t, srv, http.MethodPut, "/config", cfg)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCatalogProducts(t *testing.T) {
	h, _ := newTestCatalogHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	create := func(t *testing.T, name string, price float64) domain.Product {
		t.Helper()
		resp := doJSON(t, srv, http.MethodPost, "/products", domain.Product{
			Name:      name,
			Price:     price,
			Available: true,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var p domain.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
		return p
	}

	t.Run("create mints server-side id", func(t *testing.T) {
		p := create(t, "Pizza Margherita", 29.9)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Pizza Margherita", p.Name)
	})

	t.Run("update keeps the id", func(t *testing.T) {
		p := create(t, "Pizza Calabresa", 32.0)

		p.Price = 34.5
		resp := doJSON(t, srv, http.MethodPut, "/products/"+p.ID, p)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated domain.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Equal(t, p.ID, updated.ID)
		assert.Equal(t, 34.5, updated.Price)
	})

	t.Run("update unknown id is 404", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPut, "/products/missing", domain.Product{
			Name:  "Ghost",
			Price: 1,
		})
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete removes the product", func(t *testing.T) {
		p := create(t, "Refrigerante", 6.0)

		resp := doJSON(t, srv, http.MethodDelete, "/products/"+p.ID, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, srv, http.MethodGet, "/products", nil)
		defer resp.Body.Close()
		var products []domain.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		for _, got := range products {
			assert.NotEqual(t, p.ID, got.ID)
		}
	})

	t.Run("negative price rejected", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/products", domain.Product{
			Name:  "Broken",
			Price: -1,
		})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCatalogProducts_FullCatalog(t *testing.T) {
	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	h := NewCatalogHandler(st, "https://zapcatalog.app", 2, 256, nil, nil)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp := doJSON(t, srv, http.MethodPost, "/products", domain.Product{Name: "Item", Price: 1})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, srv, http.MethodPost, "/products", domain.Product{Name: "One too many", Price: 1})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogShare(t *testing.T) {
	h, st := newTestCatalogHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	require.NoError(t, st.SaveCatalog(domain.StoreData{
		Config: testConfig(),
		Products: []domain.Product{
			{ID: "p1", Name: "Pizza Margherita", Price: 29.9, Available: true},
		},
	}))

	resp := doJSON(t, srv, http.MethodGet, "/share", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var share shareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&share))

	assert.True(t, strings.HasPrefix(share.URL, "https://zapcatalog.app/#/c?d="), share.URL)
	assert.NotEmpty(t, share.Token)

	// The embedded token decodes back to the exact catalog.
	data, err := codec.Decode(share.Token)
	require.NoError(t, err)
	assert.Equal(t, "Pizzaria do João", data.Config.StoreName)
	require.Len(t, data.Products, 1)
	assert.Equal(t, "Pizza Margherita", data.Products[0].Name)
}

func TestCatalogShareQR(t *testing.T) {
	h, st := newTestCatalogHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	require.NoError(t, st.SaveCatalog(domain.StoreData{Config: testConfig()}))

	resp := doJSON(t, srv, http.MethodGet, "/share/qr", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	buf := make([]byte, 8)
	_, err := io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, buf)
}

func TestCatalogDecode(t *testing.T) {
	h, _ := newTestCatalogHandler(t)

	decode := func(t *testing.T, token string) *httptest.ResponseRecorder {
		t.Helper()
		target := "/api/catalog/decode"
		if token != "" {
			target += "?d=" + url.QueryEscape(token)
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.Decode(rec, req)
		return rec
	}

	t.Run("valid token decodes", func(t *testing.T) {
		token, err := codec.Encode(domain.StoreData{
			Config:   testConfig(),
			Products: []domain.Product{{ID: "p1", Name: "Pizza", Price: 29.9}},
		})
		require.NoError(t, err)

		rec := decode(t, token)
		require.Equal(t, http.StatusOK, rec.Code)

		var data domain.StoreData
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&data))
		assert.Equal(t, "Pizzaria do João", data.Config.StoreName)
	})

	t.Run("garbage token maps to the corrupted error", func(t *testing.T) {
		rec := decode(t, "not-a-real-token")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "CATALOG_CORRUPTED", resp["error_code"])
	})

	t.Run("missing token is a validation error", func(t *testing.T) {
		rec := decode(t, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
