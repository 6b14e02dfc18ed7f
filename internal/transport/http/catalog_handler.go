package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"zapcatalog/internal/codec"
	apierrors "zapcatalog/internal/errors"
	"zapcatalog/internal/infrastructure"
	"zapcatalog/internal/linker"
	"zapcatalog/internal/store"
	"zapcatalog/pkg/contracts/domain"
)

// CatalogHandler serves the merchant editing surface (config and products),
// the share link endpoints and the public token decoder.
type CatalogHandler struct {
	store       *store.Store
	baseURL     string
	maxProducts int
	qrSize      int
	metrics     *infrastructure.AppMetrics
	logger      *slog.Logger
}

// NewCatalogHandler creates the catalog handler.
func NewCatalogHandler(st *store.Store, baseURL string, maxProducts, qrSize int, metrics *infrastructure.AppMetrics, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		store:       st,
		baseURL:     baseURL,
		maxProducts: maxProducts,
		qrSize:      qrSize,
		metrics:     metrics,
		logger:      logger.With(slog.String("handler", "catalog")),
	}
}

// Routes returns the chi router for the license-guarded /api/catalog surface.
// The decode endpoint is mounted separately because it is public.
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.GetConfig)
	r.Put("/config", h.PutConfig)
	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Put("/products/{id}", h.UpdateProduct)
	r.Delete("/products/{id}", h.DeleteProduct)
	r.Get("/share", h.Share)
	r.Get("/share/qr", h.ShareQR)
	return r
}

// storeConfigRequest binds the merchant config payload.
type storeConfigRequest struct {
	domain.StoreConfig
}

func (c *storeConfigRequest) Bind(r *http.Request) error {
	return c.StoreConfig.Validate()
}

// productRequest binds a product payload for create and update. The ID field
// is ignored on input: the server mints it on create and the URL names it on
// update.
type productRequest struct {
	domain.Product
}

func (p *productRequest) Bind(r *http.Request) error {
	// Validation runs after the handler fills in the authoritative ID.
	return nil
}

// shareResponse carries the composed link and the raw token. Clients embed
// the token in their own base when self-hosting the viewer.
type shareResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// GetConfig handles GET /api/catalog/config. A profile that has never saved
// a config gets the zero value back, not a 404.
func (h *CatalogHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.LoadCatalog()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load catalog failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, data.Config)
}

// PutConfig handles PUT /api/catalog/config, replacing the whole config.
func (h *CatalogHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	req := &storeConfigRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.mutateCatalog(func(data *domain.StoreData) *apierrors.APIError {
		data.Config = req.StoreConfig
		return nil
	}); err != nil {
		render.Render(w, r, err)
		return
	}

	render.JSON(w, r, req.StoreConfig)
}

// ListProducts handles GET /api/catalog/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.LoadCatalog()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load catalog failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, data.Products)
}

// CreateProduct handles POST /api/catalog/products. The server mints the ID;
// any ID in the payload is discarded.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req := &productRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	product := req.Product
	product.ID = uuid.NewString()
	if err := product.Validate(); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if apiErr := h.mutateCatalog(func(data *domain.StoreData) *apierrors.APIError {
		if h.maxProducts > 0 && len(data.Products) >= h.maxProducts {
			return apierrors.ErrValidation("products", "catalog is full")
		}
		data.Products = append(data.Products, product)
		return nil
	}); apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}

	h.logger.InfoContext(r.Context(), "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, product)
}

// UpdateProduct handles PUT /api/catalog/products/{id}. The ID in the URL is
// authoritative and never changes on update.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req := &productRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	product := req.Product
	product.ID = id
	if err := product.Validate(); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if apiErr := h.mutateCatalog(func(data *domain.StoreData) *apierrors.APIError {
		for i := range data.Products {
			if data.Products[i].ID == id {
				data.Products[i] = product
				return nil
			}
		}
		return apierrors.NotFoundError("product")
	}); apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}

	render.JSON(w, r, product)
}

// DeleteProduct handles DELETE /api/catalog/products/{id}.
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if apiErr := h.mutateCatalog(func(data *domain.StoreData) *apierrors.APIError {
		for i := range data.Products {
			if data.Products[i].ID == id {
				data.Products = append(data.Products[:i], data.Products[i+1:]...)
				return nil
			}
		}
		return apierrors.NotFoundError("product")
	}); apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

// Share handles GET /api/catalog/share: encode the current catalog and wrap
// the token in the canonical link.
func (h *CatalogHandler) Share(w http.ResponseWriter, r *http.Request) {
	resp, apiErr := h.composeShare(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}
	render.JSON(w, r, resp)
}

// ShareQR handles GET /api/catalog/share/qr, returning the share link as a
// PNG QR code.
func (h *CatalogHandler) ShareQR(w http.ResponseWriter, r *http.Request) {
	resp, apiErr := h.composeShare(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}

	png, err := linker.QR(resp.URL, h.qrSize)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "qr render failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Decode handles GET /api/catalog/decode?d=<token>, the public customer-side
// endpoint. Any malformed, truncated or tampered token comes back as one
// stable error instead of leaking codec internals.
func (h *CatalogHandler) Decode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("d")
	if token == "" {
		render.Render(w, r, apierrors.ErrValidation("d", "catalog token is required"))
		return
	}

	data, err := codec.Decode(token)
	if err != nil {
		if h.metrics != nil {
			infrastructure.RecordCounter(ctx, h.metrics.DecodeFailures)
		}
		h.logger.WarnContext(ctx, "catalog token rejected", slog.Int("token_len", len(token)))
		render.Render(w, r, apierrors.ErrCatalogCorrupted)
		return
	}

	if h.metrics != nil {
		infrastructure.RecordCounter(ctx, h.metrics.CatalogDecodes)
	}
	render.JSON(w, r, data)
}

// composeShare loads the catalog, validates it and builds the share link.
func (h *CatalogHandler) composeShare(r *http.Request) (*shareResponse, *apierrors.APIError) {
	ctx := r.Context()

	data, err := h.store.LoadCatalog()
	if err != nil {
		h.logger.ErrorContext(ctx, "load catalog failed", slog.String("error", err.Error()))
		return nil, apierrors.ErrInternalServer
	}
	if err := data.Validate(); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	if h.maxProducts > 0 && len(data.Products) > h.maxProducts {
		// Oversized catalogs still compose, but the resulting link may be too
		// long for some chat apps to keep clickable.
		h.logger.WarnContext(ctx, "catalog exceeds recommended size",
			slog.Int("products", len(data.Products)),
			slog.Int("max", h.maxProducts))
	}

	shareURL, err := linker.Compose(h.baseURL, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "compose share link failed", slog.String("error", err.Error()))
		return nil, apierrors.ErrInternalServer
	}
	token, err := linker.ExtractToken(shareURL)
	if err != nil {
		return nil, apierrors.ErrInternalServer
	}

	if h.metrics != nil {
		infrastructure.RecordCounter(ctx, h.metrics.CatalogEncodes)
	}
	return &shareResponse{URL: shareURL, Token: token}, nil
}

// mutateCatalog loads, mutates and saves the catalog in one step.
func (h *CatalogHandler) mutateCatalog(mutate func(*domain.StoreData) *apierrors.APIError) *apierrors.APIError {
	data, err := h.store.LoadCatalog()
	if err != nil {
		h.logger.Error("load catalog failed", slog.String("error", err.Error()))
		return apierrors.ErrInternalServer
	}
	if apiErr := mutate(&data); apiErr != nil {
		return apiErr
	}
	if err := h.store.SaveCatalog(data); err != nil {
		h.logger.Error("save catalog failed", slog.String("error", err.Error()))
		return apierrors.ErrInternalServer
	}
	return nil
}
