package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pricewatch/price-scraper/internal/database"
	"github.com/pricewatch/price-scraper/internal/models"
)

const defaultLimit = 50

// ProductStore is the slice of the store the API reads from.
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (*database.ProductRow, error)
	ListProducts(ctx context.Context, retailer string, limit int) ([]*database.ProductRow, error)
	PriceHistory(ctx context.Context, productRef int64, limit int) ([]*models.PriceRecord, error)
	ReviewHistory(ctx context.Context, productRef int64, limit int) ([]*models.ReviewRecord, error)
}

type Handlers struct {
	store  ProductStore
	logger *slog.Logger
}

func NewHandlers(store ProductStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

// Router wires the read API.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productRef}", h.GetProduct)
		r.Get("/products/{productRef}/prices", h.PriceHistory)
		r.Get("/products/{productRef}/reviews", h.ReviewHistory)
	})

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	retailer := r.URL.Query().Get("retailer")
	limit := queryLimit(r)

	products, err := h.store.ListProducts(r.Context(), retailer, limit)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	if products == nil {
		products = []*database.ProductRow{}
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.productRef(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(r.Context(), ref)
	if err != nil {
		h.logger.Error("failed to get product", "product_ref", ref, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) PriceHistory(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.productRef(w, r)
	if !ok {
		return
	}

	records, err := h.store.PriceHistory(r.Context(), ref, queryLimit(r))
	if err != nil {
		h.logger.Error("failed to get price history", "product_ref", ref, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	if records == nil {
		records = []*models.PriceRecord{}
	}
	h.respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) ReviewHistory(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.productRef(w, r)
	if !ok {
		return
	}

	records, err := h.store.ReviewHistory(r.Context(), ref, queryLimit(r))
	if err != nil {
		h.logger.Error("failed to get review history", "product_ref", ref, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get review history")
		return
	}

	if records == nil {
		records = []*models.ReviewRecord{}
	}
	h.respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) productRef(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ref, err := strconv.ParseInt(chi.URLParam(r, "productRef"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return ref, true
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return defaultLimit
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
