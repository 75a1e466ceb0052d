package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/storefront-go/internal/auth"
	"github.com/andreasstove999/storefront-go/internal/cache"
	"github.com/andreasstove999/storefront-go/internal/product"
)

type ProductHandler struct {
	products product.Repository
	catalog  *cache.Catalog
}

func NewProductHandler(products product.Repository, catalog *cache.Catalog) *ProductHandler {
	return &ProductHandler{products: products, catalog: catalog}
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageRef    string  `json:"imageRef"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f := product.ListFilter{
		SellerID: r.URL.Query().Get("sellerId"),
		Page:     queryInt(r, "page", 1),
		PerPage:  queryInt(r, "perPage", 20),
	}

	if cached, ok := h.catalog.GetListing(ctx, f); ok {
		writeJSON(w, http.StatusOK, map[string]any{"products": cached})
		return
	}

	products, err := h.products.List(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	h.catalog.SetListing(ctx, f, products)
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "productId")
	if cached, ok := h.catalog.GetProduct(ctx, id); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	p, err := h.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	h.catalog.SetProduct(ctx, p)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "name is required; price and stock must not be negative")
		return
	}

	p := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		SellerID:    id.UserID,
		ImageRef:    req.ImageRef,
	}
	if err := h.products.Create(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	_ = h.catalog.InvalidateListings(ctx)
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "name is required; price and stock must not be negative")
		return
	}

	p := &product.Product{
		ID:          chi.URLParam(r, "productId"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		SellerID:    id.UserID,
		ImageRef:    req.ImageRef,
	}
	if err := h.products.Update(ctx, id.UserID, p); err != nil {
		writeProductError(w, err, "failed to update product")
		return
	}

	h.invalidate(ctx, p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, _ := auth.From(ctx)
	productID := chi.URLParam(r, "productId")

	if err := h.products.Delete(ctx, id.UserID, productID); err != nil {
		writeProductError(w, err, "failed to delete product")
		return
	}

	h.invalidate(ctx, productID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ProductHandler) invalidate(ctx context.Context, productID string) {
	_ = h.catalog.InvalidateProduct(ctx, productID)
	_ = h.catalog.InvalidateListings(ctx)
}

func writeProductError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, product.ErrNotOwner):
		writeError(w, http.StatusForbidden, "product owned by another seller")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
