package handlers

import (
	"net/http"
	"strconv"

	"markethub_api/internal/aggregator"
	"markethub_api/internal/models"
	"markethub_api/internal/storage"
)

// CatalogHandler serves the aggregated catalog-browse surface consumed by
// the UI layer.
type CatalogHandler struct {
	coordinator *aggregator.Coordinator
	products    storage.ProductStore
}

func NewCatalogHandler(coordinator *aggregator.Coordinator, products storage.ProductStore) *CatalogHandler {
	return &CatalogHandler{coordinator: coordinator, products: products}
}

func (h *CatalogHandler) GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := aggregator.Options{
		Category:     q.Get("category"),
		Search:       q.Get("search"),
		Region:       q.Get("region"),
		PreferSource: models.Source(q.Get("prefer_source")),
		Page:         intParam(q.Get("page"), 1),
		Limit:        intParam(q.Get("limit"), 20),
	}

	products, err := h.coordinator.Fetch(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProductDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	region := r.URL.Query().Get("region")

	product, err := h.coordinator.Details(r.Context(), id, region)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) GetCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coordinator.Categories())
}

// DeleteProductHandler is the manual operator delete; sync never deletes.
func (h *CatalogHandler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.products.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
