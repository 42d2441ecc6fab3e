package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	catalog *services.CatalogService
	log     *zap.Logger
}

func NewCategoryHandler(catalog *services.CatalogService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{catalog: catalog, log: log}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (b categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{Name: b.Name, Description: b.Description}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", cats)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if !decode(w, r, &body) {
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Category created", c)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Category")
	if !ok {
		return
	}
	var body categoryRequest
	if !decode(w, r, &body) {
		return
	}
	c, err := h.catalog.UpdateCategory(r.Context(), id, body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Category updated", c)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Category")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Category deleted", nil)
}
