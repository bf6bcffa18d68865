package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gostore-shop/apiserver/internal/services"
	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/gostore-shop/apiserver/types"
)

// CategoryHandler provides HTTP handlers for categories.
type CategoryHandler struct {
	categoryService *services.CategoryService
}

// NewCategoryHandler constructs a handler with the provided service.
func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRouter registers category routes on the given router.
// Listing is public; mutations require the category-management
// capability (admin).
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCategoryHandler(categoryService)
	manage := RequireCapability(types.ActionManageCategories)

	r.Get("/", handler.ListCategories)
	r.With(authMiddleware, manage).Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.With(authMiddleware, manage).Put("/", handler.UpdateCategory)
		r.With(authMiddleware, manage).Delete("/", handler.DeleteCategory)
	})
}

// CategoryUpsertRequest is the create/update payload.
type CategoryUpsertRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	ParentID *int   `json:"parent_id" validate:"omitempty,min=1"`
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCategoryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.categoryService.Create(r.Context(), types.Category{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCategory) {
			writeError(w, http.StatusBadRequest, "parent category missing or inactive")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := decodeCategoryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.categoryService.Update(r.Context(), types.Category{
		ID:       id,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "category not found")
		case errors.Is(err, services.ErrInvalidCategory):
			writeError(w, http.StatusBadRequest, "parent category missing or inactive")
		case errors.Is(err, services.ErrCategoryCycle):
			writeError(w, http.StatusBadRequest, "category cannot be its own ancestor")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update category")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

func decodeCategoryRequest(r *http.Request) (CategoryUpsertRequest, error) {
	var req CategoryUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return CategoryUpsertRequest{}, errors.New("invalid request")
	}
	if err := validate.Struct(req); err != nil {
		return CategoryUpsertRequest{}, errors.New("invalid category payload")
	}
	return req, nil
}
