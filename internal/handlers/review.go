package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gostore-shop/apiserver/internal/services"
	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/gostore-shop/apiserver/types"
)

// ReviewHandler provides HTTP handlers for reviews.
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler constructs a handler with the provided service.
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ReviewRouter registers review routes on the given router. Listing is
// public; creation requires the buyer capability, deletion the admin
// capability.
func ReviewRouter(r chi.Router, reviewService *services.ReviewService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewReviewHandler(reviewService)

	r.Get("/", handler.ListReviews)
	r.With(authMiddleware, RequireCapability(types.ActionCreateReview)).Post("/", handler.CreateReview)
	r.With(authMiddleware, RequireCapability(types.ActionDeleteReview)).Delete("/{reviewID}", handler.DeleteReview)
}

// ReviewCreateRequest is the create payload.
type ReviewCreateRequest struct {
	ProductID int    `json:"product_id" validate:"required,min=1"`
	Grade     int    `json:"grade" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=500"`
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReviewCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		// A grade outside [1,5] is a semantic validation failure
		// rather than a malformed payload.
		if hasFieldError(err, "Grade") {
			writeError(w, http.StatusUnprocessableEntity, "grade outside the range 1-5")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid review payload")
		return
	}

	created, err := h.reviewService.Create(r.Context(), types.Review{
		ProductID: req.ProductID,
		UserID:    user.ID,
		Grade:     req.Grade,
		Comment:   req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "product not found or inactive")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "user has already reviewed this product")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create review")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "reviewID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviewService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review not found or inactive")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete review")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "review deleted"})
}

func hasFieldError(err error, field string) bool {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return false
	}
	for _, fieldErr := range validationErrs {
		if fieldErr.Field() == field {
			return true
		}
	}
	return false
}
