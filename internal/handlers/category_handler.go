package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest represents the request payload for creating or updating a category
type CategoryRequest struct {
	Name string              `json:"name" binding:"required,max=100"`
	Type models.CategoryType `json:"type" binding:"required,category_type"`
}

// CategoryEnvelope wraps a single category.
type CategoryEnvelope struct {
	Category models.Category `json:"category"`
}

// ListCategories returns the categories visible to the caller
// @Summary     List categories
// @Description Global default categories plus the caller's own, sorted by name
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "Filter by category type (income/expense)"
// @Success     200 {object} services.CategoryList
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /api/users/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var categoryType *models.CategoryType
	if v := c.Query("type"); v != "" {
		t := models.CategoryType(v)
		if !t.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Type must be income or expense"))
			return
		}
		categoryType = &t
	}

	result, err := h.categoryService.ListCategories(c.Request.Context(), actor, categoryType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategoryRequest true "Category details"
// @Success     201 {object} CategoryEnvelope "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate"
// @Failure     403 {object} ErrorResponse "Read-only user"
// @Router      /api/users/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), actor, services.CategoryInput{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CategoryEnvelope{Category: *category})
}

// UpdateCategory renames or retypes a category
// @Summary     Update a category
// @Description Owners edit their own categories; admins may edit any, including global ones
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int             true "Category ID"
// @Param       request body CategoryRequest true "Category details"
// @Success     200 {object} CategoryEnvelope
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate"
// @Failure     403 {object} ErrorResponse "Not allowed"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/users/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), actor, categoryID, services.CategoryInput{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryEnvelope{Category: *category})
}

// DeleteCategory removes a category
// @Summary     Delete a category
// @Description Transactions in the category keep existing without a category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Not allowed"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /api/users/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), actor, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted successfully"})
}
