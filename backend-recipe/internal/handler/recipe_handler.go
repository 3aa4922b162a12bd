package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// RecipeHandler handles recipe HTTP requests
type RecipeHandler struct {
	recipeService service.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(recipeService service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService}
}

// AddBatch creates recipes
// PUT /recipes/batch
func (h *RecipeHandler) AddBatch(c *gin.Context) {
	var reqs []dto.RecipeRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Request body must be a list of recipes"))
		return
	}

	recipes, err := h.recipeService.AddBatch(c.Request.Context(), reqs)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecipe) {
			c.JSON(http.StatusBadRequest, response.ErrorWithDetails("INVALID_RECIPE", "Invalid recipe", err.Error()))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(recipes))
}

// GetBatch returns several recipes
// GET /recipes/batch?ids=1,2,3
func (h *RecipeHandler) GetBatch(c *gin.Context) {
	ids, ok := parseIDs(c.QueryArray("ids"))
	if !ok {
		c.JSON(http.StatusBadRequest, response.BadRequest("Query parameter ids must list recipe ids"))
		return
	}

	recipes, err := h.recipeService.GetBatch(c.Request.Context(), ids)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecipe) {
			c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(recipes))
}

// Search finds recipes by name, ingredient or allergen
// GET /recipes/search?q=tomato&type=ingredient
func (h *RecipeHandler) Search(c *gin.Context) {
	query, ok := c.GetQuery("q")
	if !ok {
		c.JSON(http.StatusBadRequest, response.BadRequest("Query parameter q is required"))
		return
	}

	recipes, err := h.recipeService.Search(c.Request.Context(), query, c.DefaultQuery("type", dto.SearchTypeRecipe))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(recipes))
}

// View returns one recipe
// GET /recipes/:id
func (h *RecipeHandler) View(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.View(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound(fmt.Sprintf("Recipe with id %d not found", id)))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(recipe))
}

// Delete removes a recipe. Only admins may delete.
// DELETE /recipes/:id
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	err := h.recipeService.Delete(c.Request.Context(), c.GetHeader("Authorization"), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, response.Unauthorized("Invalid or missing access token"))
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, response.Forbidden("Only admins can delete recipes"))
		case errors.Is(err, domain.ErrRecipeNotFound):
			c.JSON(http.StatusNotFound, response.NotFound(fmt.Sprintf("Recipe with id %d not found", id)))
		case errors.Is(err, domain.ErrUserServiceUnavailable):
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, response.Error("SERVICE_UNAVAILABLE", "User service is unavailable"))
		default:
			internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.MessageResponse{Message: "Recipe deleted successfully"}))
}

func recipeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid recipe id"))
		return 0, false
	}
	return id, true
}

// parseIDs accepts both ids=1,2,3 and ids=1&ids=2
func parseIDs(values []string) ([]int64, bool) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, false
			}
			ids = append(ids, id)
		}
	}
	return ids, len(ids) > 0
}

// internalError records err for the request logger and hides it from the client
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, response.InternalError("Internal server error"))
}
