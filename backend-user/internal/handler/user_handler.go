package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/service"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/middleware"
	"github.com/D-Tasker207/gazpacho-backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// UserHandler handles user HTTP requests
type UserHandler struct {
	identityService service.IdentityService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(identityService service.IdentityService) *UserHandler {
	return &UserHandler{identityService: identityService}
}

// RequireAuth resolves the Authorization header through the identity service
// and stores the caller's id in the gin context
func (h *UserHandler) RequireAuth(c *gin.Context) {
	principal, err := h.identityService.ResolveBearer(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid or missing access token"))
		return
	}
	c.Set(middleware.ContextKeyUserID, principal.UserID)
	c.Next()
}

// Register handles user registration
// POST /users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Email and password are required"))
		return
	}
	if valid, msg := req.ValidateEmail(); !valid {
		c.JSON(http.StatusBadRequest, response.Error("INVALID_EMAIL", msg))
		return
	}
	if valid, msg := req.ValidatePassword(); !valid {
		c.JSON(http.StatusBadRequest, response.Error("INVALID_PASSWORD", msg))
		return
	}

	user, err := h.identityService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, response.Error("USER_EXISTS", "User with this email already exists"))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(user))
}

// Login handles user login
// POST /users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Email and password are required"))
		return
	}

	tokens, err := h.identityService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusForbidden, response.Error("INVALID_CREDENTIALS", "Invalid email or password"))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(tokens))
}

// Refresh exchanges a refresh token for a new token pair
// POST /users/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Refresh token is required"))
		return
	}

	tokens, err := h.identityService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrIdentityNotFound) {
			c.JSON(http.StatusForbidden, response.Error("INVALID_TOKEN", "Invalid or expired refresh token"))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(tokens))
}

// Me returns the authenticated user's public identity
// GET /users
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.identityService.GetPublicIdentity(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("User not found"))
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(user))
}

// SaveRecipe adds a recipe to the caller's saved list
// POST /users/recipes/:recipeId
func (h *UserHandler) SaveRecipe(c *gin.Context) {
	h.setSavedRecipe(c, true, "Recipe saved successfully")
}

// RemoveRecipe removes a recipe from the caller's saved list
// DELETE /users/recipes/:recipeId
func (h *UserHandler) RemoveRecipe(c *gin.Context) {
	h.setSavedRecipe(c, false, "Recipe removed successfully")
}

func (h *UserHandler) setSavedRecipe(c *gin.Context, add bool, message string) {
	recipeID, err := strconv.ParseInt(c.Param("recipeId"), 10, 64)
	if err != nil || recipeID <= 0 {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid recipe id"))
		return
	}
	userID, _ := middleware.GetUserID(c)

	err = h.identityService.SetSavedRecipe(c.Request.Context(), userID, recipeID, add)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecipeNotFound):
			c.JSON(http.StatusNotFound, response.NotFound(fmt.Sprintf("Recipe with id %d not found", recipeID)))
		case errors.Is(err, domain.ErrIdentityNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("User not found"))
		case errors.Is(err, domain.ErrRecipeCatalogUnavailable):
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, response.Error("SERVICE_UNAVAILABLE", "Recipe service is unavailable"))
		default:
			internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.MessageResponse{Message: message}))
}

// internalError records err for the request logger and hides it from the client
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, response.InternalError("Internal server error"))
}
