package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the recipe service API on router. auth, when not nil,
// guards deletion. writeMiddleware runs in front of the batch insert only.
func RegisterRoutes(router gin.IRouter, recipes *RecipeHandler, health *HealthHandler, auth gin.HandlerFunc, writeMiddleware ...gin.HandlerFunc) {
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	r := router.Group("/recipes")
	{
		addBatch := append(append([]gin.HandlerFunc{}, writeMiddleware...), recipes.AddBatch)
		r.PUT("/batch", addBatch...)
		r.GET("/batch", recipes.GetBatch)
		r.GET("/search", recipes.Search)
		r.GET("/:id", recipes.View)
		if auth != nil {
			r.DELETE("/:id", auth, recipes.Delete)
		} else {
			r.DELETE("/:id", recipes.Delete)
		}
	}
}
