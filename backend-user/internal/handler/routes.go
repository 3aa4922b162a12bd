package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the user service API on router
func RegisterRoutes(router gin.IRouter, users *UserHandler, health *HealthHandler) {
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	u := router.Group("/users")
	{
		u.POST("/register", users.Register)
		u.POST("/login", users.Login)
		u.POST("/refresh", users.Refresh)

		authed := u.Group("", users.RequireAuth)
		{
			authed.GET("", users.Me)
			authed.POST("/recipes/:recipeId", users.SaveRecipe)
			authed.DELETE("/recipes/:recipeId", users.RemoveRecipe)
		}
	}
}
