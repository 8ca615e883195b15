package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r *gin.Engine, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("", handler.RegisterUser)
		users.POST("/login", handler.Login)
		users.GET("/:id", handler.GetUser)
	}
}
