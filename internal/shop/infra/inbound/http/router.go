package http

import "github.com/gin-gonic/gin"

func RegisterCustomerRoutes(r *gin.Engine, handler *CustomerHandler) {
	customers := r.Group("/customers")
	{
		customers.POST("", handler.RegisterCustomer)
		customers.GET("/:id", handler.GetCustomer)
		customers.GET("", handler.GetByUser)
		customers.POST("/:id/addresses", handler.AddAddress)
		customers.PUT("/:id/addresses/:addressId/default", handler.SetDefaultAddress)
		customers.DELETE("/:id/addresses/:addressId", handler.RemoveAddress)
	}
}
