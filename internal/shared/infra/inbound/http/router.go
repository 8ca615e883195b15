package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterOutboxAdminRoutes(r *gin.Engine, handler *OutboxAdminHandler) {
	admin := r.Group("/admin/outbox/:context")
	{
		admin.GET("/stats", handler.Stats)
		admin.GET("/records", handler.ListRecords)
		admin.POST("/records/:id/replay", handler.Replay)
		admin.GET("/attempts", handler.Attempts)
	}
}

// RegisterSystemRoutes añade /health y /metrics.
func RegisterSystemRoutes(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
