package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP router. Write endpoints require an actor;
// status, heartbeat, health and metrics are open reads.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "approval-workflow",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wf := router.Group("/workflow")
	{
		wf.POST("/submit", RequireActor(), h.Submit)
		wf.POST("/respond", RequireActor(), h.Respond)
		wf.POST("/withdraw", RequireActor(), h.Withdraw)
		wf.GET("/status/:id", h.Status)
		wf.GET("/heartbeat", h.Heartbeat)
	}

	return router
}
