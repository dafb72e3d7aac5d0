package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrorain/advisory"
	"agrorain/climate"
	"agrorain/handlers"
)

func SetupRouter(svc *climate.Service, orch *advisory.Orchestrator) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/agrorain")
	{
		api.GET("/regions", handlers.RegionsHandler)
		api.POST("/analyze", func(c *gin.Context) {
			handlers.AnalyzeHandler(c, svc)
		})
		api.POST("/advise", func(c *gin.Context) {
			handlers.AdviseHandler(c, svc, orch)
		})
	}

	return r
}
