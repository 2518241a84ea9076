// Package server exposes scoring and the dashboard analytics over HTTP.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter registers every route on a fresh engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/score", h.Score)
	v1.GET("/model", h.Model)
	v1.POST("/admin/reload", h.Reload)
	v1.GET("/admin/scores", h.Scores)
	v1.GET("/options", h.Options)

	in := v1.Group("/insights")
	in.GET("/kpis", h.KPIs)
	in.GET("/reasons", h.Reasons)
	in.GET("/survival", h.Survival)
	in.GET("/correlation", h.Correlation)
	in.GET("/breakdown", h.Breakdown)
	in.GET("/distributions", h.Distributions)
	in.POST("/similar", h.Similar)

	v1.GET("/map", h.Map)
	v1.GET("/map/cities", h.Cities)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
