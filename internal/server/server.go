// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the upload page, health check, and extraction API.
func NewRouter(h *ExtractHandler, webDir string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if webDir != "" {
		r.StaticFile("/", webDir+"/index.html")
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/extract", h.Extract)
		api.POST("/preview", h.Preview)
	}
	return r
}
