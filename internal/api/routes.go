package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the service routes on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Root)

	router.POST("/scrape", h.Scrape)
	router.GET("/scrape/stream", h.ScrapeStream)
	router.POST("/process", h.Process)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	if h.sessions != nil {
		auth := router.Group("/auth")
		auth.GET("/session", h.Session)
		auth.POST("/logout", h.Logout)
	}
}
