package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the video routes.
//
// API Structure:
//
//	/videos
//	├── POST /upload                      - Upload and process a video
//	├── GET  /:videoId                    - Job record
//	├── GET  /:videoId/master.m3u8        - Master manifest
//	└── GET  /:videoId/hls/:label/:file   - Sub-playlists and chunks
func RegisterRoutes(router *gin.Engine, handler *APIHandler) {
	videos := router.Group("/videos")
	{
		videos.POST("/upload", handler.Upload)
		videos.GET("/:videoId", handler.GetStatus)
		videos.GET("/:videoId/master.m3u8", handler.GetMaster)
		videos.GET("/:videoId/hls/:label/:file", handler.GetSegment)
	}
}

// RegisterSystemRoutes registers the health and metrics endpoints
func RegisterSystemRoutes(router *gin.Engine, metricsHandler http.Handler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
