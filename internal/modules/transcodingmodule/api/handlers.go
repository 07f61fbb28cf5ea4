// Package api provides HTTP handlers and routes for the transcoding module:
// the upload endpoint that runs the pipeline and the playback endpoints that
// serve the master manifest, sub-playlists and chunks from storage.
package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/abrstream/internal/logger"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/manifest"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// uploadField is the multipart form field carrying the video
const uploadField = "file"

// APIHandler handles HTTP requests for the transcoding module
type APIHandler struct {
	service       types.VideoService
	maxUploadSize int64
}

// NewAPIHandler creates a new API handler. maxUploadSize <= 0 disables the
// request size limit.
func NewAPIHandler(service types.VideoService, maxUploadSize int64) *APIHandler {
	return &APIHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// Upload handles POST /videos/upload
//
// The request is a multipart form with the video in the "file" field. The
// whole pipeline runs before the response is written; on success the body
// is the new video ID as plain text.
func (h *APIHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	result, err := h.service.Process(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		logger.Error("Failed to process upload",
			"error", err,
			"filename", fileHeader.Filename,
			"type", tErrors.GetType(err),
			"op", tErrors.GetOperation(err),
		)
		status := http.StatusInternalServerError
		if tErrors.GetType(err) == tErrors.ErrorTypeValidation {
			status = http.StatusBadRequest
		}
		c.String(status, "Error processing video: "+err.Error())
		return
	}

	logger.Info("Upload processed",
		"video_id", result.Asset.VideoID,
		"renditions", len(result.Renditions),
		"processing_ms", result.ProcessingMS,
	)
	c.String(http.StatusOK, result.Asset.VideoID)
}

// GetMaster handles GET /videos/:videoId/master.m3u8
func (h *APIHandler) GetMaster(c *gin.Context) {
	videoID := c.Param("videoId")
	if !validSegment(videoID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.serveObject(c, storage.MasterKey(videoID))
}

// GetSegment handles GET /videos/:videoId/hls/:label/:file
func (h *APIHandler) GetSegment(c *gin.Context) {
	videoID, label, file := c.Param("videoId"), c.Param("label"), c.Param("file")
	if !validSegment(videoID) || !validSegment(label) || !validSegment(file) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.serveObject(c, storage.SegmentKey(videoID, label, file))
}

// GetStatus handles GET /videos/:videoId
//
// Response is the job record of the upload: status, source dimensions,
// ladder mode and per-rendition timings.
func (h *APIHandler) GetStatus(c *gin.Context) {
	videoID := c.Param("videoId")

	status, err := h.service.Status(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, tErrors.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		logger.Error("Failed to load video status", "error", err, "video_id", videoID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// serveObject streams key from storage. Any failure to open the object is
// reported as not found.
func (h *APIHandler) serveObject(c *gin.Context, key string) {
	rc, err := h.service.Open(c.Request.Context(), key)
	if err != nil {
		if !errors.Is(err, tErrors.ErrObjectNotFound) {
			logger.Warn("Failed to open object", "key", key, "error", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	defer rc.Close()

	c.Header("Content-Type", manifest.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.Warn("Failed to stream object", "key", key, "error", err)
	}
}

// validSegment rejects path parameters that could step outside a video
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
