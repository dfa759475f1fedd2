package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/emhgit/pdf-voice-assistant/middleware"
	"github.com/emhgit/pdf-voice-assistant/pkg/logger"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
)

// PipelineStarter kicks off the background processing pipeline for a session.
type PipelineStarter interface {
	Start(token string)
}

type AudioHandler struct {
	store    *service.SessionStore
	pipeline PipelineStarter
	archive  *service.ArchiveService
}

func NewAudioHandler(store *service.SessionStore, pipeline PipelineStarter, archive *service.ArchiveService) *AudioHandler {
	return &AudioHandler{
		store:    store,
		pipeline: pipeline,
		archive:  archive,
	}
}

// Upload accepts the voice recording and starts the pipeline. The response is
// sent before processing begins (202); progress is pushed over the session's
// socket channel. A second upload while a prior run is in flight replaces the
// buffer and spawns another run; runs are not serialized or cancelled.
func (h *AudioHandler) Upload(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	if h.store.Get(token) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	h.store.SetAudio(token, data)
	go h.archive.StoreArtifact(context.Background(), token, "audio", header.Filename, data, "audio/webm")

	logger.Info(c.Request.Context(), "audio accepted, starting pipeline", "size", len(data))

	// Immediate response - processing happens in background
	c.JSON(http.StatusAccepted, gin.H{"message": "Processing started"})

	h.pipeline.Start(token)
}

// Download returns the raw audio bytes as uploaded.
func (h *AudioHandler) Download(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || len(session.PDFBuffer) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF not found"})
		return
	}
	if len(session.AudioBuffer) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audio not found"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=audio.webm")
	c.Data(http.StatusOK, "audio/webm", session.AudioBuffer)
}

// Update replaces the audio buffer without re-entering the pipeline.
func (h *AudioHandler) Update(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	if h.store.Get(token) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	h.store.SetAudio(token, data)
	go h.archive.StoreArtifact(context.Background(), token, "audio", header.Filename, data, "audio/webm")

	c.JSON(http.StatusOK, gin.H{"message": "Audio updated successfully"})
}
