package handler

import (
	"net/http"

	"github.com/emhgit/pdf-voice-assistant/middleware"
	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
)

// SessionHandler serves the user-editable pipeline artifacts (transcription,
// extracted fields) and the readiness snapshot.
type SessionHandler struct {
	store *service.SessionStore
}

func NewSessionHandler(store *service.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// GetTranscription returns the transcript once the transcription stage
// completed.
func (h *SessionHandler) GetTranscription(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || session.Transcription == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcription": session.Transcription})
}

type updateTranscriptionRequest struct {
	Transcription string `json:"transcription"`
}

// UpdateTranscription lets the user correct the transcript. Only an existing
// transcript can be edited; the pipeline produces the first one.
func (h *SessionHandler) UpdateTranscription(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || session.Transcription == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcription not found"})
		return
	}

	var req updateTranscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Transcription == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No transcription provided"})
		return
	}

	h.store.SetTranscription(token, req.Transcription)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Transcription updated successfully",
		"transcription": req.Transcription,
	})
}

// GetExtractedFields returns the candidate field values. Gated on the
// transcription artifact: before that stage there is nothing to serve.
func (h *SessionHandler) GetExtractedFields(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || session.Transcription == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Extracted fields not found"})
		return
	}

	fields := session.ExtractedFields
	if fields == nil {
		fields = []model.ExtractedField{}
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

type updateExtractedFieldsRequest struct {
	Fields []model.ExtractedField `json:"fields"`
}

// UpdateExtractedFields lets the user correct the extracted values.
func (h *SessionHandler) UpdateExtractedFields(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || session.Transcription == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcription not found"})
		return
	}

	var req updateExtractedFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Fields == nil {
		req.Fields = []model.ExtractedField{}
	}

	h.store.SetExtractedFields(token, req.Fields)

	c.JSON(http.StatusOK, gin.H{
		"message": "Extracted fields updated successfully",
		"fields":  req.Fields,
	})
}

// GetStatus returns the readiness snapshot for polling clients.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	status := h.store.Status(token)
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, status)
}
