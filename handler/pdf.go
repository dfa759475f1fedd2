package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/emhgit/pdf-voice-assistant/middleware"
	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/emhgit/pdf-voice-assistant/pkg/logger"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
)

// PDFParser parses uploaded PDF buffers into fields and text.
type PDFParser interface {
	ExtractFields(pdfBytes []byte) ([]model.PdfField, error)
	ExtractText(pdfBytes []byte) (string, error)
}

type PDFHandler struct {
	store   *service.SessionStore
	parser  PDFParser
	archive *service.ArchiveService
}

func NewPDFHandler(store *service.SessionStore, parser PDFParser, archive *service.ArchiveService) *PDFHandler {
	return &PDFHandler{
		store:   store,
		parser:  parser,
		archive: archive,
	}
}

// readPDFUpload pulls the multipart "pdf" file out of the request and
// validates it. Writes the error response itself and returns ok=false on
// rejection.
func (h *PDFHandler) readPDFUpload(c *gin.Context) (data []byte, header *multipart.FileHeader, ok bool) {
	file, header, err := c.Request.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, nil, false
	}

	// Validate the declared type, falling back to content sniffing when the
	// client sent nothing useful.
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.Contains(contentType, "pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be a PDF"})
		return nil, nil, false
	}

	return data, header, true
}

// Upload handles the initial PDF upload: it parses the interactive form
// inline, creates the session and kicks off text extraction in the
// background. This is the only unauthenticated endpoint — the session token
// it returns is the credential for everything else.
func (h *PDFHandler) Upload(c *gin.Context) {
	data, header, ok := h.readPDFUpload(c)
	if !ok {
		return
	}

	fields, err := h.parser.ExtractFields(data)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to parse PDF form", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process PDF upload"})
		return
	}

	meta := model.PdfMetadata{
		FileName:        header.Filename,
		FileSize:        header.Size,
		UploadTimestamp: time.Now().UnixMilli(),
	}
	token := h.store.Create(data, fields, meta)

	go h.extractText(token, data)
	go h.archive.StoreArtifact(context.Background(), token, "pdf", header.Filename, data, "application/pdf")

	logger.Info(c.Request.Context(), "session created",
		"session_id", token,
		"filename", header.Filename,
		"fields", len(fields),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":     "PDF uploaded successfully",
		"sessionId":   token,
		"pdfMetadata": meta,
	})
}

// Update replaces the session's PDF and re-derives its fields and text.
func (h *PDFHandler) Update(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	if h.store.Get(token) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	data, header, ok := h.readPDFUpload(c)
	if !ok {
		return
	}

	fields, err := h.parser.ExtractFields(data)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to parse PDF form", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process PDF upload"})
		return
	}

	meta := model.PdfMetadata{
		FileName:        header.Filename,
		FileSize:        header.Size,
		UploadTimestamp: time.Now().UnixMilli(),
	}
	if !h.store.ReplacePDF(token, data, fields, meta) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	go h.extractText(token, data)
	go h.archive.StoreArtifact(context.Background(), token, "pdf", header.Filename, data, "application/pdf")

	c.JSON(http.StatusOK, gin.H{"message": "PDF updated successfully"})
}

// extractText derives the PDF's page text in the background.
func (h *PDFHandler) extractText(token string, data []byte) {
	text, err := h.parser.ExtractText(data)
	if err != nil {
		slog.Warn("failed to extract PDF text", "session_id", token, "error", err)
		h.store.SetPDFTextError(token, err.Error())
		return
	}
	h.store.SetPDFText(token, text)
}

// Download returns the raw PDF bytes as uploaded.
func (h *PDFHandler) Download(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || len(session.PDFBuffer) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF not found"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=document.pdf")
	c.Data(http.StatusOK, "application/pdf", session.PDFBuffer)
}

// Fields returns the extracted form-field descriptors.
func (h *PDFHandler) Fields(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil || session.PDFFields == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF fields not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": session.PDFFields})
}

// Text returns the PDF's extracted page text once derived.
func (h *PDFHandler) Text(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	session := h.store.Get(token)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF text not found"})
		return
	}
	if session.PDFTextErr != "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to extract PDF text"})
		return
	}
	if !session.PDFTextReady {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF text not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": session.PDFText})
}
