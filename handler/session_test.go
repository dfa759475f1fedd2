package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/gin-gonic/gin"
)

func newSessionRouter(handler *SessionHandler, token string) *gin.Engine {
	router := gin.New()
	withToken := func(h gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("session_token", token)
			h(c)
		}
	}
	router.GET("/api/transcription", withToken(handler.GetTranscription))
	router.PUT("/api/transcription", withToken(handler.UpdateTranscription))
	router.GET("/api/extracted-fields", withToken(handler.GetExtractedFields))
	router.PUT("/api/extracted-fields", withToken(handler.UpdateExtractedFields))
	router.GET("/api/status", withToken(handler.GetStatus))
	return router
}

func jsonRequest(method, target string, payload any) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetTranscriptionLifecycle(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	router := newSessionRouter(NewSessionHandler(store), token)

	// Before the transcription stage completes
	req := httptest.NewRequest("GET", "/api/transcription", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before transcription, got %d", w.Code)
	}

	store.SetTranscription(token, "my name is Ada")

	req = httptest.NewRequest("GET", "/api/transcription", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["transcription"] != "my name is Ada" {
		t.Errorf("Unexpected transcription: %q", response["transcription"])
	}
}

func TestUpdateTranscription(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	store.SetTranscription(token, "my name is Aba")
	router := newSessionRouter(NewSessionHandler(store), token)

	req := jsonRequest("PUT", "/api/transcription", gin.H{"transcription": "my name is Ada"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.Get(token).Transcription != "my name is Ada" {
		t.Error("Expected transcription to be replaced")
	}
}

func TestUpdateTranscriptionBeforePipeline(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	router := newSessionRouter(NewSessionHandler(store), token)

	// There is nothing to edit until the pipeline produced a transcript
	req := jsonRequest("PUT", "/api/transcription", gin.H{"transcription": "manual"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestUpdateTranscriptionEmptyBody(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	store.SetTranscription(token, "original")
	router := newSessionRouter(NewSessionHandler(store), token)

	req := jsonRequest("PUT", "/api/transcription", gin.H{"transcription": ""})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["error"] != "No transcription provided" {
		t.Errorf("Expected 'No transcription provided' error, got '%s'", response["error"])
	}
	if store.Get(token).Transcription != "original" {
		t.Error("Expected transcription to be unchanged")
	}
}

func TestGetExtractedFieldsGatedOnTranscription(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	router := newSessionRouter(NewSessionHandler(store), token)

	req := httptest.NewRequest("GET", "/api/extracted-fields", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before transcription, got %d", w.Code)
	}

	// Transcription present but extraction not yet done: empty list, not 404
	store.SetTranscription(token, "my name is Ada")

	req = httptest.NewRequest("GET", "/api/extracted-fields", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{"fields":[]}` {
		t.Errorf("Expected empty field list, got %s", w.Body.String())
	}

	store.SetExtractedFields(token, []model.ExtractedField{{Name: "firstName", Value: "Ada"}})

	req = httptest.NewRequest("GET", "/api/extracted-fields", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string][]model.ExtractedField
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response["fields"]) != 1 || response["fields"][0].Value != "Ada" {
		t.Errorf("Unexpected fields: %+v", response["fields"])
	}
}

func TestUpdateExtractedFields(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	store.SetTranscription(token, "my name is Ada")
	store.SetExtractedFields(token, []model.ExtractedField{{Name: "firstName", Value: "Aba"}})
	router := newSessionRouter(NewSessionHandler(store), token)

	req := jsonRequest("PUT", "/api/extracted-fields", gin.H{
		"fields": []model.ExtractedField{{Name: "firstName", Value: "Ada"}},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	fields := store.Get(token).ExtractedFields
	if len(fields) != 1 || fields[0].Value != "Ada" {
		t.Errorf("Expected corrected fields, got %+v", fields)
	}
}

func TestUpdateExtractedFieldsInvalidBody(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	store.SetTranscription(token, "my name is Ada")
	router := newSessionRouter(NewSessionHandler(store), token)

	req := httptest.NewRequest("PUT", "/api/extracted-fields", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	store := newHandlerStore()
	token := store.Create([]byte("%PDF-1.4"), nil, model.PdfMetadata{})
	store.SetAudio(token, []byte("audio"))
	router := newSessionRouter(NewSessionHandler(store), token)

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status model.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !status.PDFReady || !status.AudioReady {
		t.Error("Expected pdfReady and audioReady")
	}
	if status.TranscriptionReady || status.ExtractedFieldsReady {
		t.Error("Expected downstream flags to be false")
	}
	if status.State != model.StateAwaitingAudio {
		t.Errorf("Unexpected state: %s", status.State)
	}
}

func TestGetStatusUnknownSession(t *testing.T) {
	router := newSessionRouter(NewSessionHandler(newHandlerStore()), "unknown-token")

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestNewSessionHandler(t *testing.T) {
	handler := NewSessionHandler(newHandlerStore())
	if handler == nil {
		t.Fatal("Expected non-nil handler")
	}
}
