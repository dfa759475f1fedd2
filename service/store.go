package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/emhgit/pdf-voice-assistant/config"
	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/google/uuid"
)

// SessionStore is the in-memory store for workflow sessions, keyed by the
// opaque session token. All mutation goes through store methods holding the
// lock; Get hands out the live session object, so a concurrent manual edit
// and an in-flight pipeline write to the same field resolve as
// last-write-wins. That risk is accepted and documented rather than resolved.
type SessionStore struct {
	sessions    map[string]*model.Session
	mu          sync.RWMutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
}

// NewSessionStore creates a session store with the configured capacity.
func NewSessionStore(cfg *config.StoreConfig) *SessionStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	slog.Info("session store initialized", "max_sessions", maxSessions)
	return &SessionStore{
		sessions:    make(map[string]*model.Session),
		maxSessions: maxSessions,
	}
}

// Create registers a new session for an uploaded PDF and returns its token.
// The token is a v4 UUID generated from crypto/rand; it is the bearer
// credential for every subsequent request and the push-channel key.
func (s *SessionStore) Create(pdf []byte, fields []model.PdfField, meta model.PdfMetadata) string {
	if fields == nil {
		fields = []model.PdfField{}
	}

	token := uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = &model.Session{
		Token:     token,
		Metadata:  meta,
		PDFBuffer: pdf,
		PDFFields: fields,
		PDFReady:  true,
		State:     model.StateAwaitingAudio,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.cleanupIfNeeded()

	return token
}

// Get returns the live session for token, or nil if absent.
func (s *SessionStore) Get(token string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[token]
}

// ReplacePDF swaps the session's PDF buffer and its derived field list.
// The previously extracted text no longer matches the new buffer, so the
// text artifact is cleared and re-derived by the caller. Readiness flags are
// monotonic and stay set. Returns false if the session does not exist.
func (s *SessionStore) ReplacePDF(token string, pdf []byte, fields []model.PdfField, meta model.PdfMetadata) bool {
	if fields == nil {
		fields = []model.PdfField{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	sess.PDFBuffer = pdf
	sess.PDFFields = fields
	sess.Metadata = meta
	sess.PDFText = ""
	sess.PDFTextErr = ""
	sess.PDFTextReady = false
	sess.UpdatedAt = time.Now()
	return true
}

// SetPDFText stores the extracted page text.
func (s *SessionStore) SetPDFText(token, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.PDFText = text
		sess.PDFTextErr = ""
		sess.PDFTextReady = true
		sess.UpdatedAt = time.Now()
	}
}

// SetPDFTextError records a failed text extraction for the current buffer.
func (s *SessionStore) SetPDFTextError(token, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.PDFTextErr = errMsg
		sess.UpdatedAt = time.Now()
	}
}

// SetAudio stores the uploaded audio buffer and marks it ready.
func (s *SessionStore) SetAudio(token string, audio []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	sess.AudioBuffer = audio
	sess.AudioReady = true
	sess.UpdatedAt = time.Now()
	return true
}

// Audio returns a snapshot reference of the session's audio buffer.
func (s *SessionStore) Audio(token string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[token]; ok {
		return sess.AudioBuffer
	}
	return nil
}

// FieldNames returns the names of the session's PDF fields in document order.
func (s *SessionStore) FieldNames(token string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	names := make([]string, len(sess.PDFFields))
	for i, f := range sess.PDFFields {
		names[i] = f.Name
	}
	return names
}

// SetTranscription stores the transcript and marks it ready.
func (s *SessionStore) SetTranscription(token, transcription string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.Transcription = transcription
		sess.TranscriptionReady = true
		sess.UpdatedAt = time.Now()
	}
}

// SetExtractedFields stores the candidate field values and marks them ready.
func (s *SessionStore) SetExtractedFields(token string, fields []model.ExtractedField) {
	if fields == nil {
		fields = []model.ExtractedField{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.ExtractedFields = fields
		sess.ExtractedFieldsReady = true
		sess.UpdatedAt = time.Now()
	}
}

// SetState moves the session's pipeline state. Readiness flags are never
// cleared here; a Failed state keeps whatever stages completed before it.
func (s *SessionStore) SetState(token string, state model.PipelineState, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.State = state
		sess.ErrorMsg = errMsg
		sess.UpdatedAt = time.Now()
	}
}

// Status returns a consistent readiness snapshot, or nil for an unknown token.
func (s *SessionStore) Status(token string) *model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	return &model.Status{
		PDFReady:             sess.PDFReady,
		AudioReady:           sess.AudioReady,
		TranscriptionReady:   sess.TranscriptionReady,
		ExtractedFieldsReady: sess.ExtractedFieldsReady,
		State:                sess.State,
		Error:                sess.ErrorMsg,
	}
}

// cleanupIfNeeded removes oldest sessions if the store exceeds maxSessions.
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 {
		return // Unlimited
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting old session",
			"session_id", sessions[i].Token,
			"created_at", sessions[i].CreatedAt,
		)
		delete(s.sessions, sessions[i].Token)
	}
}

// Count returns the number of sessions in the store
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
