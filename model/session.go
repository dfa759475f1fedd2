package model

import (
	"time"
)

// PdfField describes one interactive form field inside the uploaded PDF.
type PdfField struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	IsEmpty bool   `json:"isEmpty"`
}

// PdfField type tags
const (
	FieldTypeText     = "text"
	FieldTypeCheckbox = "checkbox"
	FieldTypeChoice   = "choice"
)

// ExtractedField is one candidate value for a named PDF field.
type ExtractedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PdfMetadata describes an uploaded PDF file.
type PdfMetadata struct {
	FileName        string `json:"fileName"`
	FileSize        int64  `json:"fileSize"`
	UploadTimestamp int64  `json:"uploadTimestamp"`
}

// PipelineState is the processing state of a session's audio pipeline.
type PipelineState string

const (
	StateAwaitingAudio PipelineState = "awaiting_audio"
	StateTranscribing  PipelineState = "transcribing"
	StateExtracting    PipelineState = "extracting"
	StateComplete      PipelineState = "complete"
	StateFailed        PipelineState = "failed"
)

// Session accumulates the artifacts produced by the processing pipeline for
// one uploaded PDF. It is keyed by an opaque, server-generated token that
// doubles as the bearer credential and the push-channel key.
//
// The readiness flags are monotonic: once set they stay set for the session's
// life, even across a pipeline failure (partial progress is preserved).
type Session struct {
	Token    string
	Metadata PdfMetadata

	PDFBuffer   []byte
	PDFFields   []PdfField
	PDFText     string
	PDFTextErr  string
	AudioBuffer []byte

	Transcription   string
	ExtractedFields []ExtractedField

	PDFReady             bool
	PDFTextReady         bool
	AudioReady           bool
	TranscriptionReady   bool
	ExtractedFieldsReady bool

	State     PipelineState
	ErrorMsg  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status is the readiness snapshot returned by GET /api/status.
type Status struct {
	PDFReady             bool          `json:"pdfReady"`
	AudioReady           bool          `json:"audioReady"`
	TranscriptionReady   bool          `json:"transcriptionReady"`
	ExtractedFieldsReady bool          `json:"extractedFieldsReady"`
	State                PipelineState `json:"state"`
	Error                string        `json:"error,omitempty"`
}
