package service

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/emhgit/pdf-voice-assistant/model"
)

// Transcriber turns an audio buffer into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// FieldValueExtractor produces one candidate value per PDF field name.
type FieldValueExtractor interface {
	ExtractFields(ctx context.Context, fieldNames []string, transcription string) ([]model.ExtractedField, error)
}

// EventSender pushes events to a session's channel, best-effort.
type EventSender interface {
	Send(token string, ev model.Event)
}

// Pipeline drives the per-session audio pipeline:
//
//	AwaitingAudio -> Transcribing -> Extracting -> Complete
//
// with Failed reachable from Transcribing or Extracting. Stages run strictly
// sequentially; extraction consumes transcription's output. Every stage
// boundary pushes a status event over the session's channel; failures push a
// single error event and are never retried (the client re-uploads audio to
// re-enter from the start). A failed run keeps whatever artifacts completed
// before the failure.
type Pipeline struct {
	store       *SessionStore
	events      EventSender
	transcriber Transcriber
	extractor   FieldValueExtractor
	language    string
}

func NewPipeline(store *SessionStore, events EventSender, transcriber Transcriber, extractor FieldValueExtractor, language string) *Pipeline {
	return &Pipeline{
		store:       store,
		events:      events,
		transcriber: transcriber,
		extractor:   extractor,
		language:    language,
	}
}

// Start runs the pipeline in the background and returns immediately. The
// goroutine carries its own error boundary so an escaping panic is logged
// instead of crashing the process.
func (p *Pipeline) Start(token string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("pipeline panic",
					"session_id", token,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		p.Run(context.Background(), token)
	}()
}

// Run executes the pipeline synchronously for one accepted audio upload.
func (p *Pipeline) Run(ctx context.Context, token string) {
	if p.store.Get(token) == nil {
		slog.Warn("pipeline started for unknown session", "session_id", token)
		return
	}

	// Stage 1: Transcription
	p.store.SetState(token, model.StateTranscribing, "")
	p.events.Send(token, model.StatusEvent("transcribing", 20))

	audio := p.store.Audio(token)
	if len(audio) == 0 {
		p.fail(token, "no audio buffer found for transcription")
		return
	}

	transcription, err := p.transcriber.Transcribe(ctx, audio, p.language)
	if err != nil {
		slog.Error("transcription failed", "session_id", token, "error", err)
		p.fail(token, err.Error())
		return
	}
	p.store.SetTranscription(token, transcription)

	// Stage 2: Field Extraction
	p.store.SetState(token, model.StateExtracting, "")
	p.events.Send(token, model.StatusEvent("extracting", 60))

	fieldNames := p.store.FieldNames(token)
	if len(fieldNames) == 0 {
		p.fail(token, "no PDF fields found for extraction")
		return
	}

	extracted, err := p.extractor.ExtractFields(ctx, fieldNames, transcription)
	if err != nil {
		slog.Error("field extraction failed", "session_id", token, "error", err)
		p.fail(token, err.Error())
		return
	}
	p.store.SetExtractedFields(token, extracted)

	p.store.SetState(token, model.StateComplete, "")
	p.events.Send(token, model.CompleteEvent(transcription, extracted))

	slog.Info("pipeline complete",
		"session_id", token,
		"fields", len(extracted),
	)
}

func (p *Pipeline) fail(token, message string) {
	p.store.SetState(token, model.StateFailed, message)
	p.events.Send(token, model.ErrorEvent(message))
}
