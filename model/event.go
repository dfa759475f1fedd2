package model

// EventType discriminates push events sent over a session's socket channel.
type EventType string

const (
	EventStatus   EventType = "status"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one server-to-client push message. Exactly one of the optional
// payload fields is populated depending on Type.
type Event struct {
	Type     EventType        `json:"type"`
	Status   string           `json:"status,omitempty"`
	Progress int              `json:"progress,omitempty"`
	Data     *CompletePayload `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// CompletePayload carries the final pipeline result.
type CompletePayload struct {
	Transcription   string           `json:"transcription"`
	ExtractedFields []ExtractedField `json:"extractedFields"`
}

// StatusEvent builds a progress event for an in-flight pipeline stage.
func StatusEvent(status string, progress int) Event {
	return Event{Type: EventStatus, Status: status, Progress: progress}
}

// CompleteEvent builds the terminal success event.
func CompleteEvent(transcription string, fields []ExtractedField) Event {
	return Event{
		Type: EventComplete,
		Data: &CompletePayload{
			Transcription:   transcription,
			ExtractedFields: fields,
		},
	}
}

// ErrorEvent builds the terminal failure event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Error: message}
}
