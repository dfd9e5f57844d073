package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventID is unique per event and doubles as the dedupe key on the bus.
	EventID() string

	// EventType returns the unique code for this event (e.g., "document.uploaded").
	EventType() string

	// Subject is the file id the event is about.
	Subject() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeDocumentUploaded = "document.uploaded"
	TypeQuestionAsked    = "question.asked"
	TypeFillCompleted    = "fill.completed"
	TypeDocumentFilled   = "document.filled"
	TypeSessionExpired   = "session.expired"
)

// Record is the one Event implementation and its wire form.
type Record struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	FileID     string                 `json:"file_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

var _ Event = Record{}

func New(eventType, fileID string, data map[string]interface{}) Record {
	return Record{
		ID:         uuid.NewString(),
		Type:       eventType,
		FileID:     fileID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func DocumentUploaded(fileID, docType string, placeholders []string) Record {
	return New(TypeDocumentUploaded, fileID, map[string]interface{}{
		"doc_type":     docType,
		"placeholders": placeholders,
	})
}

func QuestionAsked(fileID, placeholder string, remaining int) Record {
	return New(TypeQuestionAsked, fileID, map[string]interface{}{
		"placeholder": placeholder,
		"remaining":   remaining,
	})
}

func FillCompleted(fileID string, answers int) Record {
	return New(TypeFillCompleted, fileID, map[string]interface{}{
		"answers": answers,
	})
}

func DocumentFilled(fileID string, values int, missing []string) Record {
	return New(TypeDocumentFilled, fileID, map[string]interface{}{
		"values":  values,
		"missing": missing,
	})
}

func SessionExpired(fileID string) Record {
	return New(TypeSessionExpired, fileID, nil)
}

func (r Record) EventID() string                 { return r.ID }
func (r Record) EventType() string               { return r.Type }
func (r Record) Subject() string                 { return r.FileID }
func (r Record) Payload() map[string]interface{} { return r.Data }
func (r Record) Timestamp() time.Time            { return r.OccurredAt }

// Encode serializes any Event as a Record.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(Record{
		ID:         e.EventID(),
		Type:       e.EventType(),
		FileID:     e.Subject(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	})
}

func Decode(payload []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, fmt.Errorf("decode event: %w", err)
	}
	if r.Type == "" {
		return Record{}, fmt.Errorf("decode event: missing type")
	}
	return r, nil
}
