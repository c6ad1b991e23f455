package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is the broker envelope for everything the service publishes or
// consumes: edit requests in, form/response notifications out.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(eventType string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewFormEvent wraps a form DTO into an event envelope.
func NewFormEvent(eventType string, form *Form) (*Event, error) {
	payload, err := json.Marshal(form.ToOutput())
	if err != nil {
		return nil, err
	}
	return NewEvent(eventType, payload), nil
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if len(e.Payload) == 0 {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}
