package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a message that can never be handled. Subscribers
// acknowledge and drop it instead of redelivering it.
var ErrMalformed = errors.New("malformed event")

// Event types
const (
	CommunicationRequested = "account.communication.requested"
	CommunicationSent      = "account.communication.sent"
)

// Event is the envelope written to every channel regardless of transport.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
}

// CommunicationSentEvent is published by the message service once the
// welcome communication for an account has gone out.
type CommunicationSentEvent struct {
	AccountNumber int64 `json:"accountNumber"`
}

// DecodeData re-decodes the loosely typed Data of a received event into out.
// Data that does not fit out is reported as ErrMalformed.
func DecodeData(event Event, out any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("%w: re-encode %s event data: %v", ErrMalformed, event.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s event data: %v", ErrMalformed, event.Type, err)
	}
	return nil
}
