package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Session lifecycle event codes.
const (
	SessionCreated  = "SESSION_CREATED"
	SessionResumed  = "SESSION_RESUMED"
	SessionReplaced = "SESSION_REPLACED"
	SessionEnded    = "SESSION_ENDED"
)

// NewSessionEvent builds a lifecycle event for the given session id.
func NewSessionEvent(eventType, sessionId, workflowType string) BaseEvent {
	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"session_id":    sessionId,
			"workflow_type": workflowType,
		},
		OccurredAt: time.Now(),
	}
}
