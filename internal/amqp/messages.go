package amqp

import (
	"encoding/json"
	"time"
)

// Event types, also used as routing keys on the topic exchange.
const (
	EventTransactionCreated = "transaction.created"
	EventRecurringProcessed = "recurring.processed"
	EventGoalCompleted      = "goal.completed"
)

// Event is a notification about a change in a user's budget. It carries
// identifiers and totals only; consumers read details from the database.
type Event struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, userID, entityID int64) *Event {
	return &Event{
		Type:      eventType,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
