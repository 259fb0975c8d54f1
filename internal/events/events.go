package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// EventAttemptCompleted fires once per submitted attempt, after the
	// grading transaction commits.
	EventAttemptCompleted = "attempt.completed"
)

// Event is the envelope for all published domain events
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AttemptCompletedData is the payload of an attempt.completed event
type AttemptCompletedData struct {
	AttemptID string  `json:"attempt_id"`
	QuizID    string  `json:"quiz_id"`
	UserID    string  `json:"user_id"`
	Score     float64 `json:"score"`
	Passed    bool    `json:"passed"`
}

// NewEvent builds an event envelope with a fresh id and timestamp
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "quiz-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
