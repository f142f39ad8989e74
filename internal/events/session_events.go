package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of session lifecycle events
type EventType string

const (
	EventSessionStarted      EventType = "session.started"
	EventSessionSubmitted    EventType = "session.submitted"
	EventSessionTimedOut     EventType = "session.timed_out"
	EventSessionSubmitFailed EventType = "session.submit_failed"
	EventSessionAnswersSaved EventType = "session.answers_saved"
)

const (
	eventSource  = "exam-client"
	eventVersion = "1.0"
)

// SessionEvent is the base event structure for all session lifecycle events
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSessionEvent wraps a payload into the base envelope.
func NewSessionEvent(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Session lifecycle event payloads

type SessionStartedEvent struct {
	SubmissionID    string    `json:"submission_id"`
	ExamID          string    `json:"exam_id"`
	ExamTitle       string    `json:"exam_title"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	QuestionCount   int       `json:"question_count"`
	Resumed         bool      `json:"resumed"`
}

type SessionSubmittedEvent struct {
	SubmissionID string    `json:"submission_id"`
	ExamID       string    `json:"exam_id"`
	Trigger      string    `json:"trigger"`
	TotalScore   float64   `json:"total_score"`
	Passed       bool      `json:"passed"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type SessionTimedOutEvent struct {
	SubmissionID string    `json:"submission_id"`
	ExamID       string    `json:"exam_id"`
	ExpiredAt    time.Time `json:"expired_at"`
}

type SessionSubmitFailedEvent struct {
	SubmissionID string `json:"submission_id"`
	ExamID       string `json:"exam_id"`
	Trigger      string `json:"trigger"`
	Reason       string `json:"reason"`
	Retryable    bool   `json:"retryable"`
}

type SessionAnswersSavedEvent struct {
	SubmissionID  string    `json:"submission_id"`
	AnsweredCount int       `json:"answered_count"`
	SavedAt       time.Time `json:"saved_at"`
}
