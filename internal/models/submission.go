package models

import "time"

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionTimedOut   SubmissionStatus = "timed_out"
)

// Submission is one student's timed attempt at an exam. It is created by
// the start call and finalized exactly once by submit; the server expires
// overdue in_progress rows independently based on ExpiresAt.
type Submission struct {
	SubmissionID string           `json:"submission_id"`
	ExamID       string           `json:"exam_id"`
	ExamTitle    string           `json:"exam_title,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	SubmittedAt  *time.Time       `json:"submitted_at,omitempty"`
	Status       SubmissionStatus `json:"status"`
	TotalScore   *float64         `json:"total_score,omitempty"`
}

// StartResponse is the canonical shape of the start call after gateway
// normalization. DurationSeconds and ExpiresAt are both nil for untimed
// exams.
type StartResponse struct {
	SubmissionID    string     `json:"submission_id"`
	Exam            Exam       `json:"exam"`
	StartedAt       time.Time  `json:"started_at"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ResultSummary is the grading collaborator's aggregate verdict. The client
// treats it as opaque.
type ResultSummary struct {
	CorrectCount   int     `json:"correctCount"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
}

type SubmissionResult struct {
	SubmissionID string        `json:"submissionId"`
	TotalScore   float64       `json:"totalScore"`
	Result       ResultSummary `json:"result"`
}

type SubmitRequest struct {
	Answers []QuestionAnswer `json:"answers" validate:"dive"`
}
