package models

import "time"

// ReviewItem is one question of a graded submission, with IsCorrect now
// populated on every choice and the student's answer replayed verbatim.
type ReviewItem struct {
	QuestionID    string       `json:"question_id"`
	Sequence      int          `json:"sequence"`
	Title         string       `json:"title"`
	Body          *string      `json:"body,omitempty"`
	Type          QuestionType `json:"type"`
	Choices       []Choice     `json:"choices,omitempty"`
	StudentAnswer WireAnswer   `json:"student_answer"`
	AwardedPoints float64      `json:"awarded_points"`
	MaxPoints     float64      `json:"max_points"`
}

// ReviewSummary is the rolled-up score for a graded submission. The server
// may omit it or send inconsistent numbers; the projector recomputes it
// from the items in that case.
type ReviewSummary struct {
	Awarded    float64 `json:"awarded"`
	Max        float64 `json:"max"`
	Percentage float64 `json:"percentage"`
}

type Review struct {
	SubmissionID string         `json:"submission_id"`
	ExamID       string         `json:"exam_id"`
	ExamTitle    string         `json:"exam_title"`
	TotalScore   float64        `json:"total_score"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Summary      *ReviewSummary `json:"summary,omitempty"`
	Items        []ReviewItem   `json:"items"`
}
