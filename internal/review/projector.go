// Package review reconstructs a graded submission for display: every
// choice is paired with "selected by student" and "is correct" booleans so
// the UI can mark all four combinations without re-deriving logic per
// render.
package review

import (
	"time"

	"github.com/SAP-F-2025/exam-client/internal/models"
	"github.com/SAP-F-2025/exam-client/internal/utils"
)

// ChoiceMark is one choice of a reviewed question with its render flags.
type ChoiceMark struct {
	Choice   models.Choice `json:"choice"`
	Selected bool          `json:"selected"`
	Correct  bool          `json:"correct"`
}

// ProjectedItem is a render-ready review question.
type ProjectedItem struct {
	QuestionID    string              `json:"question_id"`
	Sequence      int                 `json:"sequence"`
	Title         string              `json:"title"`
	Body          *string             `json:"body,omitempty"`
	Type          models.QuestionType `json:"type"`
	Choices       []ChoiceMark        `json:"choices,omitempty"`
	AnswerText    string              `json:"answer_text,omitempty"`
	Answered      bool                `json:"answered"`
	FullyCorrect  bool                `json:"fully_correct"`
	AwardedPoints float64             `json:"awarded_points"`
	MaxPoints     float64             `json:"max_points"`
}

type ProjectedReview struct {
	SubmissionID string               `json:"submission_id"`
	ExamID       string               `json:"exam_id"`
	ExamTitle    string               `json:"exam_title"`
	SubmittedAt  time.Time            `json:"submitted_at"`
	TotalScore   float64              `json:"total_score"`
	Summary      models.ReviewSummary `json:"summary"`
	Items        []ProjectedItem      `json:"items"`
}

type Projector struct {
	logger utils.Logger
}

func NewProjector(logger utils.Logger) *Projector {
	return &Projector{logger: logger}
}

// Project converts a raw review into its render-ready form. A missing or
// inconsistent server summary is recomputed from the items instead of
// crashing the page.
func (p *Projector) Project(review *models.Review) *ProjectedReview {
	projected := &ProjectedReview{
		SubmissionID: review.SubmissionID,
		ExamID:       review.ExamID,
		ExamTitle:    review.ExamTitle,
		SubmittedAt:  review.SubmittedAt,
		TotalScore:   review.TotalScore,
		Items:        make([]ProjectedItem, len(review.Items)),
	}

	for i, item := range review.Items {
		projected.Items[i] = projectItem(item)
	}

	projected.Summary = p.resolveSummary(review)
	return projected
}

func projectItem(item models.ReviewItem) ProjectedItem {
	projected := ProjectedItem{
		QuestionID:    item.QuestionID,
		Sequence:      item.Sequence,
		Title:         item.Title,
		Body:          item.Body,
		Type:          item.Type,
		AwardedPoints: item.AwardedPoints,
		MaxPoints:     item.MaxPoints,
		FullyCorrect:  item.MaxPoints > 0 && item.AwardedPoints >= item.MaxPoints,
	}

	if item.Type == models.ShortAnswer {
		// Free-text items carry no choice list, only the student's text.
		if item.StudentAnswer.Text != nil {
			projected.AnswerText = *item.StudentAnswer.Text
			projected.Answered = *item.StudentAnswer.Text != ""
		}
		return projected
	}

	selected := make(map[int]struct{})
	if item.StudentAnswer.SelectedOptionIndexes != nil {
		for _, index := range *item.StudentAnswer.SelectedOptionIndexes {
			selected[index] = struct{}{}
		}
	}
	projected.Answered = len(selected) > 0

	projected.Choices = make([]ChoiceMark, len(item.Choices))
	for i, choice := range item.Choices {
		_, isSelected := selected[choice.Index]
		projected.Choices[i] = ChoiceMark{
			Choice:   choice,
			Selected: isSelected,
			Correct:  choice.IsCorrect,
		}
	}
	return projected
}

// resolveSummary keeps the server's summary when it is coherent and
// recomputes it from the items otherwise.
func (p *Projector) resolveSummary(review *models.Review) models.ReviewSummary {
	if summary := review.Summary; summary != nil && isCoherentSummary(*summary) {
		return *summary
	}

	if review.Summary != nil {
		p.logger.Warn("Server review summary is inconsistent, recomputing from items",
			"submission_id", review.SubmissionID)
	}

	var awarded, max float64
	for _, item := range review.Items {
		awarded += item.AwardedPoints
		max += item.MaxPoints
	}

	summary := models.ReviewSummary{Awarded: awarded, Max: max}
	if max > 0 {
		summary.Percentage = awarded / max * 100
	}
	return summary
}

func isCoherentSummary(summary models.ReviewSummary) bool {
	if summary.Max <= 0 || summary.Awarded < 0 || summary.Awarded > summary.Max {
		return false
	}
	return summary.Percentage >= 0 && summary.Percentage <= 100
}
