// Package codec maps client-local answer state onto the uniform wire answer
// envelope consumed by the grading collaborator, and back. It is pure and
// performs no I/O.
package codec

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-client/internal/models"
)

var (
	ErrNotChoiceAnswer = errors.New("answer state does not hold choice indexes")
	ErrNotTextAnswer   = errors.New("answer state does not hold text")
	ErrNegativeIndex   = errors.New("choice index must not be negative")
)

// MalformedQuestionError marks a data-integrity violation: a choice-based
// question that arrived without choices. It is fatal for that question only;
// the session controller logs it and skips the question from the payload.
type MalformedQuestionError struct {
	QuestionID string
	Type       models.QuestionType
}

func (e *MalformedQuestionError) Error() string {
	return fmt.Sprintf("malformed question %s: type %s has no choices", e.QuestionID, e.Type)
}

// IsMalformedQuestion checks if error represents a malformed question
func IsMalformedQuestion(err error) bool {
	var mqe *MalformedQuestionError
	return errors.As(err, &mqe)
}

// ToggleChoice records a choice selection on state. Single-selection types
// replace the current selection with index; multiple_choice flips the
// membership of index, so toggling the same index twice restores the
// original state.
func ToggleChoice(state *models.AnswerState, questionType models.QuestionType, index int) error {
	if state.Kind != models.AnswerKindIndices {
		return ErrNotChoiceAnswer
	}
	if index < 0 {
		return ErrNegativeIndex
	}

	if questionType.AllowsMultiple() {
		if _, selected := state.Selected[index]; selected {
			delete(state.Selected, index)
		} else {
			state.Selected[index] = struct{}{}
		}
		return nil
	}

	// Single-selection types hold at most one index.
	for idx := range state.Selected {
		delete(state.Selected, idx)
	}
	state.Selected[index] = struct{}{}
	return nil
}

// SetText replaces the free-text value. Only valid for short_answer states.
func SetText(state *models.AnswerState, text string) error {
	if state.Kind != models.AnswerKindText {
		return ErrNotTextAnswer
	}
	state.Text = text
	return nil
}

// Encode converts the answer state for question into its wire shape.
// Choice-based types always emit selectedOptionIndexes sorted ascending
// (an empty array when nothing is selected, never omitted); short_answer
// always emits text (empty string if untouched). A uniform envelope lets
// the grading collaborator dispatch on question type without special-casing
// missing fields.
func Encode(question models.Question, state *models.AnswerState) (models.WireAnswer, error) {
	if question.Type == models.ShortAnswer {
		if state.Kind != models.AnswerKindText {
			return models.WireAnswer{}, ErrNotTextAnswer
		}
		text := state.Text
		return models.WireAnswer{Text: &text}, nil
	}

	if len(question.Choices) == 0 {
		return models.WireAnswer{}, &MalformedQuestionError{QuestionID: question.ID, Type: question.Type}
	}
	if state.Kind != models.AnswerKindIndices {
		return models.WireAnswer{}, ErrNotChoiceAnswer
	}

	indexes := state.SelectedIndexes()
	return models.WireAnswer{SelectedOptionIndexes: &indexes}, nil
}

// Decode rebuilds the client-local answer state from a wire answer, e.g.
// when restoring a resumable session snapshot.
func Decode(questionType models.QuestionType, answer models.WireAnswer) (*models.AnswerState, error) {
	state := models.NewAnswerState(questionType)

	if questionType == models.ShortAnswer {
		if answer.Text != nil {
			state.Text = *answer.Text
		}
		return state, nil
	}

	if answer.SelectedOptionIndexes == nil {
		return state, nil
	}
	for _, index := range *answer.SelectedOptionIndexes {
		if index < 0 {
			return nil, ErrNegativeIndex
		}
		state.Selected[index] = struct{}{}
	}
	return state, nil
}
