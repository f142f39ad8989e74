package models

import "sort"

type AnswerKind string

const (
	AnswerKindIndices AnswerKind = "indices"
	AnswerKindText    AnswerKind = "text"
)

// AnswerState is the client-local answer for one question. Choice-based
// question types hold a set of selected indexes; short_answer holds text.
// It is mutated only while a session is in the Ready state.
type AnswerState struct {
	Kind     AnswerKind
	Selected map[int]struct{}
	Text     string
}

// NewAnswerState returns the empty answer for a question of the given type.
func NewAnswerState(t QuestionType) *AnswerState {
	if t == ShortAnswer {
		return &AnswerState{Kind: AnswerKindText}
	}
	return &AnswerState{Kind: AnswerKindIndices, Selected: make(map[int]struct{})}
}

// SelectedIndexes returns the selected choice indexes in ascending order.
// The result is never nil for an indices answer.
func (s *AnswerState) SelectedIndexes() []int {
	indexes := make([]int, 0, len(s.Selected))
	for idx := range s.Selected {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}

func (s *AnswerState) Clone() *AnswerState {
	clone := &AnswerState{Kind: s.Kind, Text: s.Text}
	if s.Selected != nil {
		clone.Selected = make(map[int]struct{}, len(s.Selected))
		for idx := range s.Selected {
			clone.Selected[idx] = struct{}{}
		}
	}
	return clone
}

// WireAnswer is the uniform answer envelope consumed by the grading
// collaborator. Exactly one of the two fields is set: choice-based answers
// always carry selectedOptionIndexes (empty array when nothing is selected,
// never omitted), short_answer always carries text.
type WireAnswer struct {
	SelectedOptionIndexes *[]int  `json:"selectedOptionIndexes,omitempty"`
	Text                  *string `json:"text,omitempty"`
}

// QuestionAnswer pairs a question id with its wire answer for submission.
type QuestionAnswer struct {
	QuestionID string     `json:"questionId" validate:"required"`
	Answer     WireAnswer `json:"answer"`
}
