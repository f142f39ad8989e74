package models

type QuestionType string

const (
	SingleChoice      QuestionType = "single_choice"
	MultipleChoice    QuestionType = "multiple_choice"
	TrueFalse         QuestionType = "true_false"
	TrueFalseNotGiven QuestionType = "true_false_not_given"
	ShortAnswer       QuestionType = "short_answer"
	ImageChoice       QuestionType = "image_choice"
	AudioChoice       QuestionType = "audio_choice"
)

// IsChoiceBased reports whether answers for this type are selected choice
// indexes rather than free text.
func (t QuestionType) IsChoiceBased() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, TrueFalseNotGiven, ImageChoice, AudioChoice:
		return true
	}
	return false
}

// AllowsMultiple reports whether more than one choice may be selected at once.
func (t QuestionType) AllowsMultiple() bool {
	return t == MultipleChoice
}

func (t QuestionType) IsValid() bool {
	return t == ShortAnswer || t.IsChoiceBased()
}

// Choice is one selectable option of a choice-based question. IsCorrect is
// only ever populated inside a post-submission review, never during an
// active attempt.
type Choice struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID       string       `json:"id"`
	Sequence int          `json:"sequence"`
	Title    string       `json:"title" validate:"required"`
	Body     *string      `json:"body,omitempty"`
	Type     QuestionType `json:"type" validate:"required,question_type"`
	Points   float64      `json:"points"`
	Choices  []Choice     `json:"choices,omitempty"`
}

// Exam is the read-only snapshot returned by the start call. The server is
// the source of truth for the exact question set and order.
type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}
