package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-client/internal/models"
)

// The collaborator populates different identifier and casing variants per
// question type. All of them are normalized here, at the gateway boundary,
// so the rest of the engine only ever sees the canonical models.

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func firstInt(values ...*int) (int, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func firstFloat(values ...*float64) (float64, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func parseTime(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
		// Some collaborator rows carry epoch seconds.
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(secs, 0).UTC()
			return &t
		}
	}
	return nil
}

// ===== CHOICES =====

type rawChoice struct {
	Index        *int    `json:"index"`
	OptionIndex  *int    `json:"option_index"`
	Text         string  `json:"text"`
	Label        string  `json:"label"`
	Content      string  `json:"content"`
	IsCorrect    *bool   `json:"is_correct"`
	IsCorrectAlt *bool   `json:"isCorrect"`
	Correct      *bool   `json:"correct"`
}

func (rc rawChoice) normalize(position int) models.Choice {
	choice := models.Choice{Index: position}
	if idx, ok := firstInt(rc.Index, rc.OptionIndex); ok {
		choice.Index = idx
	}

	switch {
	case rc.Text != "":
		choice.Text = rc.Text
	case rc.Label != "":
		choice.Text = rc.Label
	default:
		choice.Text = rc.Content
	}

	for _, correct := range []*bool{rc.IsCorrect, rc.IsCorrectAlt, rc.Correct} {
		if correct != nil {
			choice.IsCorrect = *correct
			break
		}
	}
	return choice
}

func normalizeChoices(primary, fallback []rawChoice) []models.Choice {
	raw := primary
	if len(raw) == 0 {
		raw = fallback
	}
	if len(raw) == 0 {
		return nil
	}

	choices := make([]models.Choice, len(raw))
	for i, rc := range raw {
		choices[i] = rc.normalize(i)
	}
	return choices
}

// ===== QUESTIONS =====

type rawQuestion struct {
	QuestionID     flexString `json:"question_id"`
	ExamQuestionID flexString `json:"exam_question_id"`
	QuestionIDAlt  flexString `json:"questionId"`
	ID             flexString `json:"id"`

	Sequence *int `json:"sequence"`
	Order    *int `json:"order"`

	Title   string  `json:"title"`
	Body    *string `json:"body"`
	Content *string `json:"content"`

	Type    models.QuestionType `json:"type"`
	TypeAlt models.QuestionType `json:"question_type"`

	Points *float64 `json:"points"`
	Score  *float64 `json:"score"`

	Choices []rawChoice `json:"choices"`
	Options []rawChoice `json:"options"`
}

func (rq rawQuestion) normalize(position int) models.Question {
	question := models.Question{
		// Identifier precedence mirrors what the collaborator populates
		// per question type.
		ID:    firstNonEmpty(rq.QuestionID, rq.ExamQuestionID, rq.QuestionIDAlt, rq.ID),
		Title: rq.Title,
	}

	if seq, ok := firstInt(rq.Sequence, rq.Order); ok {
		question.Sequence = seq
	} else {
		question.Sequence = position + 1
	}

	question.Body = rq.Body
	if question.Body == nil {
		question.Body = rq.Content
	}

	question.Type = rq.Type
	if question.Type == "" {
		question.Type = rq.TypeAlt
	}

	if points, ok := firstFloat(rq.Points, rq.Score); ok {
		question.Points = points
	}

	question.Choices = normalizeChoices(rq.Choices, rq.Options)
	return question
}

// ===== EXAM / START =====

type rawExam struct {
	ID          flexString    `json:"id"`
	ExamID      flexString    `json:"exam_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Questions   []rawQuestion `json:"questions"`
}

func (re rawExam) normalize() models.Exam {
	exam := models.Exam{
		ID:          firstNonEmpty(re.ID, re.ExamID),
		Title:       re.Title,
		Description: re.Description,
		Questions:   make([]models.Question, len(re.Questions)),
	}
	for i, rq := range re.Questions {
		exam.Questions[i] = rq.normalize(i)
	}
	return exam
}

type rawStartResponse struct {
	SubmissionID    flexString `json:"submissionId"`
	SubmissionIDAlt flexString `json:"submission_id"`
	ID              flexString `json:"id"`

	Exam rawExam `json:"exam"`

	StartedAt    string `json:"startedAt"`
	StartedAtAlt string `json:"started_at"`

	DurationSeconds    *int `json:"durationSeconds"`
	DurationSecondsAlt *int `json:"duration_seconds"`

	ExpiresAt    string `json:"expiresAt"`
	ExpiresAtAlt string `json:"expires_at"`
}

func (rs rawStartResponse) normalize() *models.StartResponse {
	resp := &models.StartResponse{
		SubmissionID: firstNonEmpty(rs.SubmissionID, rs.SubmissionIDAlt, rs.ID),
		Exam:         rs.Exam.normalize(),
		ExpiresAt:    parseTime(rs.ExpiresAt, rs.ExpiresAtAlt),
	}
	if started := parseTime(rs.StartedAt, rs.StartedAtAlt); started != nil {
		resp.StartedAt = *started
	}
	if duration, ok := firstInt(rs.DurationSeconds, rs.DurationSecondsAlt); ok {
		resp.DurationSeconds = &duration
	}
	return resp
}

// ===== SUBMISSIONS =====

type rawSubmission struct {
	SubmissionID    flexString `json:"submissionId"`
	SubmissionIDAlt flexString `json:"submission_id"`
	ID              flexString `json:"id"`

	ExamID    flexString `json:"examId"`
	ExamIDAlt flexString `json:"exam_id"`

	ExamTitle    string `json:"examTitle"`
	ExamTitleAlt string `json:"exam_title"`

	StartedAt    string `json:"startedAt"`
	StartedAtAlt string `json:"started_at"`

	ExpiresAt    string `json:"expiresAt"`
	ExpiresAtAlt string `json:"expires_at"`

	SubmittedAt    string `json:"submittedAt"`
	SubmittedAtAlt string `json:"submitted_at"`

	Status models.SubmissionStatus `json:"status"`

	TotalScore    *float64 `json:"totalScore"`
	TotalScoreAlt *float64 `json:"total_score"`
}

func (rs rawSubmission) normalize() models.Submission {
	submission := models.Submission{
		SubmissionID: firstNonEmpty(rs.SubmissionID, rs.SubmissionIDAlt, rs.ID),
		ExamID:       firstNonEmpty(rs.ExamID, rs.ExamIDAlt),
		Status:       rs.Status,
		ExpiresAt:    parseTime(rs.ExpiresAt, rs.ExpiresAtAlt),
		SubmittedAt:  parseTime(rs.SubmittedAt, rs.SubmittedAtAlt),
	}

	submission.ExamTitle = rs.ExamTitle
	if submission.ExamTitle == "" {
		submission.ExamTitle = rs.ExamTitleAlt
	}

	if started := parseTime(rs.StartedAt, rs.StartedAtAlt); started != nil {
		submission.StartedAt = *started
	}
	if score, ok := firstFloat(rs.TotalScore, rs.TotalScoreAlt); ok {
		submission.TotalScore = &score
	}
	return submission
}

// ===== REVIEW =====

type rawReviewItem struct {
	QuestionID     flexString `json:"question_id"`
	ExamQuestionID flexString `json:"exam_question_id"`
	QuestionIDAlt  flexString `json:"questionId"`
	ID             flexString `json:"id"`

	Sequence *int `json:"sequence"`
	Order    *int `json:"order"`

	Title string  `json:"title"`
	Body  *string `json:"body"`

	Type    models.QuestionType `json:"type"`
	TypeAlt models.QuestionType `json:"question_type"`

	Choices []rawChoice `json:"choices"`
	Options []rawChoice `json:"options"`

	StudentAnswer    *models.WireAnswer `json:"studentAnswer"`
	StudentAnswerAlt *models.WireAnswer `json:"student_answer"`
	Answer           *models.WireAnswer `json:"answer"`

	AwardedPoints    *float64 `json:"awardedPoints"`
	AwardedPointsAlt *float64 `json:"awarded_points"`
	ScoreAlt         *float64 `json:"score"`

	MaxPoints    *float64 `json:"maxPoints"`
	MaxPointsAlt *float64 `json:"max_points"`
	PointsAlt    *float64 `json:"points"`
}

func (ri rawReviewItem) normalize(position int) models.ReviewItem {
	item := models.ReviewItem{
		QuestionID: firstNonEmpty(ri.QuestionID, ri.ExamQuestionID, ri.QuestionIDAlt, ri.ID),
		Title:      ri.Title,
		Body:       ri.Body,
	}

	if seq, ok := firstInt(ri.Sequence, ri.Order); ok {
		item.Sequence = seq
	} else {
		item.Sequence = position + 1
	}

	item.Type = ri.Type
	if item.Type == "" {
		item.Type = ri.TypeAlt
	}

	item.Choices = normalizeChoices(ri.Choices, ri.Options)

	for _, answer := range []*models.WireAnswer{ri.StudentAnswer, ri.StudentAnswerAlt, ri.Answer} {
		if answer != nil {
			item.StudentAnswer = *answer
			break
		}
	}

	if awarded, ok := firstFloat(ri.AwardedPoints, ri.AwardedPointsAlt, ri.ScoreAlt); ok {
		item.AwardedPoints = awarded
	}
	if max, ok := firstFloat(ri.MaxPoints, ri.MaxPointsAlt, ri.PointsAlt); ok {
		item.MaxPoints = max
	}
	return item
}

type rawReview struct {
	SubmissionID    flexString `json:"submissionId"`
	SubmissionIDAlt flexString `json:"submission_id"`

	ExamID    flexString `json:"examId"`
	ExamIDAlt flexString `json:"exam_id"`

	ExamTitle    string `json:"examTitle"`
	ExamTitleAlt string `json:"exam_title"`

	TotalScore    *float64 `json:"totalScore"`
	TotalScoreAlt *float64 `json:"total_score"`

	SubmittedAt    string `json:"submittedAt"`
	SubmittedAtAlt string `json:"submitted_at"`

	Summary *models.ReviewSummary `json:"summary"`
	Items   []rawReviewItem       `json:"items"`
}

func (rr rawReview) normalize() *models.Review {
	review := &models.Review{
		SubmissionID: firstNonEmpty(rr.SubmissionID, rr.SubmissionIDAlt),
		ExamID:       firstNonEmpty(rr.ExamID, rr.ExamIDAlt),
		Summary:      rr.Summary,
		Items:        make([]models.ReviewItem, len(rr.Items)),
	}

	review.ExamTitle = rr.ExamTitle
	if review.ExamTitle == "" {
		review.ExamTitle = rr.ExamTitleAlt
	}

	if score, ok := firstFloat(rr.TotalScore, rr.TotalScoreAlt); ok {
		review.TotalScore = score
	}
	if submitted := parseTime(rr.SubmittedAt, rr.SubmittedAtAlt); submitted != nil {
		review.SubmittedAt = *submitted
	}

	for i, ri := range rr.Items {
		review.Items[i] = ri.normalize(i)
	}
	return review
}

// ===== RESULT =====

type rawSubmissionResult struct {
	SubmissionID    flexString `json:"submissionId"`
	SubmissionIDAlt flexString `json:"submission_id"`

	TotalScore    *float64 `json:"totalScore"`
	TotalScoreAlt *float64 `json:"total_score"`

	Result models.ResultSummary `json:"result"`
}

func (rr rawSubmissionResult) normalize() *models.SubmissionResult {
	result := &models.SubmissionResult{
		SubmissionID: firstNonEmpty(rr.SubmissionID, rr.SubmissionIDAlt),
		Result:       rr.Result,
	}
	if score, ok := firstFloat(rr.TotalScore, rr.TotalScoreAlt); ok {
		result.TotalScore = score
	}
	return result
}
