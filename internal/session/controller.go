// Package session orchestrates one timed exam attempt: fetching the exam
// and starting the submission, holding answer state keyed by question id,
// driving the countdown, and invoking submission exactly once whether the
// trigger is a manual action or timer expiry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-client/internal/codec"
	"github.com/SAP-F-2025/exam-client/internal/countdown"
	"github.com/SAP-F-2025/exam-client/internal/events"
	"github.com/SAP-F-2025/exam-client/internal/gateway"
	"github.com/SAP-F-2025/exam-client/internal/models"
	"github.com/SAP-F-2025/exam-client/internal/utils"
)

type State string

const (
	StateLoading            State = "loading"
	StateReady              State = "ready"
	StateSubmitting         State = "submitting"
	StateTimedOutSubmitting State = "timed_out_submitting"
	StateSubmitted          State = "submitted"
	StateFailed             State = "failed"
)

// IsSubmitting reports whether a submit call currently owns the session.
func (s State) IsSubmitting() bool {
	return s == StateSubmitting || s == StateTimedOutSubmitting
}

type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

const (
	defaultSubmitTimeout    = 30 * time.Second
	defaultTimeWarning      = 300
	defaultAutosaveInterval = 15 * time.Second
)

// Controller is the exam session state machine:
// Loading -> Ready -> Submitting -> {Submitted | Failed}, with
// TimedOutSubmitting as the countdown-triggered flavor of Submitting.
// All session state is guarded by one mutex; the exactly-once submit
// guard is the state itself.
type Controller struct {
	gateway   gateway.SubmissionGateway
	logger    utils.Logger
	validator *utils.Validator
	notifier  Notifier
	publisher events.EventPublisher
	cache     gateway.CacheService
	scheduler countdown.Scheduler

	autosaveInterval time.Duration
	timeWarning      int

	mu           sync.Mutex
	state        State
	exam         *models.Exam
	submissionID string
	answers      map[string]*models.AnswerState
	types        map[string]models.QuestionType
	countdown    *countdown.Countdown
	stopSnapshot func()
	remaining    int
	timed        bool
	result       *models.SubmissionResult
	lastErr      error
}

type Option func(*Controller)

// WithNotifier plugs in the embedder's notification surface.
func WithNotifier(notifier Notifier) Option {
	return func(c *Controller) { c.notifier = notifier }
}

func WithEventPublisher(publisher events.EventPublisher) Option {
	return func(c *Controller) { c.publisher = publisher }
}

// WithSnapshotCache enables periodic answer snapshots, so re-opening the
// same in_progress submission restores unsubmitted work.
func WithSnapshotCache(cache gateway.CacheService) Option {
	return func(c *Controller) { c.cache = cache }
}

func WithScheduler(scheduler countdown.Scheduler) Option {
	return func(c *Controller) { c.scheduler = scheduler }
}

// WithAutosaveInterval overrides the snapshot cadence; zero disables
// autosaving even when a cache is configured.
func WithAutosaveInterval(interval time.Duration) Option {
	return func(c *Controller) { c.autosaveInterval = interval }
}

// WithTimeWarning sets the remaining-seconds mark at which the notifier
// shows a time warning; zero disables it.
func WithTimeWarning(seconds int) Option {
	return func(c *Controller) { c.timeWarning = seconds }
}

func NewController(gw gateway.SubmissionGateway, logger utils.Logger, validator *utils.Validator, opts ...Option) *Controller {
	c := &Controller{
		gateway:          gw,
		logger:           logger,
		validator:        validator,
		scheduler:        countdown.NewTickerScheduler(),
		autosaveInterval: defaultAutosaveInterval,
		timeWarning:      defaultTimeWarning,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = NewLogNotifier(logger)
	}
	return c
}

// ===== LIFECYCLE =====

// Initialize starts (or resumes) a submission for examID, seeds one empty
// answer per question, and starts the countdown when the server returned a
// time limit. On failure the server's error message is surfaced verbatim.
func (c *Controller) Initialize(ctx context.Context, examID string) error {
	c.mu.Lock()
	if c.state != "" {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.state = StateLoading
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Initializing exam session", "exam_id", examID)

	resp, err := c.gateway.Start(ctx, examID)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.lastErr = err
		c.mu.Unlock()

		c.logger.LogError(err, "Failed to start exam session", "exam_id", examID)
		c.notifier.Show(NotifyError, err.Error())
		return err
	}

	answers := make(map[string]*models.AnswerState, len(resp.Exam.Questions))
	types := make(map[string]models.QuestionType, len(resp.Exam.Questions))
	for _, question := range resp.Exam.Questions {
		if question.ID == "" {
			c.logger.Warn("Question carries no usable identifier, skipping",
				"exam_id", examID,
				"sequence", question.Sequence)
			continue
		}
		answers[question.ID] = models.NewAnswerState(question.Type)
		types[question.ID] = question.Type
	}

	resumed := c.restoreSnapshot(ctx, resp.SubmissionID, answers, types)

	// The server's expiry timestamp wins over the nominal duration so a
	// resumed attempt gets the shrunken window, not a fresh one.
	duration := 0
	timed := false
	if resp.ExpiresAt != nil {
		duration = int(time.Until(*resp.ExpiresAt).Seconds())
		timed = true
	} else if resp.DurationSeconds != nil {
		duration = *resp.DurationSeconds
		timed = true
	}
	if timed && duration <= 0 {
		c.logger.Warn("Attempt window already expired at start; the server decides whether a submit is still accepted",
			"submission_id", resp.SubmissionID)
	}
	timed = timed && duration > 0

	cd := countdown.New(c.scheduler)

	c.mu.Lock()
	exam := resp.Exam
	c.exam = &exam
	c.submissionID = resp.SubmissionID
	c.answers = answers
	c.types = types
	c.countdown = cd
	c.remaining = duration
	c.timed = timed
	c.state = StateReady
	c.mu.Unlock()

	if timed {
		if err := cd.Start(duration, c.onTick, c.onExpire); err != nil {
			c.logger.LogError(err, "Failed to start countdown", "submission_id", resp.SubmissionID)
		}
	}
	c.startAutosave()

	c.publish(ctx, events.NewSessionEvent(events.EventSessionStarted, events.SessionStartedEvent{
		SubmissionID:    resp.SubmissionID,
		ExamID:          exam.ID,
		ExamTitle:       exam.Title,
		StartedAt:       resp.StartedAt,
		DurationSeconds: resp.DurationSeconds,
		QuestionCount:   len(exam.Questions),
		Resumed:         resumed,
	}))

	c.logger.InfoContext(ctx, "Exam session ready",
		"exam_id", exam.ID,
		"submission_id", resp.SubmissionID,
		"questions", len(exam.Questions),
		"timed", timed,
		"resumed", resumed)
	return nil
}

func (c *Controller) onTick(remaining int) {
	c.mu.Lock()
	c.remaining = remaining
	warn := c.timeWarning > 0 && remaining == c.timeWarning
	c.mu.Unlock()

	if warn {
		c.notifier.Show(NotifyWarning, fmt.Sprintf("Time remaining: %s", countdown.FormatRemaining(remaining)))
	}
}

func (c *Controller) onExpire() {
	c.logger.Info("Countdown expired, auto-submitting", "submission_id", c.SubmissionID())

	ctx, cancel := context.WithTimeout(context.Background(), defaultSubmitTimeout)
	defer cancel()

	if err := c.Submit(ctx, TriggerTimeout); err != nil {
		c.logger.LogError(err, "Auto-submit on timeout failed", "submission_id", c.SubmissionID())
	}
}

// ===== ANSWER RECORDING =====

// ToggleChoice records a choice selection. Once a submit has begun, stray
// UI events are silently ignored rather than racing the payload.
func (c *Controller) ToggleChoice(questionID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return nil
	}
	state, ok := c.answers[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	return codec.ToggleChoice(state, c.types[questionID], index)
}

// SetText records a short_answer text value, with the same guards as
// ToggleChoice.
func (c *Controller) SetText(questionID string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return nil
	}
	state, ok := c.answers[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	return codec.SetText(state, text)
}

// ===== SUBMISSION =====

// Submit finalizes the session at most once. The first caller - manual or
// timeout - owns the network call; concurrent callers observe the guard
// and back off without touching the wire. After a failure the collected
// answers are retained and a later Submit retries with them.
func (c *Controller) Submit(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	switch {
	case c.state == "" || c.state == StateLoading || c.exam == nil:
		c.mu.Unlock()
		return ErrNotReady
	case c.state.IsSubmitting() || c.state == StateSubmitted:
		c.mu.Unlock()
		c.logger.Debug("Submit already in flight or completed, ignoring trigger", "trigger", trigger)
		return nil
	}

	if trigger == TriggerTimeout {
		c.state = StateTimedOutSubmitting
	} else {
		c.state = StateSubmitting
	}
	submissionID := c.submissionID
	examID := c.exam.ID
	payload := c.encodeAnswersLocked()
	cd := c.countdown
	c.mu.Unlock()

	c.stopAutosave()
	if cd != nil {
		cd.Stop()
	}

	c.logger.InfoContext(ctx, "Submitting exam session",
		"submission_id", submissionID,
		"trigger", trigger,
		"answers_count", len(payload))

	result, err := c.gateway.Submit(ctx, submissionID, &models.SubmitRequest{Answers: payload})
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.lastErr = err
		c.mu.Unlock()

		c.logger.LogError(err, "Exam submission failed",
			"submission_id", submissionID,
			"trigger", trigger)
		c.notifySubmitFailure(err)
		c.publish(ctx, events.NewSessionEvent(events.EventSessionSubmitFailed, events.SessionSubmitFailedEvent{
			SubmissionID: submissionID,
			ExamID:       examID,
			Trigger:      string(trigger),
			Reason:       err.Error(),
			Retryable:    gateway.IsNetwork(err),
		}))
		return err
	}

	c.mu.Lock()
	c.state = StateSubmitted
	c.result = result
	c.lastErr = nil
	c.mu.Unlock()

	c.clearSnapshot(ctx, submissionID)

	if trigger == TriggerTimeout {
		c.notifier.Show(NotifyInfo, "Time is up - your answers were submitted automatically")
		c.publish(ctx, events.NewSessionEvent(events.EventSessionTimedOut, events.SessionTimedOutEvent{
			SubmissionID: submissionID,
			ExamID:       examID,
			ExpiredAt:    time.Now(),
		}))
	} else {
		c.notifier.Show(NotifySuccess, "Your answers were submitted")
	}
	c.publish(ctx, events.NewSessionEvent(events.EventSessionSubmitted, events.SessionSubmittedEvent{
		SubmissionID: submissionID,
		ExamID:       examID,
		Trigger:      string(trigger),
		TotalScore:   result.TotalScore,
		Passed:       result.Result.Passed,
		SubmittedAt:  time.Now(),
	}))

	c.logger.InfoContext(ctx, "Exam session submitted",
		"submission_id", submissionID,
		"trigger", trigger,
		"total_score", result.TotalScore,
		"passed", result.Result.Passed)
	return nil
}

// encodeAnswersLocked serializes every answer in question order, untouched
// ones included, so the server records explicit empty answers rather than
// missing ones. Malformed questions are logged and skipped; they must not
// abort the whole submission.
func (c *Controller) encodeAnswersLocked() []models.QuestionAnswer {
	payload := make([]models.QuestionAnswer, 0, len(c.answers))
	for _, question := range c.exam.Questions {
		state, ok := c.answers[question.ID]
		if !ok {
			continue
		}

		answer, err := codec.Encode(question, state)
		if err != nil {
			if codec.IsMalformedQuestion(err) {
				c.logger.Warn("Skipping malformed question in submission payload",
					"question_id", question.ID,
					"type", question.Type)
			} else {
				c.logger.LogError(err, "Failed to encode answer", "question_id", question.ID)
			}
			continue
		}
		payload = append(payload, models.QuestionAnswer{QuestionID: question.ID, Answer: answer})
	}
	return payload
}

func (c *Controller) notifySubmitFailure(err error) {
	switch {
	case gateway.IsLateSubmission(err):
		c.notifier.Show(NotifyError, "This submission is already closed")
	case gateway.IsNetwork(err):
		c.notifier.Show(NotifyError, "Could not reach the exam service - your answers are kept, try submitting again")
	default:
		c.notifier.Show(NotifyError, err.Error())
	}
}

func (c *Controller) publish(ctx context.Context, event *events.SessionEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishSessionEvent(ctx, event); err != nil {
		c.logger.Warn("Failed to publish session event", "event_type", event.Type, "error", err)
	}
}

// ===== ACCESSORS =====

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SubmissionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submissionID
}

func (c *Controller) Exam() *models.Exam {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exam
}

// Result returns the grading outcome once the session is Submitted.
func (c *Controller) Result() *models.SubmissionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Err returns the error behind a Failed state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// IsTimed reports whether the server supplied a time limit.
func (c *Controller) IsTimed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timed
}

func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// FormattedRemaining renders the clock for display. Untimed sessions get a
// neutral placeholder, not a zeroed clock.
func (c *Controller) FormattedRemaining() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timed {
		return "--:--"
	}
	return countdown.FormatRemaining(c.remaining)
}

// AnswerSnapshot returns a deep copy of the current answer states, keyed
// by question id.
func (c *Controller) AnswerSnapshot() map[string]*models.AnswerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]*models.AnswerState, len(c.answers))
	for questionID, state := range c.answers {
		snapshot[questionID] = state.Clone()
	}
	return snapshot
}
