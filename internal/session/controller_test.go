package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-client/internal/countdown"
	apperrors "github.com/SAP-F-2025/exam-client/internal/errors"
	"github.com/SAP-F-2025/exam-client/internal/events"
	"github.com/SAP-F-2025/exam-client/internal/gateway"
	"github.com/SAP-F-2025/exam-client/internal/models"
	"github.com/SAP-F-2025/exam-client/internal/utils"
)

// fakeGateway counts calls and replays canned responses so tests can pin
// down exactly how many times the controller touches the wire.
type fakeGateway struct {
	mu          sync.Mutex
	startResp   *models.StartResponse
	startErr    error
	submitErrs  []error
	submitCalls int
	lastSubmit  *models.SubmitRequest
	submitDelay time.Duration
	result      *models.SubmissionResult
}

func (f *fakeGateway) Start(ctx context.Context, examID string) (*models.StartResponse, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startResp, nil
}

func (f *fakeGateway) Submit(ctx context.Context, submissionID string, req *models.SubmitRequest) (*models.SubmissionResult, error) {
	f.mu.Lock()
	f.submitCalls++
	f.lastSubmit = req
	var err error
	if len(f.submitErrs) > 0 {
		err = f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
	}
	delay := f.submitDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.SubmissionResult{
		SubmissionID: submissionID,
		TotalScore:   7.5,
		Result:       models.ResultSummary{CorrectCount: 2, TotalQuestions: 3, Percentage: 66.7, Passed: true},
	}, nil
}

func (f *fakeGateway) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	return nil, nil
}

func (f *fakeGateway) Review(ctx context.Context, submissionID string) (*models.Review, error) {
	return nil, gateway.ErrSubmissionNotFound
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeGateway) lastRequest() *models.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSubmit
}

func quietSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietLogger() utils.Logger {
	return utils.NewSlogLogger(quietSlog())
}

func testExam() models.Exam {
	return models.Exam{
		ID:    "exam-1",
		Title: "Midterm",
		Questions: []models.Question{
			{
				ID: "q-1", Sequence: 1, Title: "Pick one", Type: models.SingleChoice, Points: 2,
				Choices: []models.Choice{{Index: 0, Text: "A"}, {Index: 1, Text: "B"}, {Index: 2, Text: "C"}},
			},
			{
				ID: "q-2", Sequence: 2, Title: "Pick many", Type: models.MultipleChoice, Points: 3,
				Choices: []models.Choice{{Index: 0, Text: "A"}, {Index: 1, Text: "B"}, {Index: 2, Text: "C"}},
			},
			{ID: "q-3", Sequence: 3, Title: "Explain", Type: models.ShortAnswer, Points: 5},
		},
	}
}

func startResponse(durationSeconds int) *models.StartResponse {
	resp := &models.StartResponse{
		SubmissionID: "sub-1",
		Exam:         testExam(),
		StartedAt:    time.Now(),
	}
	if durationSeconds > 0 {
		resp.DurationSeconds = &durationSeconds
	}
	return resp
}

func eventTypes(mock *events.MockEventPublisher) []events.EventType {
	published := mock.GetPublishedEvents()
	types := make([]events.EventType, len(published))
	for i, event := range published {
		types[i] = event.Type
	}
	return types
}

func TestControllerManualSubmit(t *testing.T) {
	gw := &fakeGateway{startResp: startResponse(1500)}
	notifier := NewRecordingNotifier()
	publisher := events.NewMockEventPublisher(quietSlog())
	scheduler := countdown.NewManualScheduler()

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithEventPublisher(publisher),
		WithScheduler(scheduler),
		WithAutosaveInterval(0))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "sub-1", c.SubmissionID())
	assert.True(t, c.IsTimed())
	assert.Equal(t, 1500, c.RemainingSeconds())
	assert.Equal(t, "25:00", c.FormattedRemaining())

	require.NoError(t, c.ToggleChoice("q-1", 2))

	require.NoError(t, c.Submit(context.Background(), TriggerManual))
	assert.Equal(t, StateSubmitted, c.State())
	assert.Equal(t, 1, gw.calls())
	require.NotNil(t, c.Result())
	assert.Equal(t, 7.5, c.Result().TotalScore)

	// Every question is present in question order, untouched ones as
	// explicit empties.
	req := gw.lastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Answers, 3)
	assert.Equal(t, "q-1", req.Answers[0].QuestionID)
	require.NotNil(t, req.Answers[0].Answer.SelectedOptionIndexes)
	assert.Equal(t, []int{2}, *req.Answers[0].Answer.SelectedOptionIndexes)
	require.NotNil(t, req.Answers[1].Answer.SelectedOptionIndexes)
	assert.Empty(t, *req.Answers[1].Answer.SelectedOptionIndexes)
	require.NotNil(t, req.Answers[2].Answer.Text)
	assert.Equal(t, "", *req.Answers[2].Answer.Text)

	// Submit stops the countdown schedule.
	assert.False(t, scheduler.Active())

	// A second submit is absorbed by the guard without a network call.
	require.NoError(t, c.Submit(context.Background(), TriggerManual))
	assert.Equal(t, 1, gw.calls())

	assert.Equal(t,
		[]events.EventType{events.EventSessionStarted, events.EventSessionSubmitted},
		eventTypes(publisher))

	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifySuccess, notifications[0].Kind)
}

func TestControllerAutoSubmitOnExpiry(t *testing.T) {
	gw := &fakeGateway{startResp: startResponse(2)}
	notifier := NewRecordingNotifier()
	publisher := events.NewMockEventPublisher(quietSlog())
	scheduler := countdown.NewManualScheduler()

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithEventPublisher(publisher),
		WithScheduler(scheduler),
		WithAutosaveInterval(0),
		WithTimeWarning(0))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	assert.Equal(t, 2, c.RemainingSeconds())

	scheduler.Advance(2)
	assert.Equal(t, StateSubmitted, c.State())
	assert.Equal(t, 1, gw.calls())
	assert.Equal(t, "00:00", c.FormattedRemaining())

	// Extra ticks after expiry must not submit again.
	scheduler.Advance(10)
	assert.Equal(t, 1, gw.calls())

	// Nothing was answered, so the payload carries explicit empties.
	req := gw.lastRequest()
	require.Len(t, req.Answers, 3)
	for _, answer := range req.Answers[:2] {
		require.NotNil(t, answer.Answer.SelectedOptionIndexes)
		assert.Empty(t, *answer.Answer.SelectedOptionIndexes)
	}
	require.NotNil(t, req.Answers[2].Answer.Text)
	assert.Equal(t, "", *req.Answers[2].Answer.Text)

	// Recording after the deadline is silently ignored.
	require.NoError(t, c.ToggleChoice("q-1", 1))
	snapshot := c.AnswerSnapshot()
	assert.Empty(t, snapshot["q-1"].SelectedIndexes())

	assert.Equal(t,
		[]events.EventType{events.EventSessionStarted, events.EventSessionTimedOut, events.EventSessionSubmitted},
		eventTypes(publisher))

	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyInfo, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "Time is up")
}

func TestControllerTimeWarning(t *testing.T) {
	gw := &fakeGateway{startResp: startResponse(5)}
	notifier := NewRecordingNotifier()
	scheduler := countdown.NewManualScheduler()

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithScheduler(scheduler),
		WithAutosaveInterval(0),
		WithTimeWarning(3))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))

	scheduler.Advance(1)
	assert.Empty(t, notifier.Notifications())

	scheduler.Advance(1)
	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyWarning, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "00:03")

	// The warning fires once, at the exact mark.
	scheduler.Advance(1)
	assert.Len(t, notifier.Notifications(), 1)
}

func TestControllerSubmitFailureKeepsAnswersForRetry(t *testing.T) {
	apiErr := &gateway.APIError{
		StatusCode: 422,
		Message:    "answer for question q-3 is malformed",
		Details:    apperrors.ValidationErrors{{Field: "answers", Message: "is invalid"}},
	}
	gw := &fakeGateway{startResp: startResponse(0), submitErrs: []error{apiErr}}
	notifier := NewRecordingNotifier()
	publisher := events.NewMockEventPublisher(quietSlog())

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithEventPublisher(publisher),
		WithScheduler(countdown.NewManualScheduler()),
		WithAutosaveInterval(0))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	assert.False(t, c.IsTimed())
	assert.Equal(t, "--:--", c.FormattedRemaining())

	require.NoError(t, c.ToggleChoice("q-2", 0))
	require.NoError(t, c.ToggleChoice("q-2", 2))
	require.NoError(t, c.SetText("q-3", "osmosis"))

	err := c.Submit(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Err(), err)
	assert.Equal(t, 1, gw.calls())

	// The server's message is surfaced verbatim.
	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyError, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "answer for question q-3 is malformed")

	// Answers survive the failure and the retry resubmits them.
	snapshot := c.AnswerSnapshot()
	assert.Equal(t, []int{0, 2}, snapshot["q-2"].SelectedIndexes())
	assert.Equal(t, "osmosis", snapshot["q-3"].Text)

	require.NoError(t, c.Submit(context.Background(), TriggerManual))
	assert.Equal(t, StateSubmitted, c.State())
	assert.Equal(t, 2, gw.calls())

	req := gw.lastRequest()
	require.Len(t, req.Answers, 3)
	assert.Equal(t, []int{0, 2}, *req.Answers[1].Answer.SelectedOptionIndexes)
	assert.Equal(t, "osmosis", *req.Answers[2].Answer.Text)

	types := eventTypes(publisher)
	require.Len(t, types, 3)
	assert.Equal(t, events.EventSessionSubmitFailed, types[1])
	assert.Equal(t, events.EventSessionSubmitted, types[2])

	failed, ok := publisher.GetPublishedEvents()[1].Data.(events.SessionSubmitFailedEvent)
	require.True(t, ok)
	assert.False(t, failed.Retryable)
}

func TestControllerSubmitNetworkFailureNotification(t *testing.T) {
	netErr := &gateway.NetworkError{Op: "POST", URL: "http://exam/submit", Err: errors.New("connection refused")}
	gw := &fakeGateway{startResp: startResponse(0), submitErrs: []error{netErr}}
	notifier := NewRecordingNotifier()
	publisher := events.NewMockEventPublisher(quietSlog())

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithEventPublisher(publisher),
		WithAutosaveInterval(0))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	require.Error(t, c.Submit(context.Background(), TriggerManual))

	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "try submitting again")

	failed, ok := publisher.GetPublishedEvents()[1].Data.(events.SessionSubmitFailedEvent)
	require.True(t, ok)
	assert.True(t, failed.Retryable)
}

func TestControllerConcurrentSubmitHitsWireOnce(t *testing.T) {
	gw := &fakeGateway{startResp: startResponse(0), submitDelay: 20 * time.Millisecond}

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithAutosaveInterval(0))

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Submit(context.Background(), TriggerManual))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, gw.calls())
	assert.Equal(t, StateSubmitted, c.State())
}

func TestControllerGuards(t *testing.T) {
	gw := &fakeGateway{startResp: startResponse(0)}
	c := NewController(gw, quietLogger(), utils.NewValidator(), WithAutosaveInterval(0))

	assert.ErrorIs(t, c.Submit(context.Background(), TriggerManual), ErrNotReady)

	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	assert.ErrorIs(t, c.Initialize(context.Background(), "exam-1"), ErrAlreadyInitialized)

	assert.ErrorIs(t, c.ToggleChoice("nope", 0), ErrUnknownQuestion)
	assert.ErrorIs(t, c.SetText("nope", "x"), ErrUnknownQuestion)

	require.NoError(t, c.Submit(context.Background(), TriggerManual))

	// After submission the recorders become no-ops, unknown ids included.
	assert.NoError(t, c.ToggleChoice("nope", 0))
	assert.NoError(t, c.SetText("q-3", "late"))
	assert.Equal(t, "", c.AnswerSnapshot()["q-3"].Text)
}

func TestControllerInitializeFailure(t *testing.T) {
	startErr := errors.New("exam window has not opened yet")
	gw := &fakeGateway{startErr: startErr}
	notifier := NewRecordingNotifier()

	c := NewController(gw, quietLogger(), utils.NewValidator(),
		WithNotifier(notifier),
		WithAutosaveInterval(0))

	assert.ErrorIs(t, c.Initialize(context.Background(), "exam-1"), startErr)
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Err(), startErr)

	notifications := notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "exam window has not opened yet", notifications[0].Message)

	// A dead session rejects submits instead of panicking on missing state.
	assert.ErrorIs(t, c.Submit(context.Background(), TriggerManual), ErrNotReady)
}

func TestControllerSkipsMalformedQuestionInPayload(t *testing.T) {
	resp := startResponse(0)
	resp.Exam.Questions = append(resp.Exam.Questions, models.Question{
		ID: "q-broken", Sequence: 4, Title: "No choices", Type: models.MultipleChoice,
	})
	gw := &fakeGateway{startResp: resp}

	c := NewController(gw, quietLogger(), utils.NewValidator(), WithAutosaveInterval(0))
	require.NoError(t, c.Initialize(context.Background(), "exam-1"))
	require.NoError(t, c.Submit(context.Background(), TriggerManual))

	req := gw.lastRequest()
	require.Len(t, req.Answers, 3)
	for _, answer := range req.Answers {
		assert.NotEqual(t, "q-broken", answer.QuestionID)
	}
}

func TestControllerSnapshotRestore(t *testing.T) {
	cache := gateway.NewMemoryCache()
	scheduler := countdown.NewManualScheduler()
	publisher := events.NewMockEventPublisher(quietSlog())

	first := NewController(&fakeGateway{startResp: startResponse(0)}, quietLogger(), utils.NewValidator(),
		WithSnapshotCache(cache),
		WithScheduler(scheduler),
		WithEventPublisher(publisher),
		WithAutosaveInterval(time.Second))

	require.NoError(t, first.Initialize(context.Background(), "exam-1"))
	require.NoError(t, first.ToggleChoice("q-1", 1))
	require.NoError(t, first.SetText("q-3", "draft answer"))

	// Untimed session, so the only scheduled job is the autosave loop.
	scheduler.Advance(1)

	types := eventTypes(publisher)
	require.Len(t, types, 2)
	assert.Equal(t, events.EventSessionAnswersSaved, types[1])
	saved, ok := publisher.GetPublishedEvents()[1].Data.(events.SessionAnswersSavedEvent)
	require.True(t, ok)
	assert.Equal(t, 2, saved.AnsweredCount)

	// A fresh controller resuming the same submission picks the draft up.
	second := NewController(&fakeGateway{startResp: startResponse(0)}, quietLogger(), utils.NewValidator(),
		WithSnapshotCache(cache),
		WithScheduler(countdown.NewManualScheduler()),
		WithAutosaveInterval(0))

	require.NoError(t, second.Initialize(context.Background(), "exam-1"))
	snapshot := second.AnswerSnapshot()
	assert.Equal(t, []int{1}, snapshot["q-1"].SelectedIndexes())
	assert.Equal(t, "draft answer", snapshot["q-3"].Text)

	// Submitting clears the snapshot for good.
	require.NoError(t, second.Submit(context.Background(), TriggerManual))
	var stale map[string]models.WireAnswer
	assert.ErrorIs(t, cache.Get(context.Background(), "exam-client:answers:sub-1", &stale), gateway.ErrCacheMiss)
}
