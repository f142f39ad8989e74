package session

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/exam-client/internal/codec"
	"github.com/SAP-F-2025/exam-client/internal/events"
	"github.com/SAP-F-2025/exam-client/internal/gateway"
	"github.com/SAP-F-2025/exam-client/internal/models"
)

const (
	snapshotTTL     = 24 * time.Hour
	snapshotTimeout = 5 * time.Second
)

func snapshotKey(submissionID string) string {
	return "exam-client:answers:" + submissionID
}

// startAutosave schedules periodic answer snapshots while the session is
// Ready. Snapshots are what make an in_progress submission resumable with
// its unsubmitted work intact.
func (c *Controller) startAutosave() {
	if c.cache == nil || c.autosaveInterval <= 0 {
		return
	}

	cancel := c.scheduler.Schedule(c.autosaveInterval, c.saveSnapshot)
	c.mu.Lock()
	c.stopSnapshot = cancel
	c.mu.Unlock()
}

func (c *Controller) stopAutosave() {
	c.mu.Lock()
	cancel := c.stopSnapshot
	c.stopSnapshot = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Controller) saveSnapshot() {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return
	}

	submissionID := c.submissionID
	snapshot := make(map[string]models.WireAnswer, len(c.answers))
	answered := 0
	for _, question := range c.exam.Questions {
		state, ok := c.answers[question.ID]
		if !ok {
			continue
		}
		wire, err := codec.Encode(question, state)
		if err != nil {
			continue
		}
		snapshot[question.ID] = wire
		if isAnswered(wire) {
			answered++
		}
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	if err := c.cache.Set(ctx, snapshotKey(submissionID), snapshot, snapshotTTL); err != nil {
		c.logger.Warn("Failed to save answer snapshot", "submission_id", submissionID, "error", err)
		return
	}

	c.publish(ctx, events.NewSessionEvent(events.EventSessionAnswersSaved, events.SessionAnswersSavedEvent{
		SubmissionID:  submissionID,
		AnsweredCount: answered,
		SavedAt:       time.Now(),
	}))
}

// restoreSnapshot replays a cached snapshot into the freshly seeded answer
// map. Unknown question ids are dropped: the server's current question set
// wins over whatever the snapshot remembers.
func (c *Controller) restoreSnapshot(ctx context.Context, submissionID string, answers map[string]*models.AnswerState, types map[string]models.QuestionType) bool {
	if c.cache == nil {
		return false
	}

	var snapshot map[string]models.WireAnswer
	if err := c.cache.Get(ctx, snapshotKey(submissionID), &snapshot); err != nil {
		if !errors.Is(err, gateway.ErrCacheMiss) {
			c.logger.Warn("Failed to load answer snapshot", "submission_id", submissionID, "error", err)
		}
		return false
	}

	restored := 0
	for questionID, wire := range snapshot {
		questionType, ok := types[questionID]
		if !ok {
			continue
		}
		state, err := codec.Decode(questionType, wire)
		if err != nil {
			c.logger.Warn("Discarding unreadable answer snapshot entry",
				"submission_id", submissionID,
				"question_id", questionID,
				"error", err)
			continue
		}
		answers[questionID] = state
		restored++
	}

	if restored > 0 {
		c.logger.InfoContext(ctx, "Restored answer snapshot",
			"submission_id", submissionID,
			"restored_answers", restored)
	}
	return restored > 0
}

func (c *Controller) clearSnapshot(ctx context.Context, submissionID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, snapshotKey(submissionID)); err != nil {
		c.logger.Warn("Failed to clear answer snapshot", "submission_id", submissionID, "error", err)
	}
}

func isAnswered(wire models.WireAnswer) bool {
	if wire.SelectedOptionIndexes != nil {
		return len(*wire.SelectedOptionIndexes) > 0
	}
	return wire.Text != nil && *wire.Text != ""
}
