package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSessionEventEnvelope(t *testing.T) {
	event := NewSessionEvent(EventSessionStarted, SessionStartedEvent{SubmissionID: "sub-1"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventSessionStarted, event.Type)
	assert.Equal(t, "exam-client", event.Source)
	assert.Equal(t, "1.0", event.Version)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
}

func TestGoChannelPublisherRoundTrip(t *testing.T) {
	publisher := NewGoChannelEventPublisher("exam_sessions", quietSlog())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := publisher.Subscribe(ctx)
	require.NoError(t, err)

	sent := NewSessionEvent(EventSessionSubmitted, SessionSubmittedEvent{
		SubmissionID: "sub-1",
		ExamID:       "e-1",
		Trigger:      "manual",
		TotalScore:   9,
		Passed:       true,
	})
	require.NoError(t, publisher.PublishSessionEvent(ctx, sent))

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, sent.ID, msg.UUID)
		assert.Equal(t, string(EventSessionSubmitted), msg.Metadata.Get("event_type"))
		assert.Equal(t, "exam-client", msg.Metadata.Get("source"))

		var received SessionEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &received))
		assert.Equal(t, sent.ID, received.ID)
		assert.Equal(t, EventSessionSubmitted, received.Type)

		data, err := json.Marshal(received.Data)
		require.NoError(t, err)
		var payload SessionSubmittedEvent
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "sub-1", payload.SubmissionID)
		assert.True(t, payload.Passed)
	case <-ctx.Done():
		t.Fatal("no session event received before timeout")
	}
}

func TestMockPublisherRecordsEvents(t *testing.T) {
	mock := NewMockEventPublisher(quietSlog())

	require.NoError(t, mock.PublishSessionEvent(context.Background(), NewSessionEvent(EventSessionStarted, nil)))
	require.NoError(t, mock.PublishSessionEvent(context.Background(), NewSessionEvent(EventSessionTimedOut, nil)))

	published := mock.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, EventSessionStarted, published[0].Type)
	assert.Equal(t, EventSessionTimedOut, published[1].Type)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
	assert.NoError(t, mock.Close())
}
