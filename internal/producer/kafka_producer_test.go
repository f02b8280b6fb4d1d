package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishNotification_KeyedByUser(t *testing.T) {
	w := &fakeWriter{}
	p := newNotificationProducer(w)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }
	userID := uuid.New()

	err := p.PublishNotification(context.Background(), userID, EmailMessage{
		To:       "user@example.com",
		Subject:  "پرداخت موفق",
		Template: "payment_verified",
		Data:     map[string]any{"RefID": "REF1"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	require.Equal(t, userID.String(), string(m.Key))
	require.Equal(t, at, m.Time)
	require.Equal(t, []kafka.Header{
		{Key: HeaderTemplate, Value: []byte("payment_verified")},
		{Key: HeaderUserID, Value: []byte(userID.String())},
	}, m.Headers)

	var got EmailMessage
	require.NoError(t, json.Unmarshal(m.Value, &got))
	require.Equal(t, "user@example.com", got.To)
	require.Equal(t, userID.String(), got.UserID)
	require.Equal(t, "REF1", got.Data["RefID"])
	require.True(t, got.QueuedAt.Equal(at))
}

func TestPublishNotification_RejectsIncompleteMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newNotificationProducer(w)

	err := p.PublishNotification(context.Background(), uuid.New(), EmailMessage{Template: "order_created"})
	require.ErrorIs(t, err, ErrInvalidMessage)
	err = p.PublishNotification(context.Background(), uuid.New(), EmailMessage{To: "user@example.com"})
	require.ErrorIs(t, err, ErrInvalidMessage)
	require.Empty(t, w.msgs)
}

func TestPublishNotification_WrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := newNotificationProducer(&fakeWriter{err: boom})

	err := p.PublishNotification(context.Background(), uuid.New(), EmailMessage{To: "a@b.c", Template: "order_status"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "order_status")
}
