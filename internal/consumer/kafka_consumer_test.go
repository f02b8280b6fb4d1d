package consumer

import (
	"encoding/json"
	"errors"
	"testing"

	"shop-service/internal/producer"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []producer.EmailMessage
	err  error
}

func (f *fakeSender) SendEmail(msg producer.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestHandle(t *testing.T) {
	s := &fakeSender{}
	c := &KafkaEmailConsumer{emailSender: s, log: zap.NewNop()}

	value, err := json.Marshal(producer.EmailMessage{
		To: "user@example.com", Subject: "پرداخت موفق", Template: "payment_verified",
		Data: map[string]any{"RefID": "REF1"},
	})
	require.NoError(t, err)

	require.NoError(t, c.handle(value))
	require.Len(t, s.sent, 1)
	require.Equal(t, "REF1", s.sent[0].Data["RefID"])

	require.Error(t, c.handle([]byte("{not json")))
	require.ErrorIs(t, c.handle([]byte(`{"to":"","template":"x"}`)), producer.ErrInvalidMessage)
	require.Len(t, s.sent, 1)
}

func TestHandle_SenderError(t *testing.T) {
	boom := errors.New("smtp down")
	c := &KafkaEmailConsumer{emailSender: &fakeSender{err: boom}, log: zap.NewNop()}
	require.ErrorIs(t, c.handle([]byte(`{"to":"a@b.c","template":"order_status"}`)), boom)
}
