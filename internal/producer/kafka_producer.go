package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	publishTimeout = 5 * time.Second

	HeaderTemplate = "template"
	HeaderUserID   = "user_id"
)

var ErrInvalidMessage = errors.New("email message without recipient or template")

// EmailMessage: письмо для воркера уведомлений; Template без расширения
type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
	UserID   string         `json:"user_id,omitempty"`
	QueuedAt time.Time      `json:"queued_at,omitempty"`
}

// Validate: без адресата или шаблона письмо отправить нельзя
func (m EmailMessage) Validate() error {
	if m.To == "" || m.Template == "" {
		return ErrInvalidMessage
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationProducer ставит письма покупателям в очередь kafka.
// Ключ сообщения: id пользователя, поэтому письма одного покупателя идут в одну партицию по порядку.
type NotificationProducer struct {
	writer messageWriter
	now    func() time.Time
}

func NewNotificationProducer(brokers []string, topic string) *NotificationProducer {
	return newNotificationProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newNotificationProducer(w messageWriter) *NotificationProducer {
	return &NotificationProducer{writer: w, now: time.Now}
}

// PublishNotification проверяет письмо и отправляет его в топик
func (p *NotificationProducer) PublishNotification(ctx context.Context, userID uuid.UUID, msg EmailMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	msg.UserID = userID.String()
	msg.QueuedAt = p.now().UTC()

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email %s: %w", msg.Template, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UserID),
		Value: value,
		Time:  msg.QueuedAt,
		Headers: []kafka.Header{
			{Key: HeaderTemplate, Value: []byte(msg.Template)},
			{Key: HeaderUserID, Value: []byte(msg.UserID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish email %s: %w", msg.Template, err)
	}
	return nil
}

func (p *NotificationProducer) Close() error {
	return p.writer.Close()
}
