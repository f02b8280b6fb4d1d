package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/producer"
	"shop-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotificationBus_OrderStatusChanged(t *testing.T) {
	db := newMemDB()
	mailer := &MockMailer{}
	bus := service.NewNotificationBus(fakeNotifications{db}, mailer, zap.NewNop())
	user := uuid.New()
	code := uuid.New()

	err := bus.PublishOrderStatusChanged(context.Background(), service.OrderStatusChangedEvent{
		OrderID:   uuid.New(),
		OrderCode: code,
		UserID:    user,
		Email:     "user@example.com",
		OldStatus: models.OrderStatusPending,
		NewStatus: models.OrderStatusShipped,
		ChangedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, db.notifications, 1)
	n := db.notifications[0]
	require.Equal(t, "truck", n.Icon)
	require.Equal(t, "وضعیت سفارش #"+code.String(), n.Title)
	require.Contains(t, n.Message, "ارسال شده")
	require.Equal(t, models.NotificationTypeOrder, n.Type)

	require.Len(t, mailer.sent, 1)
	require.Equal(t, "user@example.com", mailer.sent[0].To)
	require.Equal(t, "order_status", mailer.sent[0].Template)
}

func TestNotificationBus_NoEmailWithoutAddress(t *testing.T) {
	db := newMemDB()
	mailer := &MockMailer{}
	bus := service.NewNotificationBus(fakeNotifications{db}, mailer, zap.NewNop())

	require.NoError(t, bus.PublishOrderCreated(context.Background(), service.OrderCreatedEvent{
		OrderID: uuid.New(), OrderCode: uuid.New(), UserID: uuid.New(),
	}))
	require.Len(t, db.notifications, 1)
	require.Equal(t, "shopping-cart", db.notifications[0].Icon)
	require.Empty(t, mailer.sent)
}

func TestNotificationBus_MailerErrorStillStoresNotification(t *testing.T) {
	db := newMemDB()
	boom := errors.New("kafka down")
	mailer := &MockMailer{PublishFunc: func(context.Context, uuid.UUID, producer.EmailMessage) error { return boom }}
	bus := service.NewNotificationBus(fakeNotifications{db}, mailer, zap.NewNop())

	err := bus.PublishPaymentVerified(context.Background(), service.PaymentVerifiedEvent{
		UserID: uuid.New(), Email: "a@b.c", RefID: "REF1",
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, db.notifications, 1)
	require.Contains(t, db.notifications[0].Message, "REF1")
}

func TestStatusLabel(t *testing.T) {
	require.Equal(t, "در حال بررسی", service.StatusLabel(models.OrderStatusPending))
	require.Equal(t, "unknown", service.StatusLabel("unknown"))
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	db := newMemDB()
	user := uuid.New()
	bus := service.NewNotificationBus(fakeNotifications{db}, nil, zap.NewNop())
	require.NoError(t, bus.PublishOrderCreated(context.Background(), service.OrderCreatedEvent{UserID: user}))

	svc := service.NewNotificationService(fakeNotifications{db})
	ctx := customerCtx(user)
	list, err := svc.List(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID))
	list, err = svc.List(ctx, true, 10)
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, svc.MarkRead(customerCtx(uuid.New()), db.notifications[0].ID), service.ErrNotificationNotFound)
}
