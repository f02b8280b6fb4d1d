package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"shop-service/internal/models"
	"shop-service/internal/producer"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var statusLabels = map[models.OrderStatus]string{
	models.OrderStatusPending:    "در حال بررسی",
	models.OrderStatusProcessing: "در حال پردازش",
	models.OrderStatusPaid:       "پرداخت شده",
	models.OrderStatusShipped:    "ارسال شده",
	models.OrderStatusDelivered:  "تحویل داده شده",
	models.OrderStatusCanceled:   "لغو شده",
}

var statusIcons = map[models.OrderStatus]string{
	models.OrderStatusPending:    "clock",
	models.OrderStatusProcessing: "settings",
	models.OrderStatusShipped:    "truck",
	models.OrderStatusDelivered:  "check-circle",
	models.OrderStatusCanceled:   "x-circle",
}

func StatusLabel(s models.OrderStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func statusIcon(s models.OrderStatus) string {
	if i, ok := statusIcons[s]; ok {
		return i
	}
	return "bell"
}

// NotificationBus реализует EventBus: пишет уведомление пользователю и отправляет письмо,
// если известен адрес. Ошибки логируются здесь же.
type NotificationBus struct {
	repo   repository.NotificationRepo
	mailer Mailer
	log    *zap.Logger
}

func NewNotificationBus(repo repository.NotificationRepo, mailer Mailer, log *zap.Logger) *NotificationBus {
	return &NotificationBus{repo: repo, mailer: mailer, log: log}
}

func (b *NotificationBus) PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error {
	code := e.OrderCode.String()
	return b.deliver(ctx, e.UserID, &e.OrderID, notice{
		kind:    models.NotificationTypeOrder,
		title:   "سفارش جدید ثبت شد",
		message: fmt.Sprintf("سفارش شما با کد پیگیری #%s با موفقیت ثبت شد.", code),
		icon:    "shopping-cart",
	}, e.Email, producer.EmailMessage{
		Subject:  "سفارش جدید ثبت شد",
		Template: "order_created",
		Data: map[string]any{
			"OrderCode":  code,
			"ItemsCount": e.ItemsCount,
			"Subtotal":   e.Subtotal,
		},
	})
}

func (b *NotificationBus) PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error {
	code := e.OrderCode.String()
	label := StatusLabel(e.NewStatus)
	return b.deliver(ctx, e.UserID, &e.OrderID, notice{
		kind:    models.NotificationTypeOrder,
		title:   fmt.Sprintf("وضعیت سفارش #%s", code),
		message: fmt.Sprintf("وضعیت سفارش شما به '%s' تغییر کرد.", label),
		icon:    statusIcon(e.NewStatus),
	}, e.Email, producer.EmailMessage{
		Subject:  fmt.Sprintf("وضعیت سفارش #%s", code),
		Template: "order_status",
		Data: map[string]any{
			"OrderCode": code,
			"OldStatus": StatusLabel(e.OldStatus),
			"NewStatus": label,
		},
	})
}

func (b *NotificationBus) PublishPaymentVerified(ctx context.Context, e PaymentVerifiedEvent) error {
	return b.deliver(ctx, e.UserID, &e.OrderID, notice{
		kind:    models.NotificationTypePayment,
		title:   "پرداخت موفق",
		message: fmt.Sprintf("پرداخت شما با کد رهگیری %s با موفقیت انجام شد.", e.RefID),
		icon:    "credit-card",
	}, e.Email, producer.EmailMessage{
		Subject:  "پرداخت موفق",
		Template: "payment_verified",
		Data: map[string]any{
			"RefID":  e.RefID,
			"Amount": strconv.FormatInt(e.Amount, 10),
		},
	})
}

func (b *NotificationBus) PublishPaymentFailed(ctx context.Context, e PaymentFailedEvent) error {
	return b.deliver(ctx, e.UserID, &e.OrderID, notice{
		kind:    models.NotificationTypePayment,
		title:   "پرداخت ناموفق",
		message: e.Message,
		icon:    "x-circle",
	}, e.Email, producer.EmailMessage{
		Subject:  "پرداخت ناموفق",
		Template: "payment_failed",
		Data: map[string]any{
			"Code":    e.Code,
			"Message": e.Message,
		},
	})
}

type notice struct {
	kind    models.NotificationType
	title   string
	message string
	icon    string
}

func (b *NotificationBus) deliver(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, n notice, email string, msg producer.EmailMessage) error {
	var errs []error
	if b.repo != nil {
		err := b.repo.Create(ctx, &models.Notification{
			UserID:  userID,
			OrderID: orderID,
			Title:   n.title,
			Message: n.message,
			Type:    n.kind,
			Icon:    n.icon,
		})
		if err != nil {
			b.log.Warn("notification not saved", zap.String("user_id", userID.String()), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if b.mailer != nil && email != "" {
		msg.To = email
		if err := b.mailer.PublishNotification(ctx, userID, msg); err != nil {
			b.log.Warn("email not queued",
				zap.String("user_id", userID.String()),
				zap.String("template", msg.Template),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService: лента уведомлений текущего пользователя
type NotificationService struct {
	repo repository.NotificationRepo
}

func NewNotificationService(repo repository.NotificationRepo) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, onlyUnread bool, limit int) ([]models.Notification, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID, onlyUnread, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}
