package service

import (
	"context"
	"time"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderCode  uuid.UUID `json:"order_code"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	ItemsCount int       `json:"items_count"`
	Subtotal   int64     `json:"subtotal"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID          `json:"order_id"`
	OrderCode uuid.UUID          `json:"order_code"`
	UserID    uuid.UUID          `json:"user_id"`
	Email     string             `json:"email,omitempty"`
	OldStatus models.OrderStatus `json:"old_status"`
	NewStatus models.OrderStatus `json:"new_status"`
	ChangedAt time.Time          `json:"changed_at"`
}

type PaymentVerifiedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Amount     int64     `json:"amount"`
	RefID      string    `json:"ref_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

type PaymentFailedEvent struct {
	PaymentID uuid.UUID            `json:"payment_id"`
	OrderID   uuid.UUID            `json:"order_id"`
	UserID    uuid.UUID            `json:"user_id"`
	Email     string               `json:"email,omitempty"`
	Status    models.PaymentStatus `json:"status"`
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	FailedAt  time.Time            `json:"failed_at"`
}

// EventBus получает события после фиксации транзакции; ошибки публикации не влияют на операцию
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishPaymentVerified(ctx context.Context, e PaymentVerifiedEvent) error
	PublishPaymentFailed(ctx context.Context, e PaymentFailedEvent) error
}
