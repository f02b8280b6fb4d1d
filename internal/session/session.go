package session

import (
	"context"
	"errors"
	"time"

	"shop-service/internal/cart"

	"github.com/google/uuid"
)

var (
	ErrConflict  = errors.New("session: concurrent update conflict")
	ErrNoSession = errors.New("session: empty session id")
)

// PaymentRef связывает callback шлюза (который несёт только authority) с платежом
type PaymentRef struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Authority string    `json:"authority,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store: хранилище данных сессии покупателя.
// Все изменения корзины идут через UpdateCart: загрузка, изменение и запись одним шагом.
type Store interface {
	LoadCart(ctx context.Context, sid string) (*cart.Cart, error)
	UpdateCart(ctx context.Context, sid string, fn func(c *cart.Cart) error) (*cart.Cart, error)

	SavePayment(ctx context.Context, sid string, ref PaymentRef) error
	// Payment возвращает nil, nil если ссылки нет или она истекла
	Payment(ctx context.Context, sid string) (*PaymentRef, error)
	ClearPayment(ctx context.Context, sid string) error
}
