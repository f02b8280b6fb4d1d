package service

import (
	"context"
	"time"

	"shop-service/internal/gateway"
	"shop-service/internal/models"
	"shop-service/internal/producer"

	"github.com/google/uuid"
)

type DiscountProvider interface {
	ActivePercent(ctx context.Context, productID uuid.UUID, at time.Time) (int, error)
}

type CouponProvider interface {
	ActiveCoupon(ctx context.Context, code string, at time.Time) (*models.Coupon, error)
}

type PaymentGateway interface {
	Request(ctx context.Context, in gateway.RequestInput) (*gateway.RequestResult, error)
	Verify(ctx context.Context, amount int64, authority string) (*gateway.VerifyResult, error)
	StartPayURL(authority string) string
}

// Mailer ставит письмо пользователю в очередь отправки
type Mailer interface {
	PublishNotification(ctx context.Context, userID uuid.UUID, msg producer.EmailMessage) error
}
