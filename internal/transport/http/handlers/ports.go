package handlers

import (
	"context"
	"time"

	"shop-service/internal/cart"
	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/google/uuid"
)

type CartService interface {
	Add(ctx context.Context, sid string, in service.AddToCartInput) (cart.Line, error)
	Remove(ctx context.Context, sid string, key cart.LineKey) (bool, error)
	UpdateQuantity(ctx context.Context, sid string, key cart.LineKey, qty int) error
	Clear(ctx context.Context, sid string) error
	Summary(ctx context.Context, sid string) (*service.CartSummary, error)
	Count(ctx context.Context, sid string) (int, error)
}

type DiscountService interface {
	AmazingProducts(ctx context.Context, limit int) ([]service.AmazingProduct, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, sid string) (*service.PlaceOrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f service.ListFilter) ([]*models.Order, int64, error)
	Checkout(ctx context.Context, id uuid.UUID) (*service.CheckoutView, error)
	UpdateCheckout(ctx context.Context, id uuid.UUID, in service.CheckoutInput) (*service.CheckoutView, error)
	ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (*service.CheckoutView, error)
	Invoice(ctx context.Context, id uuid.UUID) (*service.CheckoutView, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	ListAddresses(ctx context.Context) ([]models.Address, error)
	CreateAddress(ctx context.Context, in service.AddressInput) (*models.Address, error)
}

type PaymentService interface {
	RequestPayment(ctx context.Context, sid string, orderID uuid.UUID) (*service.PaymentRequestResult, error)
	VerifyPayment(ctx context.Context, sid, status, authority string) (*service.PaymentVerifyResult, error)
}

type AdminPaymentService interface {
	List(ctx context.Context, q service.AdminPaymentQuery) (*service.PaymentPage, error)
	Report(ctx context.Context, from, to time.Time) (*service.PaymentReport, error)
	Toggle(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Verify(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	BulkVerify(ctx context.Context, ids []uuid.UUID) (int, error)
	Delete(ctx context.Context, ids ...uuid.UUID) (int, error)
}

type NotificationService interface {
	List(ctx context.Context, onlyUnread bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type PaymentObserver interface {
	ObservePaymentOutcome(outcome string)
}
