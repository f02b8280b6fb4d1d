package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB            *gorm.DB
	Products      ProductRepo
	SaleTypes     SaleTypeRepo
	Discounts     DiscountRepo
	Addresses     AddressRepo
	Orders        OrderRepo
	OrderDetails  OrderDetailRepo
	Payments      PaymentRepo
	Notifications NotificationRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		Products:      NewProductRepo(db),
		SaleTypes:     NewSaleTypeRepo(db),
		Discounts:     NewDiscountRepo(db),
		Addresses:     NewAddressRepo(db),
		Orders:        NewOrderRepo(db),
		OrderDetails:  NewOrderDetailRepo(db),
		Payments:      NewPaymentRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо.
// Без DB (репозитории собраны вручную из заглушек) fn выполняется как есть.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.DB == nil {
		return fn(r)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
