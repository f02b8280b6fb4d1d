package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Brand struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Brand) TableName() string { return "brands" }

type Product struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string     `gorm:"type:text;not null"`
	Slug      string     `gorm:"type:text;not null;uniqueIndex"`
	BrandID   *uuid.UUID `gorm:"type:uuid;index"`
	ImageURL  string     `gorm:"type:text;not null;default:''"`
	IsActive  bool       `gorm:"not null;default:true"`
	CreatedAt time.Time  `gorm:"not null;default:now()"`
	UpdatedAt time.Time  `gorm:"not null;default:now()"`

	SaleTypes []ProductSaleType `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (Product) TableName() string { return "products" }

// Тип продажи: поштучно, коробкой (memberCarton штук), ограниченный тираж
type SaleType int

const (
	SaleTypeSingle  SaleType = 1
	SaleTypeCarton  SaleType = 2
	SaleTypeLimited SaleType = 3
)

func (t SaleType) Valid() bool { return t >= SaleTypeSingle && t <= SaleTypeLimited }

// ProductSaleType: ценовая запись товара. FinalPrice хранит базовую цену без скидки:
// скидки применяются только в корзине и на оформлении заказа.
type ProductSaleType struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TypeSale     SaleType  `gorm:"type:smallint;not null;default:1"`
	Price        int64     `gorm:"not null"`
	MemberCarton int       `gorm:"not null;default:1"`
	LimitedSale  int       `gorm:"not null;default:0"`
	FinalPrice   int64     `gorm:"not null;default:0"`
	Title        string    `gorm:"type:text;not null;default:''"`
	IsActive     bool      `gorm:"not null;default:true;index"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

func (ProductSaleType) TableName() string { return "product_sale_types" }

func (s *ProductSaleType) BeforeSave(*gorm.DB) error {
	s.FinalPrice = s.Price
	return nil
}

// UnitBasePrice: цена одной позиции корзины до скидки
func (s *ProductSaleType) UnitBasePrice() int64 {
	if s.TypeSale == SaleTypeCarton && s.MemberCarton > 0 {
		return s.Price * int64(s.MemberCarton)
	}
	return s.Price
}

type DiscountBasket struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	Discount  int       `gorm:"not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	IsAmazing bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;default:now()"`

	Details []DiscountDetail `gorm:"foreignKey:BasketID;constraint:OnDelete:CASCADE"`
}

func (DiscountBasket) TableName() string { return "discount_baskets" }

// ActiveAt: активна только при isActive и at внутри [start, end]
func (b *DiscountBasket) ActiveAt(at time.Time) bool {
	return b.IsActive && !at.Before(b.StartDate) && !at.After(b.EndDate)
}

type DiscountDetail struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BasketID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_discount_details_basket_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_discount_details_basket_product"`
}

func (DiscountDetail) TableName() string { return "discount_details" }

type Coupon struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string    `gorm:"type:text;not null;uniqueIndex"`
	Discount  int       `gorm:"not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) ActiveAt(at time.Time) bool {
	return c.IsActive && !at.Before(c.StartDate) && !at.After(c.EndDate)
}

type Address struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	State         string    `gorm:"type:text;not null"`
	City          string    `gorm:"type:text;not null"`
	AddressDetail string    `gorm:"type:text;not null"`
	PostalCode    string    `gorm:"type:varchar(10);not null;default:''"`
	CreatedAt     time.Time `gorm:"not null;default:now()"`
}

func (Address) TableName() string { return "addresses" }

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPaid,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// Итоги заказа не хранятся: всегда считаются из позиций и Discount
type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID   `gorm:"type:uuid;not null;index"`
	AddressID   *uuid.UUID  `gorm:"type:uuid"`
	OrderCode   uuid.UUID   `gorm:"type:uuid;not null;default:gen_random_uuid();uniqueIndex"`
	Status      OrderStatus `gorm:"type:text;not null;default:'pending';index"`
	Description string      `gorm:"type:text;not null;default:''"`
	FirstName   string      `gorm:"type:text;not null;default:''"`
	LastName    string      `gorm:"type:text;not null;default:''"`
	Phone       string      `gorm:"type:varchar(20);not null;default:''"`
	Discount    int         `gorm:"not null;default:0"`
	IsFinally   bool        `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Details []OrderDetail `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderDetail: цена фиксируется при создании заказа и больше не меняется
type OrderDetail struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	BrandID         *uuid.UUID `gorm:"type:uuid"`
	SaleTypeID      *uuid.UUID `gorm:"type:uuid"`
	ProductTitle    string     `gorm:"type:text;not null;default:''"`
	Qty             int        `gorm:"type:int;not null"`
	Price           int64      `gorm:"not null"`
	SelectedOptions string     `gorm:"type:text;not null;default:''"`
	CreatedAt       time.Time  `gorm:"not null;default:now()"`
}

func (OrderDetail) TableName() string { return "order_details" }

type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"
	PaymentStatusAwaitingGateway PaymentStatus = "awaiting_gateway"
	PaymentStatusVerified        PaymentStatus = "verified"
	PaymentStatusAlreadyVerified PaymentStatus = "already_verified"
	PaymentStatusCancelled       PaymentStatus = "cancelled"
	PaymentStatusGatewayError    PaymentStatus = "gateway_error"
)

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusVerified, PaymentStatusAlreadyVerified, PaymentStatusCancelled, PaymentStatusGatewayError:
		return true
	}
	return false
}

// Payment: одна попытка оплаты заказа. Amount в риалах.
type Payment struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Amount      int64         `gorm:"not null"`
	Description string        `gorm:"type:text;not null;default:''"`
	Status      PaymentStatus `gorm:"type:text;not null;default:'created';index"`
	StatusCode  string        `gorm:"type:varchar(16);not null;default:''"`
	IsFinaly    bool          `gorm:"not null;default:false"`
	RefID       string        `gorm:"type:text;not null;default:''"`
	Authority   *string       `gorm:"type:text;uniqueIndex"`
	Message     string        `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Payment) TableName() string { return "payments" }

// IsPending: платеж еще ждет ответа шлюза
func (p *Payment) IsPending() bool {
	return !p.IsFinaly && (p.Status == PaymentStatusCreated || p.Status == PaymentStatusAwaitingGateway)
}

type NotificationType string

const (
	NotificationTypeOrder     NotificationType = "order"
	NotificationTypePayment   NotificationType = "payment"
	NotificationTypeSystem    NotificationType = "system"
	NotificationTypePromotion NotificationType = "promotion"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID   *uuid.UUID       `gorm:"type:uuid;index"`
	Title     string           `gorm:"type:text;not null"`
	Message   string           `gorm:"type:text;not null"`
	Type      NotificationType `gorm:"type:text;not null;default:'order'"`
	Icon      string           `gorm:"type:text;not null;default:''"`
	IsRead    bool             `gorm:"not null;default:false"`
	CreatedAt time.Time        `gorm:"not null;default:now();index"`
}

func (Notification) TableName() string { return "notifications" }
