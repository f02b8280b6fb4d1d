package dto

import (
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	AddressID   string `json:"address_id"`
	Description string `json:"description"`
}

type CouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type AddressRequest struct {
	State         string `json:"state"`
	City          string `json:"city"`
	AddressDetail string `json:"address_detail"`
	PostalCode    string `json:"postal_code"`
}

type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderDetailResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"product_id"`
	BrandID         *uuid.UUID `json:"brand_id,omitempty"`
	SaleTypeID      *uuid.UUID `json:"sale_type_id,omitempty"`
	ProductTitle    string     `json:"product_title"`
	Qty             int        `json:"qty"`
	Price           int64      `json:"price"`
	Total           int64      `json:"total"`
	SelectedOptions string     `json:"selected_options,omitempty"`
}

type OrderResponse struct {
	ID          uuid.UUID             `json:"id"`
	OrderCode   uuid.UUID             `json:"order_code"`
	CustomerID  uuid.UUID             `json:"customer_id"`
	AddressID   *uuid.UUID            `json:"address_id,omitempty"`
	Status      string                `json:"status"`
	StatusLabel string                `json:"status_label"`
	Description string                `json:"description,omitempty"`
	FirstName   string                `json:"first_name,omitempty"`
	LastName    string                `json:"last_name,omitempty"`
	Phone       string                `json:"phone,omitempty"`
	Discount    int                   `json:"discount"`
	IsFinally   bool                  `json:"is_finally"`
	CreatedAt   time.Time             `json:"created_at"`
	Details     []OrderDetailResponse `json:"details,omitempty"`
}

type PlaceOrderResponse struct {
	Order    OrderResponse `json:"order"`
	Warnings []string      `json:"warnings,omitempty"`
}

type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Total int64           `json:"total"`
}

type AddressResponse struct {
	ID            uuid.UUID `json:"id"`
	State         string    `json:"state"`
	City          string    `json:"city"`
	AddressDetail string    `json:"address_detail"`
	PostalCode    string    `json:"postal_code"`
}

type CheckoutResponse struct {
	Order     OrderResponse     `json:"order"`
	Totals    service.Totals    `json:"totals"`
	Addresses []AddressResponse `json:"addresses,omitempty"`
}

func Order(o *models.Order) OrderResponse {
	out := OrderResponse{
		ID:          o.ID,
		OrderCode:   o.OrderCode,
		CustomerID:  o.CustomerID,
		AddressID:   o.AddressID,
		Status:      string(o.Status),
		StatusLabel: service.StatusLabel(o.Status),
		Description: o.Description,
		FirstName:   o.FirstName,
		LastName:    o.LastName,
		Phone:       o.Phone,
		Discount:    o.Discount,
		IsFinally:   o.IsFinally,
		CreatedAt:   o.CreatedAt,
	}
	for _, d := range o.Details {
		out.Details = append(out.Details, OrderDetailResponse{
			ID:              d.ID,
			ProductID:       d.ProductID,
			BrandID:         d.BrandID,
			SaleTypeID:      d.SaleTypeID,
			ProductTitle:    d.ProductTitle,
			Qty:             d.Qty,
			Price:           d.Price,
			Total:           d.Price * int64(d.Qty),
			SelectedOptions: d.SelectedOptions,
		})
	}
	return out
}

func Orders(list []*models.Order, total int64) OrderListResponse {
	out := OrderListResponse{Items: make([]OrderResponse, 0, len(list)), Total: total}
	for _, o := range list {
		out.Items = append(out.Items, Order(o))
	}
	return out
}

func Address(a *models.Address) AddressResponse {
	return AddressResponse{
		ID:            a.ID,
		State:         a.State,
		City:          a.City,
		AddressDetail: a.AddressDetail,
		PostalCode:    a.PostalCode,
	}
}

func Addresses(list []models.Address) []AddressResponse {
	out := make([]AddressResponse, 0, len(list))
	for i := range list {
		out = append(out, Address(&list[i]))
	}
	return out
}

func Checkout(v *service.CheckoutView) CheckoutResponse {
	return CheckoutResponse{
		Order:     Order(v.Order),
		Totals:    v.Totals,
		Addresses: Addresses(v.Addresses),
	}
}
