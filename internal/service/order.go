package service

import (
	"shop-service/internal/models"

	"github.com/google/uuid"
)

type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *models.OrderStatus
	Limit      int
	Offset     int
}

type PlaceOrderResult struct {
	Order *models.Order
	// Warnings: товары из корзины, которых больше нет в каталоге
	Warnings []string
	Skipped  []uuid.UUID
}

type CheckoutInput struct {
	FirstName   string
	LastName    string
	Phone       string
	AddressID   *uuid.UUID
	Description string
}

type CheckoutView struct {
	Order     *models.Order
	Totals    Totals
	Addresses []models.Address
}

type AddressInput struct {
	State         string
	City          string
	AddressDetail string
	PostalCode    string
}
