package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"
	"shop-service/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Place godoc
// @Summary Оформить заказ из корзины
// @Description Удалённые из каталога товары пропускаются и попадают в warnings
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.PlaceOrderResponse
// @Failure 400 {object} dto.BadRequestErrorResponse "Корзина пуста"
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /api/v1/orders [post]
func (h *OrderHandler) Place(c *gin.Context) {
	res, err := h.orders.PlaceOrder(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.PlaceOrderResponse{Order: dto.Order(res.Order), Warnings: res.Warnings})
}

// List godoc
// @Summary Список заказов
// @Description Покупатель видит свои заказы, администратор все
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Статус"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.OrderListResponse
// @Failure 400 {object} dto.BadRequestErrorResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /api/v1/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	f := service.ListFilter{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		st := models.OrderStatus(s)
		f.Status = &st
	}
	list, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Orders(list, total))
}

// Get godoc
// @Summary Заказ
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Order(o))
}

// Checkout godoc
// @Summary Страница оформления
// @Description Итоги заказа (налог 9%, скидка по купону) и адреса покупателя
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Заказ уже оплачен"
// @Router /api/v1/orders/{id}/checkout [get]
func (h *OrderHandler) Checkout(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.orders.Checkout(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Checkout(v))
}

// UpdateCheckout godoc
// @Summary Сохранить данные получателя
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param form body dto.CheckoutRequest true "Получатель и адрес"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Заказ оплачен или ожидает ответа шлюза"
// @Router /api/v1/orders/{id}/checkout [post]
func (h *OrderHandler) UpdateCheckout(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	addr, err := optionalUUID(req.AddressID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid address_id", []dto.FieldError{{Field: "address_id", Message: "must be a uuid"}}))
		return
	}
	v, err := h.orders.UpdateCheckout(c.Request.Context(), id, service.CheckoutInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		AddressID:   addr,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Checkout(v))
}

// ApplyCoupon godoc
// @Summary Применить купон
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param coupon body dto.CouponRequest true "Код купона"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 400 {object} dto.BadRequestErrorResponse "Купон недействителен"
// @Failure 409 {object} dto.ConflictErrorResponse "Заказ оплачен или ожидает ответа шлюза"
// @Router /api/v1/orders/{id}/coupon [post]
func (h *OrderHandler) ApplyCoupon(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	v, err := h.orders.ApplyCoupon(c.Request.Context(), id, req.Code)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Checkout(v))
}

// Invoice godoc
// @Summary Счёт по заказу
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/orders/{id}/invoice [get]
func (h *OrderHandler) Invoice(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.orders.Invoice(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Checkout(v))
}

// SetStatus godoc
// @Summary Сменить статус заказа
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param status body dto.OrderStatusRequest true "Новый статус"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} dto.BadRequestErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/admin/orders/{id}/status [patch]
func (h *OrderHandler) SetStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	o, err := h.orders.SetStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Order(o))
}

// ListAddresses godoc
// @Summary Адреса покупателя
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AddressResponse
// @Router /api/v1/addresses [get]
func (h *OrderHandler) ListAddresses(c *gin.Context) {
	list, err := h.orders.ListAddresses(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Addresses(list))
}

// CreateAddress godoc
// @Summary Добавить адрес
// @Tags addresses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param address body dto.AddressRequest true "Адрес"
// @Success 201 {object} dto.AddressResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/addresses [post]
func (h *OrderHandler) CreateAddress(c *gin.Context) {
	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	a, err := h.orders.CreateAddress(c.Request.Context(), service.AddressInput{
		State:         req.State,
		City:          req.City,
		AddressDetail: req.AddressDetail,
		PostalCode:    req.PostalCode,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Address(a))
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
