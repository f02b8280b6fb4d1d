package handlers

import (
	"net/http"
	"strconv"

	"shop-service/internal/cart"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"
	"shop-service/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts     CartService
	discounts DiscountService
	log       *zap.Logger
}

func NewCartHandler(carts CartService, discounts DiscountService, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, discounts: discounts, log: log}
}

// Get godoc
// @Summary Корзина
// @Description Позиции корзины текущей сессии с итоговой суммой
// @Tags cart
// @Produce json
// @Success 200 {object} service.CartSummary
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	sum, err := h.carts.Summary(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Count godoc
// @Summary Количество позиций в корзине
// @Tags cart
// @Produce json
// @Success 200 {object} dto.CartCountResponse
// @Router /api/v1/cart/count [get]
func (h *CartHandler) Count(c *gin.Context) {
	n, err := h.carts.Count(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartCountResponse{Count: n})
}

// Add godoc
// @Summary Добавить товар в корзину
// @Description Цена и скидка фиксируются при первом добавлении позиции
// @Tags cart
// @Accept json
// @Produce json
// @Param item body dto.AddToCartRequest true "Товар"
// @Success 200 {object} cart.Line
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар или тип продажи не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Превышен лимит продажи"
// @Router /api/v1/cart/add [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	pid, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product_id", []dto.FieldError{{Field: "product_id", Message: "must be a uuid"}}))
		return
	}
	st, err := optionalUUID(req.SaleTypeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid sale_type_id", []dto.FieldError{{Field: "sale_type_id", Message: "must be a uuid"}}))
		return
	}

	line, err := h.carts.Add(c.Request.Context(), middleware.SessionID(c), service.AddToCartInput{
		ProductID:  pid,
		Qty:        req.Qty,
		Detail:     req.Detail,
		SaleTypeID: st,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// Remove godoc
// @Summary Удалить позицию из корзины
// @Tags cart
// @Accept json
// @Produce json
// @Param line body dto.CartLineRequest true "Позиция"
// @Success 200 {object} dto.RemoveFromCartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/cart/remove [post]
func (h *CartHandler) Remove(c *gin.Context) {
	var req dto.CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	key, err := lineKey(req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	removed, err := h.carts.Remove(c.Request.Context(), middleware.SessionID(c), key)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.RemoveFromCartResponse{Removed: removed})
}

// Update godoc
// @Summary Изменить количество
// @Description qty <= 0 удаляет позицию
// @Tags cart
// @Accept json
// @Produce json
// @Param line body dto.CartLineRequest true "Позиция и количество"
// @Success 200 {object} service.CartSummary
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse
// @Router /api/v1/cart/update [post]
func (h *CartHandler) Update(c *gin.Context) {
	var req dto.CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	key, err := lineKey(req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ctx := c.Request.Context()
	sid := middleware.SessionID(c)
	if err := h.carts.UpdateQuantity(ctx, sid, key, req.Qty); err != nil {
		writeError(c, h.log, err)
		return
	}
	sum, err := h.carts.Summary(ctx, sid)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Clear godoc
// @Summary Очистить корзину
// @Tags cart
// @Success 204
// @Router /api/v1/cart/clear [post]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Amazing godoc
// @Summary Товары дня (amazing)
// @Description Товары активных amazing-корзин скидок с исходной и итоговой ценой
// @Tags discounts
// @Produce json
// @Param limit query int false "Максимум товаров" default(20)
// @Success 200 {array} service.AmazingProduct
// @Router /api/v1/discounts/amazing [get]
func (h *CartHandler) Amazing(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	list, err := h.discounts.AmazingProducts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func lineKey(req dto.CartLineRequest) (cart.LineKey, error) {
	if req.Key != "" {
		return cart.ParseLineKey(req.Key)
	}
	pid, err := uuid.Parse(req.ProductID)
	if err != nil {
		return cart.LineKey{}, cart.ErrInvalidKey
	}
	key := cart.LineKey{ProductID: pid, Detail: req.Detail}
	if req.SaleTypeID != "" {
		st, err := uuid.Parse(req.SaleTypeID)
		if err != nil {
			return cart.LineKey{}, cart.ErrInvalidKey
		}
		key.SaleTypeID = st
	}
	return key, nil
}
