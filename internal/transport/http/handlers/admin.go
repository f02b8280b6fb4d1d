package handlers

import (
	"context"
	"net/http"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reportDateLayout = "2006-01-02"

type AdminPaymentHandler struct {
	payments AdminPaymentService
	log      *zap.Logger
}

func NewAdminPaymentHandler(payments AdminPaymentService, log *zap.Logger) *AdminPaymentHandler {
	return &AdminPaymentHandler{payments: payments, log: log}
}

// List godoc
// @Summary Платежи
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param filter query string false "success | failed"
// @Param order_id query string false "ID заказа"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.PaymentListResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Router /api/v1/admin/payments [get]
func (h *AdminPaymentHandler) List(c *gin.Context) {
	q := service.AdminPaymentQuery{
		Filter: service.PaymentFilter(c.Query("filter")),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	oid, err := optionalUUID(c.Query("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid order_id", []dto.FieldError{{Field: "order_id", Message: "must be a uuid"}}))
		return
	}
	q.OrderID = oid
	page, err := h.payments.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Payments(page.Items, page.Total, page.Stats))
}

// Report godoc
// @Summary Отчёт по платежам
// @Description По умолчанию последние 30 дней
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param from query string false "Начало, YYYY-MM-DD"
// @Param to query string false "Конец, YYYY-MM-DD"
// @Success 200 {object} dto.PaymentReportResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/admin/payments/report [get]
func (h *AdminPaymentHandler) Report(c *gin.Context) {
	var from, to time.Time
	var fields []dto.FieldError
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(reportDateLayout, s)
		if err != nil {
			fields = append(fields, dto.FieldError{Field: "from", Message: "expected YYYY-MM-DD"})
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(reportDateLayout, s)
		if err != nil {
			fields = append(fields, dto.FieldError{Field: "to", Message: "expected YYYY-MM-DD"})
		}
		// включительно до конца дня
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid date range", fields))
		return
	}
	rep, err := h.payments.Report(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.PaymentReportResponse{From: rep.From, To: rep.To, Stats: dto.PaymentStats(rep.Stats)})
}

// Toggle godoc
// @Summary Переключить подтверждение платежа
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/admin/payments/{id}/toggle [post]
func (h *AdminPaymentHandler) Toggle(c *gin.Context) {
	h.override(c, h.payments.Toggle)
}

// Verify godoc
// @Summary Подтвердить платёж вручную
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/admin/payments/{id}/verify [post]
func (h *AdminPaymentHandler) Verify(c *gin.Context) {
	h.override(c, h.payments.Verify)
}

// Cancel godoc
// @Summary Отменить платёж вручную
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/admin/payments/{id}/cancel [post]
func (h *AdminPaymentHandler) Cancel(c *gin.Context) {
	h.override(c, h.payments.Cancel)
}

func (h *AdminPaymentHandler) override(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.Payment, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Payment(p))
}

// BulkVerify godoc
// @Summary Подтвердить несколько платежей
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ids body dto.BulkIDsRequest true "ID платежей"
// @Success 200 {object} dto.BulkResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/admin/payments/bulk-verify [post]
func (h *AdminPaymentHandler) BulkVerify(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	n, err := h.payments.BulkVerify(c.Request.Context(), ids)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BulkResponse{Affected: n})
}

// Delete godoc
// @Summary Удалить платёж
// @Description Удаление успешного платежа возвращает заказ в pending
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} dto.BulkResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/admin/payments/{id} [delete]
func (h *AdminPaymentHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.payments.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BulkResponse{Affected: n})
}

// BulkDelete godoc
// @Summary Удалить несколько платежей
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ids body dto.BulkIDsRequest true "ID платежей"
// @Success 200 {object} dto.BulkResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/admin/payments/bulk-delete [post]
func (h *AdminPaymentHandler) BulkDelete(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	n, err := h.payments.Delete(c.Request.Context(), ids...)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BulkResponse{Affected: n})
}

func (h *AdminPaymentHandler) bindIDs(c *gin.Context) ([]uuid.UUID, bool) {
	var req dto.BulkIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid ids", []dto.FieldError{{Field: "ids", Message: "must be uuids"}}))
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
