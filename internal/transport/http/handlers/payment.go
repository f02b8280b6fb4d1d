package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"shop-service/internal/gateway"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"
	"shop-service/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	cartPath           = "/cart"
	paymentSuccessPath = "/payment/success"
	paymentFailurePath = "/payment/failure"
)

type PaymentHandler struct {
	payments PaymentService
	observer PaymentObserver
	log      *zap.Logger
}

// observer может быть nil
func NewPaymentHandler(payments PaymentService, observer PaymentObserver, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, observer: observer, log: log}
}

// Request godoc
// @Summary Перейти к оплате
// @Description Создаёт платёж и перенаправляет на шлюз; при ошибке возвращает в корзину с сообщением
// @Tags payment
// @Security BearerAuth
// @Param order_id path string true "ID заказа"
// @Success 302 "Редирект на StartPay шлюза или /cart?error="
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Failure 429 {object} dto.TooManyRequestsErrorResponse
// @Router /payment/request/{order_id} [get]
func (h *PaymentHandler) Request(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		redirect(c, cartPath, "error", "سفارش یافت نشد")
		return
	}
	res, err := h.payments.RequestPayment(c.Request.Context(), middleware.SessionID(c), orderID)
	if err != nil {
		h.log.Warn("payment request failed", zap.String("order_id", orderID.String()), zap.Error(err))
		redirect(c, cartPath, "error", requestErrorMessage(err))
		return
	}
	c.Redirect(http.StatusFound, res.RedirectURL)
}

// Verify godoc
// @Summary Callback шлюза
// @Description Проверяет платёж; повторный callback по уже подтверждённому платежу безопасен
// @Tags payment
// @Param Status query string true "OK или NOK"
// @Param Authority query string true "Authority шлюза"
// @Success 302 "Редирект на /payment/success или /payment/failure"
// @Router /payment/verify [get]
func (h *PaymentHandler) Verify(c *gin.Context) {
	res, err := h.payments.VerifyPayment(c.Request.Context(), middleware.SessionID(c), c.Query("Status"), c.Query("Authority"))
	if err != nil {
		h.log.Warn("payment verify failed", zap.String("authority", c.Query("Authority")), zap.Error(err))
		h.observe("error")
		redirect(c, paymentFailurePath, "message", verifyErrorMessage(err))
		return
	}
	h.observe(string(res.Outcome))
	switch res.Outcome {
	case service.OutcomeSuccess:
		redirect(c, paymentSuccessPath, "message", fmt.Sprintf("پرداخت با موفقیت انجام شد. کد رهگیری: %s", res.RefID))
	case service.OutcomeAlreadyVerified:
		redirect(c, paymentSuccessPath, "message", fmt.Sprintf("این پرداخت قبلا تایید شده است. کد رهگیری: %s", res.RefID))
	default:
		msg := res.Message
		if msg == "" {
			msg = "پرداخت ناموفق بود"
		}
		redirect(c, paymentFailurePath, "message", msg)
	}
}

// Success godoc
// @Summary Результат: оплата прошла
// @Tags payment
// @Produce json
// @Param message query string false "Сообщение"
// @Success 200 {object} dto.PaymentMessageResponse
// @Router /payment/success [get]
func (h *PaymentHandler) Success(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PaymentMessageResponse{Success: true, Message: c.Query("message")})
}

// Failure godoc
// @Summary Результат: оплата не прошла
// @Tags payment
// @Produce json
// @Param message query string false "Сообщение"
// @Success 200 {object} dto.PaymentMessageResponse
// @Router /payment/failure [get]
func (h *PaymentHandler) Failure(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PaymentMessageResponse{Success: false, Message: c.Query("message")})
}

func (h *PaymentHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObservePaymentOutcome(outcome)
	}
}

func redirect(c *gin.Context, path, key, msg string) {
	c.Redirect(http.StatusFound, path+"?"+url.Values{key: {msg}}.Encode())
}

func requestErrorMessage(err error) string {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return "سفارش یافت نشد"
	case errors.Is(err, service.ErrOrderFinalized):
		return "این سفارش قبلا پرداخت شده است"
	case errors.Is(err, service.ErrEmptyOrder):
		return "مبلغ سفارش نامعتبر است"
	case errors.Is(err, service.ErrUnauthorized):
		return "لطفا ابتدا وارد حساب کاربری شوید"
	case errors.As(err, &gwErr):
		return "خطا در اتصال به درگاه پرداخت: " + gwErr.Message
	}
	return "خطا در اتصال به درگاه پرداخت"
}

func verifyErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidCallback):
		return "پارامترهای بازگشت از درگاه نامعتبر است"
	case errors.Is(err, service.ErrPaymentNotFound):
		return "اطلاعات پرداخت یافت نشد"
	}
	return "خطا در بررسی پرداخت"
}
