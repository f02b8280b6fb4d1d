package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shop-service/internal/gateway"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusOK: значение параметра Status в callback шлюза при успешной оплате
const StatusOK = "OK"

type PaymentOutcome string

const (
	OutcomeSuccess         PaymentOutcome = "success"
	OutcomeAlreadyVerified PaymentOutcome = "already_verified"
	OutcomeCancelled       PaymentOutcome = "cancelled"
	OutcomeGatewayError    PaymentOutcome = "gateway_error"
)

func (o PaymentOutcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyVerified
}

type PaymentRequestResult struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	Amount      int64
	Authority   string
	RedirectURL string
}

type PaymentVerifyResult struct {
	Outcome   PaymentOutcome
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Amount    int64
	RefID     string
	Code      int
	Message   string
}

type PaymentService struct {
	repo        *repository.Repository
	store       session.Store
	gw          PaymentGateway
	events      EventBus
	callbackURL string
	log         *zap.Logger
	now         func() time.Time
}

func NewPaymentService(repo *repository.Repository, store session.Store, gw PaymentGateway, events EventBus, callbackURL string, log *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:        repo,
		store:       store,
		gw:          gw,
		events:      events,
		callbackURL: callbackURL,
		log:         log,
		now:         time.Now,
	}
}

// RequestPayment создаёт платёж по итоговой сумме заказа и получает authority у шлюза.
// При ошибке шлюза платёж остаётся в базе со статусом gateway_error.
func (s *PaymentService) RequestPayment(ctx context.Context, sid string, orderID uuid.UUID) (*PaymentRequestResult, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	ord, err := s.repo.Orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if ord.IsFinally {
		return nil, ErrOrderFinalized
	}

	amount := ComputeTotals(ord.Details, ord.Discount).PayableRials()
	if amount <= 0 {
		return nil, ErrEmptyOrder
	}

	p := &models.Payment{
		OrderID:     ord.ID,
		CustomerID:  userID,
		Amount:      amount,
		Description: fmt.Sprintf("پرداخت سفارش %s", ord.OrderCode),
		Status:      models.PaymentStatusCreated,
	}
	if err := s.repo.Payments.Create(ctx, p); err != nil {
		return nil, err
	}

	ref := session.PaymentRef{
		OrderID:   ord.ID,
		PaymentID: p.ID,
		Amount:    amount,
		CreatedAt: s.now(),
	}
	if err := s.store.SavePayment(ctx, sid, ref); err != nil {
		s.log.Warn("payment ref not saved", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}

	res, err := s.gw.Request(ctx, gateway.RequestInput{
		Amount:      amount,
		CallbackURL: s.callbackURL,
		Description: p.Description,
		Email:       EmailFromContext(ctx),
		Mobile:      ord.Phone,
	})
	if err != nil {
		code, msg := gatewayFailure(err)
		s.fail(ctx, sid, p, models.PaymentStatusGatewayError, code, msg, false)
		return nil, err
	}

	if err := s.repo.Payments.SetAuthority(ctx, p.ID, res.Authority); err != nil {
		return nil, err
	}
	ref.Authority = res.Authority
	if err := s.store.SavePayment(ctx, sid, ref); err != nil {
		s.log.Warn("payment ref not updated", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}

	s.log.Info("payment requested",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", ord.ID.String()),
		zap.Int64("amount", amount),
		zap.String("authority", res.Authority))

	return &PaymentRequestResult{
		PaymentID:   p.ID,
		OrderID:     ord.ID,
		Amount:      amount,
		Authority:   res.Authority,
		RedirectURL: s.gw.StartPayURL(res.Authority),
	}, nil
}

// VerifyPayment обрабатывает возврат пользователя со шлюза. Повторный вызов для того же
// authority не меняет состояние: успешный платёж даёт OutcomeAlreadyVerified,
// отменённый или упавший возвращает записанный ранее исход.
func (s *PaymentService) VerifyPayment(ctx context.Context, sid, status, authority string) (*PaymentVerifyResult, error) {
	status = strings.TrimSpace(status)
	authority = strings.TrimSpace(authority)
	if status == "" || authority == "" {
		return nil, ErrInvalidCallback
	}

	p, err := s.resolve(ctx, sid, authority)
	if err != nil {
		return nil, err
	}

	out := &PaymentVerifyResult{PaymentID: p.ID, OrderID: p.OrderID, Amount: p.Amount}

	if p.IsFinaly {
		s.clearRef(ctx, sid)
		out.Outcome = OutcomeAlreadyVerified
		out.RefID = p.RefID
		out.Code = gateway.CodeAlreadyVerified
		s.log.Info("payment already verified", zap.String("payment_id", p.ID.String()))
		return out, nil
	}

	if p.Status == models.PaymentStatusCancelled || p.Status == models.PaymentStatusGatewayError {
		// исход уже записан, повторный callback его не меняет
		s.clearRef(ctx, sid)
		out.Outcome = OutcomeCancelled
		if p.Status == models.PaymentStatusGatewayError {
			out.Outcome = OutcomeGatewayError
		}
		out.Code, _ = strconv.Atoi(p.StatusCode)
		out.Message = p.Message
		s.log.Info("payment already failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("status", string(p.Status)))
		return out, nil
	}

	if status != StatusOK {
		msg := "پرداخت توسط کاربر لغو شد"
		s.fail(ctx, sid, p, models.PaymentStatusCancelled, gateway.CodeCancelled, msg, false)
		out.Outcome = OutcomeCancelled
		out.Code = gateway.CodeCancelled
		out.Message = msg
		return out, nil
	}

	vr, err := s.gw.Verify(ctx, p.Amount, authority)
	if err != nil {
		code, msg := gatewayFailure(err)
		s.fail(ctx, sid, p, models.PaymentStatusGatewayError, code, msg, true)
		out.Outcome = OutcomeGatewayError
		out.Code = code
		out.Message = msg
		return out, nil
	}

	pstatus := models.PaymentStatusVerified
	out.Outcome = OutcomeSuccess
	if vr.Code == gateway.CodeAlreadyVerified {
		pstatus = models.PaymentStatusAlreadyVerified
		out.Outcome = OutcomeAlreadyVerified
	}
	out.Code = vr.Code
	out.RefID = vr.RefID

	var changed bool
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Payments.MarkSucceeded(ctx, p.ID, pstatus, strconv.Itoa(vr.Code), vr.RefID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		changed = true
		return tx.Orders.MarkPaid(ctx, p.OrderID)
	})
	if err != nil {
		return nil, err
	}
	s.clearRef(ctx, sid)

	if !changed {
		// параллельный callback успел раньше
		out.Outcome = OutcomeAlreadyVerified
		s.log.Info("payment verified concurrently", zap.String("payment_id", p.ID.String()))
		return out, nil
	}

	s.log.Info("payment verified",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", p.OrderID.String()),
		zap.Int("code", vr.Code),
		zap.String("ref_id", vr.RefID))

	if s.events != nil {
		_ = s.events.PublishPaymentVerified(ctx, PaymentVerifiedEvent{
			PaymentID:  p.ID,
			OrderID:    p.OrderID,
			UserID:     p.CustomerID,
			Email:      EmailFromContext(ctx),
			Amount:     p.Amount,
			RefID:      vr.RefID,
			VerifiedAt: s.now(),
		})
	}
	return out, nil
}

// resolve ищет платёж по callback: ссылка в сессии, затем authority в базе,
// затем последний незавершённый платёж пользователя без authority.
func (s *PaymentService) resolve(ctx context.Context, sid, authority string) (*models.Payment, error) {
	ref, err := s.store.Payment(ctx, sid)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		s.log.Warn("payment ref lookup failed", zap.Error(err))
	}
	if ref != nil && ref.Authority == authority {
		p, err := s.repo.Payments.GetByID(ctx, ref.PaymentID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	p, err := s.repo.Payments.GetByAuthority(ctx, authority)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	if uid, ok := UserIDFromContext(ctx); ok && uid != uuid.Nil {
		p, err := s.repo.Payments.LatestPendingForUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		if p != nil && (p.Authority == nil || *p.Authority == authority) {
			s.log.Warn("payment resolved by user fallback",
				zap.String("payment_id", p.ID.String()),
				zap.String("authority", authority))
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

// fail переводит платёж в неуспешное конечное состояние; revertOrder возвращает
// нефинализированный заказ в pending в той же транзакции.
func (s *PaymentService) fail(ctx context.Context, sid string, p *models.Payment, st models.PaymentStatus, code int, msg string, revertOrder bool) {
	var changed bool
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Payments.MarkFailed(ctx, p.ID, st, strconv.Itoa(code), msg)
		if err != nil {
			return err
		}
		changed = ok
		if ok && revertOrder {
			_, err = tx.Orders.RevertToPending(ctx, p.OrderID)
		}
		return err
	})
	s.clearRef(ctx, sid)
	if err != nil {
		s.log.Error("payment failure not saved", zap.String("payment_id", p.ID.String()), zap.Error(err))
		return
	}

	if !changed {
		s.log.Info("payment failure skipped, state already final", zap.String("payment_id", p.ID.String()))
		return
	}

	s.log.Warn("payment failed",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", p.OrderID.String()),
		zap.String("status", string(st)),
		zap.Int("code", code),
		zap.String("message", msg))

	if s.events != nil {
		_ = s.events.PublishPaymentFailed(ctx, PaymentFailedEvent{
			PaymentID: p.ID,
			OrderID:   p.OrderID,
			UserID:    p.CustomerID,
			Email:     EmailFromContext(ctx),
			Status:    st,
			Code:      strconv.Itoa(code),
			Message:   msg,
			FailedAt:  s.now(),
		})
	}
}

func (s *PaymentService) clearRef(ctx context.Context, sid string) {
	if sid == "" {
		return
	}
	if err := s.store.ClearPayment(ctx, sid); err != nil {
		s.log.Warn("payment ref not cleared", zap.Error(err))
	}
}

func gatewayFailure(err error) (int, string) {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gerr.Code, gerr.Message
	}
	return gateway.CodeRequestError, err.Error()
}
