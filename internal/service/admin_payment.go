package service

import (
	"context"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// коды, которые проставляет администратор вручную
	AdminCodeVerified  = "200"
	AdminCodeCancelled = "400"

	defaultReportWindow = 30 * 24 * time.Hour
)

type PaymentFilter string

const (
	PaymentFilterAll     PaymentFilter = ""
	PaymentFilterSuccess PaymentFilter = "success"
	PaymentFilterFailed  PaymentFilter = "failed"
)

type AdminPaymentQuery struct {
	Filter  PaymentFilter
	OrderID *uuid.UUID
	Limit   int
	Offset  int
}

type PaymentPage struct {
	Items []*models.Payment
	Total int64
	Stats repository.PaymentStats
}

type PaymentReport struct {
	From  time.Time
	To    time.Time
	Stats repository.PaymentStats
}

// AdminPaymentService: ручное управление платежами из админки, без обращения к шлюзу
type AdminPaymentService struct {
	repo   *repository.Repository
	events EventBus
	log    *zap.Logger
	now    func() time.Time
}

func NewAdminPaymentService(repo *repository.Repository, events EventBus, log *zap.Logger) *AdminPaymentService {
	return &AdminPaymentService{repo: repo, events: events, log: log, now: time.Now}
}

func (s *AdminPaymentService) List(ctx context.Context, q AdminPaymentQuery) (*PaymentPage, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	f := repository.PaymentListFilter{OrderID: q.OrderID, Limit: q.Limit, Offset: q.Offset}
	switch q.Filter {
	case PaymentFilterSuccess:
		v := true
		f.IsFinaly = &v
	case PaymentFilterFailed:
		v := false
		f.IsFinaly = &v
	case PaymentFilterAll:
	default:
		verr := &ValidationError{}
		verr.add("status", "unknown filter")
		return nil, verr
	}

	items, total, err := s.repo.Payments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Payments.Stats(ctx, time.Unix(0, 0), s.now().Add(time.Second))
	if err != nil {
		return nil, err
	}
	return &PaymentPage{Items: items, Total: total, Stats: stats}, nil
}

// Report по умолчанию покрывает последние 30 дней
func (s *AdminPaymentService) Report(ctx context.Context, from, to time.Time) (*PaymentReport, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultReportWindow)
	}
	if !from.Before(to) {
		verr := &ValidationError{}
		verr.add("date_from", "must be before date_to")
		return nil, verr
	}
	stats, err := s.repo.Payments.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &PaymentReport{From: from, To: to, Stats: stats}, nil
}

// Toggle меняет признак успешности на противоположный
func (s *AdminPaymentService) Toggle(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.override(ctx, id, "toggle", func(p *models.Payment) (repository.PaymentState, models.OrderStatus) {
		if p.IsFinaly {
			return failedState(), models.OrderStatusPending
		}
		return verifiedState(), models.OrderStatusProcessing
	})
}

func (s *AdminPaymentService) Verify(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.override(ctx, id, "verify", func(p *models.Payment) (repository.PaymentState, models.OrderStatus) {
		return verifiedState(), models.OrderStatusProcessing
	})
}

func (s *AdminPaymentService) Cancel(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.override(ctx, id, "cancel", func(p *models.Payment) (repository.PaymentState, models.OrderStatus) {
		return failedState(), models.OrderStatusPending
	})
}

// BulkVerify подтверждает только ещё не успешные платежи; возвращает число подтверждённых
func (s *AdminPaymentService) BulkVerify(ctx context.Context, ids []uuid.UUID) (int, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		verr := &ValidationError{}
		verr.add("payment_ids", "empty")
		return 0, verr
	}

	var changes []OrderStatusChangedEvent
	count := 0
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		for _, id := range ids {
			p, err := tx.Payments.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if p == nil || p.IsFinaly {
				continue
			}
			if err := tx.Payments.SetState(ctx, p.ID, verifiedState()); err != nil {
				return err
			}
			ev, err := s.moveOrder(ctx, tx, p.OrderID, models.OrderStatusProcessing)
			if err != nil {
				return err
			}
			if ev != nil {
				changes = append(changes, *ev)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("admin bulk verify",
		zap.String("admin_id", adminID.String()),
		zap.Int("requested", len(ids)),
		zap.Int("verified", count))
	s.publish(ctx, changes)
	return count, nil
}

// Delete удаляет платежи; заказы удалённых успешных платежей возвращаются в pending
func (s *AdminPaymentService) Delete(ctx context.Context, ids ...uuid.UUID) (int, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return 0, err
	}

	var changes []OrderStatusChangedEvent
	count := 0
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		for _, id := range ids {
			p, err := tx.Payments.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			if p.IsFinaly {
				ev, err := s.moveOrder(ctx, tx, p.OrderID, models.OrderStatusPending)
				if err != nil {
					return err
				}
				if ev != nil {
					changes = append(changes, *ev)
				}
			}
			if err := tx.Payments.Delete(ctx, p.ID); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count == 0 && len(ids) == 1 {
		return 0, ErrPaymentNotFound
	}

	s.log.Info("admin payments deleted",
		zap.String("admin_id", adminID.String()),
		zap.Int("deleted", count))
	s.publish(ctx, changes)
	return count, nil
}

func (s *AdminPaymentService) override(
	ctx context.Context,
	id uuid.UUID,
	action string,
	decide func(p *models.Payment) (repository.PaymentState, models.OrderStatus),
) (*models.Payment, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out *models.Payment
		ev  *OrderStatusChangedEvent
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := tx.Payments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		st, orderStatus := decide(p)
		if err := tx.Payments.SetState(ctx, p.ID, st); err != nil {
			return err
		}
		if ev, err = s.moveOrder(ctx, tx, p.OrderID, orderStatus); err != nil {
			return err
		}
		p.Status, p.StatusCode, p.IsFinaly, p.Message = st.Status, st.StatusCode, st.IsFinaly, st.Message
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("admin payment override",
		zap.String("action", action),
		zap.String("admin_id", adminID.String()),
		zap.String("payment_id", out.ID.String()),
		zap.Bool("is_finaly", out.IsFinaly),
		zap.String("status_code", out.StatusCode))
	if ev != nil {
		s.publish(ctx, []OrderStatusChangedEvent{*ev})
	}
	return out, nil
}

// moveOrder меняет статус заказа; nil-событие, если статус не изменился или заказа нет
func (s *AdminPaymentService) moveOrder(ctx context.Context, tx *repository.Repository, orderID uuid.UUID, to models.OrderStatus) (*OrderStatusChangedEvent, error) {
	ord, err := tx.Orders.GetByID(ctx, orderID)
	if err != nil || ord == nil {
		return nil, err
	}
	if ord.Status == to {
		return nil, nil
	}
	if err := tx.Orders.UpdateStatus(ctx, orderID, to); err != nil {
		return nil, err
	}
	return &OrderStatusChangedEvent{
		OrderID:   ord.ID,
		OrderCode: ord.OrderCode,
		UserID:    ord.CustomerID,
		OldStatus: ord.Status,
		NewStatus: to,
		ChangedAt: s.now(),
	}, nil
}

func (s *AdminPaymentService) publish(ctx context.Context, evs []OrderStatusChangedEvent) {
	if s.events == nil {
		return
	}
	for _, e := range evs {
		_ = s.events.PublishOrderStatusChanged(ctx, e)
	}
}

func verifiedState() repository.PaymentState {
	return repository.PaymentState{
		Status:     models.PaymentStatusVerified,
		StatusCode: AdminCodeVerified,
		IsFinaly:   true,
		Message:    "تایید دستی",
	}
}

func failedState() repository.PaymentState {
	return repository.PaymentState{
		Status:     models.PaymentStatusCancelled,
		StatusCode: AdminCodeCancelled,
		IsFinaly:   false,
		Message:    "لغو دستی",
	}
}
