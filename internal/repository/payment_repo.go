package repository

import (
	"context"
	"errors"
	"shop-service/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var pendingStatuses = []models.PaymentStatus{models.PaymentStatusCreated, models.PaymentStatusAwaitingGateway}

type PaymentListFilter struct {
	OrderID  *uuid.UUID
	IsFinaly *bool
	Limit    int
	Offset   int
}

// PaymentState: ручная установка состояния из админки
type PaymentState struct {
	Status     models.PaymentStatus
	StatusCode string
	IsFinaly   bool
	Message    string
}

type PaymentStats struct {
	TotalCount    int64
	SuccessCount  int64
	FailedCount   int64
	PendingCount  int64
	SuccessAmount int64
}

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByAuthority(ctx context.Context, authority string) (*models.Payment, error)
	LatestPendingForUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error)
	HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetAuthority(ctx context.Context, id uuid.UUID, authority string) error
	// Переходы автоматического потока: срабатывают только пока is_finaly = false.
	// MarkFailed дополнительно требует статус created/awaiting_gateway
	MarkSucceeded(ctx context.Context, id uuid.UUID, status models.PaymentStatus, code, refID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, status models.PaymentStatus, code, message string) (bool, error)
	SetState(ctx context.Context, id uuid.UUID, st PaymentState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f PaymentListFilter) ([]*models.Payment, int64, error)
	Stats(ctx context.Context, from, to time.Time) (PaymentStats, error)
	ExpireStale(ctx context.Context, before time.Time, code, message string) (int64, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) GetByAuthority(ctx context.Context, authority string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "authority = ?", authority).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) LatestPendingForUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND is_finaly = false AND status IN ?", userID, pendingStatuses).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND is_finaly = false AND status IN ?", orderID, pendingStatuses).
		Count(&n).Error
	return n > 0, err
}

func (r *paymentRepo) SetAuthority(ctx context.Context, id uuid.UUID, authority string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(map[string]any{
		"authority": authority,
		"status":    models.PaymentStatusAwaitingGateway,
	}).Error
}

func (r *paymentRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, status models.PaymentStatus, code, refID string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND is_finaly = false", id).
		Updates(map[string]any{
			"is_finaly":   true,
			"status":      status,
			"status_code": code,
			"ref_id":      refID,
			"message":     "",
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *paymentRepo) MarkFailed(ctx context.Context, id uuid.UUID, status models.PaymentStatus, code, message string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND is_finaly = false AND status IN ?", id, pendingStatuses).
		Updates(map[string]any{
			"status":      status,
			"status_code": code,
			"message":     message,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *paymentRepo) SetState(ctx context.Context, id uuid.UUID, st PaymentState) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(map[string]any{
		"is_finaly":   st.IsFinaly,
		"status":      st.Status,
		"status_code": st.StatusCode,
		"message":     st.Message,
	}).Error
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}

func (r *paymentRepo) List(ctx context.Context, f PaymentListFilter) ([]*models.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if f.IsFinaly != nil {
		q = q.Where("is_finaly = ?", *f.IsFinaly)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.Payment
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}

func (r *paymentRepo) Stats(ctx context.Context, from, to time.Time) (PaymentStats, error) {
	var st PaymentStats
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select(`COUNT(*) AS total_count,
COUNT(*) FILTER (WHERE is_finaly) AS success_count,
COUNT(*) FILTER (WHERE NOT is_finaly AND status IN ('cancelled','gateway_error')) AS failed_count,
COUNT(*) FILTER (WHERE NOT is_finaly AND status IN ('created','awaiting_gateway')) AS pending_count,
COALESCE(SUM(amount) FILTER (WHERE is_finaly), 0) AS success_amount`).
		Scan(&st).Error
	return st, err
}

// ExpireStale переводит зависшие у шлюза платежи в gateway_error
func (r *paymentRepo) ExpireStale(ctx context.Context, before time.Time, code, message string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("is_finaly = false AND status IN ? AND created_at < ?", pendingStatuses, before).
		Updates(map[string]any{
			"status":      models.PaymentStatusGatewayError,
			"status_code": code,
			"message":     message,
		})
	return tx.RowsAffected, tx.Error
}
