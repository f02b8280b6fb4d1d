package repository

import (
	"context"
	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderDetailRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderDetail) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error)
}

type orderDetailRepo struct{ db *gorm.DB }

func NewOrderDetailRepo(db *gorm.DB) OrderDetailRepo { return &orderDetailRepo{db: db} }

func (r *orderDetailRepo) BulkCreate(ctx context.Context, items []models.OrderDetail) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderDetailRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	var rows []models.OrderDetail
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
