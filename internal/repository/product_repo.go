package repository

import (
	"context"
	"errors"
	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

type SaleTypeRepo interface {
	Create(ctx context.Context, s *models.ProductSaleType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProductSaleType, error)
	FirstActive(ctx context.Context, productID uuid.UUID) (*models.ProductSaleType, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, price int64) error
}

type saleTypeRepo struct{ db *gorm.DB }

func NewSaleTypeRepo(db *gorm.DB) SaleTypeRepo { return &saleTypeRepo{db: db} }

func (r *saleTypeRepo) Create(ctx context.Context, s *models.ProductSaleType) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *saleTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductSaleType, error) {
	var s models.ProductSaleType
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

// FirstActive: первая активная запись по порядку создания
func (r *saleTypeRepo) FirstActive(ctx context.Context, productID uuid.UUID) (*models.ProductSaleType, error) {
	var s models.ProductSaleType
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = true", productID).
		Order("created_at ASC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

// UpdatePrice обновляет price и final_price вместе, так как Updates с map хуки не вызывает
func (r *saleTypeRepo) UpdatePrice(ctx context.Context, id uuid.UUID, price int64) error {
	return r.db.WithContext(ctx).Model(&models.ProductSaleType{}).Where("id = ?", id).Updates(map[string]any{
		"price":       price,
		"final_price": price,
	}).Error
}
