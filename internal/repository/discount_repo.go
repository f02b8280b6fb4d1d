package repository

import (
	"context"
	"errors"
	"shop-service/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AmazingRow struct {
	ProductID uuid.UUID
	Title     string
	ImageURL  string
	Discount  int
}

type DiscountRepo interface {
	CreateBasket(ctx context.Context, b *models.DiscountBasket, productIDs []uuid.UUID) error
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	MaxActivePercent(ctx context.Context, productID uuid.UUID, at time.Time) (int, error)
	ActiveCoupon(ctx context.Context, code string, at time.Time) (*models.Coupon, error)
	AmazingProducts(ctx context.Context, at time.Time, limit int) ([]AmazingRow, error)
}

type discountRepo struct{ db *gorm.DB }

func NewDiscountRepo(db *gorm.DB) DiscountRepo { return &discountRepo{db: db} }

func (r *discountRepo) CreateBasket(ctx context.Context, b *models.DiscountBasket, productIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return nil
		}
		details := make([]models.DiscountDetail, 0, len(productIDs))
		for _, pid := range productIDs {
			details = append(details, models.DiscountDetail{BasketID: b.ID, ProductID: pid})
		}
		return tx.Create(&details).Error
	})
}

func (r *discountRepo) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// MaxActivePercent: наибольшая скидка среди активных корзин, содержащих товар; 0 если таких нет
func (r *discountRepo) MaxActivePercent(ctx context.Context, productID uuid.UUID, at time.Time) (int, error) {
	var pct int
	err := r.db.WithContext(ctx).
		Table("discount_details AS d").
		Joins("JOIN discount_baskets b ON b.id = d.basket_id").
		Where("d.product_id = ? AND b.is_active = true AND b.start_date <= ? AND b.end_date >= ?", productID, at, at).
		Select("COALESCE(MAX(b.discount), 0)").
		Scan(&pct).Error
	return pct, err
}

func (r *discountRepo) ActiveCoupon(ctx context.Context, code string, at time.Time) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = true AND start_date <= ? AND end_date >= ?", code, at, at).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *discountRepo) AmazingProducts(ctx context.Context, at time.Time, limit int) ([]AmazingRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []AmazingRow
	err := r.db.WithContext(ctx).
		Table("discount_details AS d").
		Joins("JOIN discount_baskets b ON b.id = d.basket_id").
		Joins("JOIN products p ON p.id = d.product_id").
		Where("b.is_active = true AND b.is_amazing = true AND b.start_date <= ? AND b.end_date >= ? AND p.is_active = true", at, at).
		Select("p.id AS product_id, p.title AS title, p.image_url AS image_url, MAX(b.discount) AS discount").
		Group("p.id, p.title, p.image_url").
		Order("discount DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
