package service

import (
	"context"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyDiscount: floor(base * (100 - percent) / 100)
func ApplyDiscount(base int64, percent int) int64 {
	percent = clampPercent(percent)
	return decimal.NewFromInt(base).
		Mul(decimal.NewFromInt(int64(100 - percent))).
		Div(hundred).
		Floor().
		IntPart()
}

// percentOf: floor(amount * percent / 100)
func percentOf(amount int64, percent int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Floor().
		IntPart()
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// DiscountResolver отвечает на вопросы "какая скидка действует сейчас"
type DiscountResolver struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewDiscountResolver(repo *repository.Repository) *DiscountResolver {
	return &DiscountResolver{repo: repo, now: time.Now}
}

func (r *DiscountResolver) ActivePercent(ctx context.Context, productID uuid.UUID, at time.Time) (int, error) {
	pct, err := r.repo.Discounts.MaxActivePercent(ctx, productID, at)
	if err != nil {
		return 0, err
	}
	return clampPercent(pct), nil
}

func (r *DiscountResolver) ActiveCoupon(ctx context.Context, code string, at time.Time) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCouponInvalid
	}
	c, err := r.repo.Discounts.ActiveCoupon(ctx, code, at)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.ActiveAt(at) {
		return nil, ErrCouponInvalid
	}
	return c, nil
}

type AmazingProduct struct {
	ProductID       uuid.UUID `json:"product_id"`
	Title           string    `json:"title"`
	ImageURL        string    `json:"image_url"`
	DiscountPercent int       `json:"discount_percent"`
	OriginalPrice   int64     `json:"original_price"`
	DiscountedPrice int64     `json:"discounted_price"`
}

// AmazingProducts: товары активных amazing-корзин с ценой по первому активному типу продажи
func (r *DiscountResolver) AmazingProducts(ctx context.Context, limit int) ([]AmazingProduct, error) {
	rows, err := r.repo.Discounts.AmazingProducts(ctx, r.now(), limit)
	if err != nil {
		return nil, err
	}
	out := make([]AmazingProduct, 0, len(rows))
	for _, row := range rows {
		st, err := r.repo.SaleTypes.FirstActive(ctx, row.ProductID)
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		base := st.UnitBasePrice()
		out = append(out, AmazingProduct{
			ProductID:       row.ProductID,
			Title:           row.Title,
			ImageURL:        row.ImageURL,
			DiscountPercent: clampPercent(row.Discount),
			OriginalPrice:   base,
			DiscountedPrice: ApplyDiscount(base, row.Discount),
		})
	}
	return out, nil
}
