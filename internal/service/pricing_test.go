package service_test

import (
	"context"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestApplyDiscount(t *testing.T) {
	cases := []struct {
		base int64
		pct  int
		want int64
	}{
		{50000, 0, 50000},
		{50000, 10, 45000},
		{99999, 15, 84999},
		{100, 100, 0},
		{100, 150, 0},
		{100, -5, 100},
	}
	for _, c := range cases {
		require.Equal(t, c.want, service.ApplyDiscount(c.base, c.pct), "base=%d pct=%d", c.base, c.pct)
	}
}

func TestComputeTotals(t *testing.T) {
	details := []models.OrderDetail{
		{Price: 30000, Qty: 2},
		{Price: 40000, Qty: 1},
	}
	tot := service.ComputeTotals(details, 10)

	require.Equal(t, int64(100000), tot.Subtotal)
	require.Equal(t, int64(9000), tot.Tax)
	require.Equal(t, int64(109000), tot.SubtotalWithTax)
	require.Equal(t, int64(10900), tot.DiscountAmount)
	require.Equal(t, int64(98100), tot.FinalTotal)
	require.Equal(t, 2, tot.TotalItems)
	require.Equal(t, 3, tot.TotalQty)
	require.Equal(t, int64(981000), tot.PayableRials())
}

func TestComputeTotals_FloorsTaxAndDiscount(t *testing.T) {
	tot := service.ComputeTotals([]models.OrderDetail{{Price: 1111, Qty: 1}}, 33)
	// 1111*9/100 = 99.99
	require.Equal(t, int64(99), tot.Tax)
	// 1210*33/100 = 399.3
	require.Equal(t, int64(399), tot.DiscountAmount)
	require.Equal(t, int64(811), tot.FinalTotal)
}

func TestComputeTotals_Empty(t *testing.T) {
	tot := service.ComputeTotals(nil, 50)
	require.Zero(t, tot.FinalTotal)
	require.Zero(t, tot.PayableRials())
}

func TestDiscountResolver_ActiveCoupon(t *testing.T) {
	db := newMemDB()
	now := time.Now()
	db.coupons["SALE10"] = &models.Coupon{
		ID: uuid.New(), Code: "SALE10", Discount: 10, IsActive: true,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
	}
	db.coupons["OLD"] = &models.Coupon{
		ID: uuid.New(), Code: "OLD", Discount: 50, IsActive: true,
		StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour),
	}
	r := service.NewDiscountResolver(db.repo())
	ctx := context.Background()

	c, err := r.ActiveCoupon(ctx, "  SALE10 ", now)
	require.NoError(t, err)
	require.Equal(t, 10, c.Discount)

	_, err = r.ActiveCoupon(ctx, "OLD", now)
	require.ErrorIs(t, err, service.ErrCouponInvalid)

	_, err = r.ActiveCoupon(ctx, "", now)
	require.ErrorIs(t, err, service.ErrCouponInvalid)
}

func TestDiscountResolver_ActivePercentClamped(t *testing.T) {
	db := newMemDB()
	pid := uuid.New()
	db.discounts[pid] = 120
	r := service.NewDiscountResolver(db.repo())

	pct, err := r.ActivePercent(context.Background(), pid, time.Now())
	require.NoError(t, err)
	require.Equal(t, 100, pct)

	pct, err = r.ActivePercent(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	require.Zero(t, pct)
}
