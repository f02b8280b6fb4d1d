package cart_test

import (
	"fmt"
	"testing"

	"shop-service/internal/cart"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecode_Empty(t *testing.T) {
	for _, in := range []string{"", "  ", "null"} {
		c, err := cart.Decode([]byte(in))
		require.NoError(t, err)
		require.True(t, c.IsEmpty())
		require.Equal(t, cart.SchemaVersion, c.Version)
	}
}

func TestMarshalDecode_Current(t *testing.T) {
	c := cart.New()
	pid, st, brand := uuid.New(), uuid.New(), uuid.New()
	c.Add(cart.Line{
		ProductID: pid, SaleTypeID: st, Detail: "red",
		BasePrice: 1000, Price: 900, DiscountPercent: 10,
		SaleType: &cart.SaleTypeSnapshot{ID: st, Type: 2, MemberCarton: 12},
		BrandID:  &brand,
	}, 3)

	data, err := c.Marshal()
	require.NoError(t, err)

	got, err := cart.Decode(data)
	require.NoError(t, err)
	require.Equal(t, c.Lines, got.Lines)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	_, err := cart.Decode([]byte(`{"version":7,"lines":[]}`))
	require.Error(t, err)
}

func TestDecode_LegacySessionFormat(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	data := fmt.Sprintf(`{
		%q: {"qty": 2, "price": "50000", "final_price": "45000", "detail": "", "product_id": %q, "product_name": "قهوه"},
		%q: {"qty": 1, "price": 12000, "detail": "red", "product_id": %q, "brand": null},
		"17": {"qty": 5, "price": "1000", "product_id": 17}
	}`, p1.String(), p1.String(), p2.String()+":red", p2.String())

	c, err := cart.Decode([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	l1, ok := c.Get(cart.LineKey{ProductID: p1})
	require.True(t, ok)
	require.Equal(t, 2, l1.Qty)
	require.Equal(t, int64(45000), l1.Price)
	require.Equal(t, int64(50000), l1.BasePrice)
	require.Equal(t, "قهوه", l1.ProductTitle)

	l2, ok := c.Get(cart.LineKey{ProductID: p2, Detail: "red"})
	require.True(t, ok)
	require.Equal(t, int64(12000), l2.Price)

	// после миграции сохраняется уже в текущем формате
	out, err := c.Marshal()
	require.NoError(t, err)
	again, err := cart.Decode(out)
	require.NoError(t, err)
	require.Equal(t, c.Lines, again.Lines)
}
