package cart_test

import (
	"testing"

	"shop-service/internal/cart"
	"shop-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func line(pid, st uuid.UUID, detail string, price int64) cart.Line {
	return cart.Line{ProductID: pid, SaleTypeID: st, Detail: detail, BasePrice: price, Price: price}
}

func TestAdd_AggregatesByKey(t *testing.T) {
	c := cart.New()
	p1, p2 := uuid.New(), uuid.New()
	st := uuid.New()

	c.Add(line(p1, st, "red", 100), 2)
	c.Add(line(p1, st, "red", 100), 3)
	c.Add(line(p1, st, "blue", 100), 1)
	c.Add(line(p2, st, "red", 100), 4)
	c.Add(line(p1, uuid.Nil, "red", 100), 1)

	require.Equal(t, 4, c.Len())
	got, ok := c.Get(cart.LineKey{ProductID: p1, SaleTypeID: st, Detail: "red"})
	require.True(t, ok)
	require.Equal(t, 5, got.Qty)
	require.Equal(t, 11, c.TotalQty())
}

func TestAdd_KeepsFirstSnapshot(t *testing.T) {
	c := cart.New()
	pid, st := uuid.New(), uuid.New()

	c.Add(cart.Line{ProductID: pid, SaleTypeID: st, BasePrice: 50000, Price: 50000}, 2)
	require.Equal(t, int64(100000), lineTotal(c))

	// скидка появилась после первого добавления: снимок не меняется
	got := c.Add(cart.Line{ProductID: pid, SaleTypeID: st, BasePrice: 50000, Price: 40000, DiscountPercent: 20}, 3)
	require.Equal(t, 5, got.Qty)
	require.Equal(t, int64(50000), got.Price)
	require.Equal(t, 0, got.DiscountPercent)
	require.Equal(t, int64(250000), lineTotal(c))
}

func lineTotal(c *cart.Cart) int64 {
	var sum int64
	for l := range c.All() {
		sum += l.Total()
	}
	return sum
}

func TestRemove_Fallbacks(t *testing.T) {
	pid, st := uuid.New(), uuid.New()

	t.Run("exact key", func(t *testing.T) {
		c := cart.New()
		c.Add(line(pid, st, "d", 1), 1)
		c.Add(line(pid, uuid.Nil, "d", 1), 1)
		require.True(t, c.Remove(cart.LineKey{ProductID: pid, SaleTypeID: st, Detail: "d"}))
		require.Equal(t, 1, c.Len())
		require.True(t, c.Has(cart.LineKey{ProductID: pid, Detail: "d"}))
	})

	t.Run("legacy key without sale type", func(t *testing.T) {
		c := cart.New()
		c.Add(line(pid, uuid.Nil, "d", 1), 1)
		require.True(t, c.Remove(cart.LineKey{ProductID: pid, SaleTypeID: st, Detail: "d"}))
		require.True(t, c.IsEmpty())
	})

	t.Run("any line of product", func(t *testing.T) {
		c := cart.New()
		c.Add(line(pid, uuid.New(), "other", 1), 1)
		require.True(t, c.Remove(cart.LineKey{ProductID: pid, SaleTypeID: st, Detail: "d"}))
		require.True(t, c.IsEmpty())
	})

	t.Run("nothing to remove", func(t *testing.T) {
		c := cart.New()
		c.Add(line(uuid.New(), st, "d", 1), 1)
		require.False(t, c.Remove(cart.LineKey{ProductID: pid}))
		require.Equal(t, 1, c.Len())
	})
}

func TestSetQty(t *testing.T) {
	c := cart.New()
	pid := uuid.New()
	k := cart.LineKey{ProductID: pid, Detail: "x"}
	c.Add(line(pid, uuid.Nil, "x", 10), 1)

	require.NoError(t, c.SetQty(k, 7))
	got, _ := c.Get(k)
	require.Equal(t, 7, got.Qty)

	require.NoError(t, c.SetQty(k, 0))
	require.True(t, c.IsEmpty())

	require.ErrorIs(t, c.SetQty(k, 1), cart.ErrLineNotFound)
}

func TestLineKey_RoundTrip(t *testing.T) {
	pid, st := uuid.New(), uuid.New()

	cases := []cart.LineKey{
		{ProductID: pid},
		{ProductID: pid, Detail: "size:XL"},
		{ProductID: pid, SaleTypeID: st},
		{ProductID: pid, SaleTypeID: st, Detail: "color:red"},
	}
	for _, k := range cases {
		got, err := cart.ParseLineKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}

	legacy, err := cart.ParseLineKey(pid.String() + ":red")
	require.NoError(t, err)
	require.Equal(t, cart.LineKey{ProductID: pid, Detail: "red"}, legacy)

	_, err = cart.ParseLineKey("12:red")
	require.ErrorIs(t, err, cart.ErrInvalidKey)
}

func TestItems_SkipsMissingProductsAndRestarts(t *testing.T) {
	c := cart.New()
	alive, gone := uuid.New(), uuid.New()
	c.Add(cart.Line{ProductID: alive, BasePrice: 100, Price: 90, DiscountPercent: 10, SaleType: &cart.SaleTypeSnapshot{Type: models.SaleTypeSingle}}, 2)
	c.Add(line(gone, uuid.Nil, "", 500), 1)

	lookup := func(id uuid.UUID) (cart.Product, bool) {
		if id == alive {
			return cart.Product{ID: id, Title: "چای", ImageURL: "/img/tea.png"}, true
		}
		return cart.Product{}, false
	}

	items := cart.Items(c, lookup)
	var n int
	for it := range items {
		n++
		require.Equal(t, alive, it.ProductID)
		require.Equal(t, int64(90), it.Price)
		require.Equal(t, int64(180), it.TotalPrice)
		require.Equal(t, "چای", it.Title)
	}
	require.Equal(t, 1, n)

	// повторный проход
	require.Equal(t, int64(180), cart.Total(items))
}
