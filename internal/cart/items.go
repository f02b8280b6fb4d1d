package cart

import (
	"iter"

	"github.com/google/uuid"
)

type Product struct {
	ID       uuid.UUID
	Title    string
	ImageURL string
}

// LineItem: позиция корзины для отображения
type LineItem struct {
	Key             string            `json:"key"`
	ProductID       uuid.UUID         `json:"product_id"`
	Title           string            `json:"title"`
	ImageURL        string            `json:"image_url"`
	Detail          string            `json:"detail"`
	BasePrice       int64             `json:"base_price"`
	Price           int64             `json:"price"`
	DiscountPercent int               `json:"discount_percent"`
	Qty             int               `json:"qty"`
	TotalPrice      int64             `json:"total_price"`
	SaleType        *SaleTypeSnapshot `json:"sale_type,omitempty"`
}

// Items отдаёт позиции лениво; каждый проход начинается заново.
// Позиции, чей товар lookup не находит, пропускаются.
func Items(c *Cart, lookup func(uuid.UUID) (Product, bool)) iter.Seq[LineItem] {
	lines := c.All()
	return func(yield func(LineItem) bool) {
		for l := range lines {
			p, ok := lookup(l.ProductID)
			if !ok {
				continue
			}
			title := p.Title
			if title == "" {
				title = l.ProductTitle
			}
			item := LineItem{
				Key:             l.Key().String(),
				ProductID:       l.ProductID,
				Title:           title,
				ImageURL:        p.ImageURL,
				Detail:          l.Detail,
				BasePrice:       l.BasePrice,
				Price:           l.Price,
				DiscountPercent: l.DiscountPercent,
				Qty:             l.Qty,
				TotalPrice:      l.Total(),
				SaleType:        l.SaleType,
			}
			if !yield(item) {
				return
			}
		}
	}
}

func Total(items iter.Seq[LineItem]) int64 {
	var sum int64
	for it := range items {
		sum += it.TotalPrice
	}
	return sum
}
