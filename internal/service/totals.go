package service

import "shop-service/internal/models"

const (
	TaxPercent = 9
	// цены в каталоге в томанах, шлюз принимает риалы
	RialsPerToman = 10
)

type Totals struct {
	Subtotal        int64 `json:"subtotal"`
	Tax             int64 `json:"tax"`
	SubtotalWithTax int64 `json:"subtotal_with_tax"`
	DiscountPercent int   `json:"discount_percent"`
	DiscountAmount  int64 `json:"discount_amount"`
	FinalTotal      int64 `json:"final_total"`
	TotalItems      int   `json:"total_items"`
	TotalQty        int   `json:"total_qty"`
}

// ComputeTotals считает итоги только по сохранённым позициям заказа
func ComputeTotals(details []models.OrderDetail, discount int) Totals {
	t := Totals{DiscountPercent: clampPercent(discount), TotalItems: len(details)}
	for _, d := range details {
		t.Subtotal += d.Price * int64(d.Qty)
		t.TotalQty += d.Qty
	}
	t.Tax = percentOf(t.Subtotal, TaxPercent)
	t.SubtotalWithTax = t.Subtotal + t.Tax
	t.DiscountAmount = percentOf(t.SubtotalWithTax, t.DiscountPercent)
	t.FinalTotal = t.SubtotalWithTax - t.DiscountAmount
	return t
}

func (t Totals) PayableRials() int64 { return t.FinalTotal * RialsPerToman }
