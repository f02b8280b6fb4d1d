package cart

import (
	"errors"
	"iter"
	"slices"
	"strings"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

const SchemaVersion = 1

var (
	ErrLineNotFound = errors.New("cart line not found")
	ErrInvalidKey   = errors.New("invalid cart line key")
)

// LineKey идентифицирует позицию корзины. SaleTypeID == uuid.Nil у позиций,
// записанных до того, как тип продажи стал частью ключа.
type LineKey struct {
	ProductID  uuid.UUID
	SaleTypeID uuid.UUID
	Detail     string
}

// String: "product:saleType:detail", пустой saleType для старых позиций
func (k LineKey) String() string {
	st := ""
	if k.SaleTypeID != uuid.Nil {
		st = k.SaleTypeID.String()
	}
	return k.ProductID.String() + ":" + st + ":" + k.Detail
}

// ParseLineKey понимает текущий формат и старые "product" / "product:detail"
func ParseLineKey(s string) (LineKey, error) {
	parts := strings.SplitN(s, ":", 3)
	pid, err := uuid.Parse(parts[0])
	if err != nil {
		return LineKey{}, ErrInvalidKey
	}
	k := LineKey{ProductID: pid}
	switch len(parts) {
	case 1:
		return k, nil
	case 2:
		k.Detail = parts[1]
		return k, nil
	}
	if parts[1] == "" {
		k.Detail = parts[2]
		return k, nil
	}
	if st, err := uuid.Parse(parts[1]); err == nil {
		k.SaleTypeID = st
		k.Detail = parts[2]
		return k, nil
	}
	// старый формат с двоеточием внутри detail
	k.Detail = parts[1] + ":" + parts[2]
	return k, nil
}

type SaleTypeSnapshot struct {
	ID           uuid.UUID       `json:"id"`
	Type         models.SaleType `json:"type"`
	Title        string          `json:"title"`
	MemberCarton int             `json:"member_carton"`
	LimitedSale  int             `json:"limited_sale"`
}

// Line хранит снимок цены и скидки на момент первого добавления ключа
type Line struct {
	ProductID       uuid.UUID         `json:"product_id"`
	SaleTypeID      uuid.UUID         `json:"sale_type_id"`
	Detail          string            `json:"detail"`
	Qty             int               `json:"qty"`
	BasePrice       int64             `json:"base_price"`
	Price           int64             `json:"price"`
	DiscountPercent int               `json:"discount_percent"`
	SaleType        *SaleTypeSnapshot `json:"sale_type,omitempty"`
	BrandID         *uuid.UUID        `json:"brand_id,omitempty"`
	ProductTitle    string            `json:"product_title,omitempty"`
}

func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, SaleTypeID: l.SaleTypeID, Detail: l.Detail}
}

func (l Line) Total() int64 { return l.Price * int64(l.Qty) }

type Cart struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

func New() *Cart { return &Cart{Version: SchemaVersion} }

func (c *Cart) index(k LineKey) int {
	return slices.IndexFunc(c.Lines, func(l Line) bool { return l.Key() == k })
}

func (c *Cart) Get(k LineKey) (Line, bool) {
	if i := c.index(k); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Has(k LineKey) bool { return c.index(k) >= 0 }

// Add увеличивает количество по ключу snapshot.Key(). Новый ключ заводится со снимком
// цены и нулевым количеством, у существующего меняется только количество.
func (c *Cart) Add(snapshot Line, qty int) Line {
	k := snapshot.Key()
	i := c.index(k)
	if i < 0 {
		snapshot.Qty = 0
		c.Lines = append(c.Lines, snapshot)
		i = len(c.Lines) - 1
	}
	c.Lines[i].Qty += qty
	return c.Lines[i]
}

// Remove: точный ключ, затем старый ключ без типа продажи, затем любая позиция товара
func (c *Cart) Remove(k LineKey) bool {
	if i := c.index(k); i >= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
		return true
	}
	legacy := LineKey{ProductID: k.ProductID, Detail: k.Detail}
	if i := c.index(legacy); i >= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
		return true
	}
	if i := slices.IndexFunc(c.Lines, func(l Line) bool { return l.ProductID == k.ProductID }); i >= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
		return true
	}
	return false
}

// SetQty: qty <= 0 удаляет позицию
func (c *Cart) SetQty(k LineKey, qty int) error {
	i := c.index(k)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
		return nil
	}
	c.Lines[i].Qty = qty
	return nil
}

func (c *Cart) Clear() { c.Lines = nil }

func (c *Cart) Len() int { return len(c.Lines) }

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) TotalQty() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c *Cart) All() iter.Seq[Line] {
	lines := slices.Clone(c.Lines)
	return slices.Values(lines)
}

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, l := range c.Lines {
		if !slices.Contains(ids, l.ProductID) {
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}
