package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func (c *Cart) Marshal() ([]byte, error) {
	c.Version = SchemaVersion
	return json.Marshal(c)
}

// Decode читает корзину из сессии. Пустые данные дают пустую корзину.
// Данные без поля version считаются старым форматом: объект с ключами
// "product" или "product:detail".
func Decode(data []byte) (*Cart, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return New(), nil
	}

	var head struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	if head.Version == nil {
		return decodeLegacy(data)
	}
	if *head.Version != SchemaVersion {
		return nil, fmt.Errorf("decode cart: unsupported version %d", *head.Version)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

type legacyLine struct {
	Qty         flexInt    `json:"qty"`
	Price       flexInt    `json:"price"`
	FinalPrice  flexInt    `json:"final_price"`
	Detail      string     `json:"detail"`
	ProductID   flexString `json:"product_id"`
	ProductName string     `json:"product_name"`
	Brand       flexString `json:"brand"`
}

func decodeLegacy(data []byte) (*Cart, error) {
	var raw map[string]legacyLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode legacy cart: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := New()
	for _, key := range keys {
		ll := raw[key]
		k, err := ParseLineKey(key)
		if pid, perr := uuid.Parse(string(ll.ProductID)); perr == nil {
			k.ProductID = pid
		} else if err != nil {
			// товар без uuid ни в ключе, ни в значении не переносим
			continue
		}
		if k.Detail == "" {
			k.Detail = ll.Detail
		}
		if ll.Qty <= 0 {
			continue
		}

		price := int64(ll.FinalPrice)
		if price == 0 {
			price = int64(ll.Price)
		}
		base := int64(ll.Price)
		if base == 0 {
			base = price
		}

		line := Line{
			ProductID:    k.ProductID,
			SaleTypeID:   k.SaleTypeID,
			Detail:       k.Detail,
			BasePrice:    base,
			Price:        price,
			ProductTitle: ll.ProductName,
		}
		if bid, err := uuid.Parse(string(ll.Brand)); err == nil {
			line.BrandID = &bid
		}
		c.Add(line, int(ll.Qty))
	}
	return c, nil
}

// flexInt принимает число или строку с числом ("50000", "50000.0")
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flexInt: %q: %w", s, err)
	}
	*f = flexInt(int64(fl))
	return nil
}

// flexString принимает строку, число или null
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}
