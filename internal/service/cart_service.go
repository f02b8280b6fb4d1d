package service

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"shop-service/internal/cart"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AddToCartInput struct {
	ProductID  uuid.UUID
	Qty        int
	Detail     string
	SaleTypeID *uuid.UUID
}

type CartSummary struct {
	Items    []cart.LineItem `json:"items"`
	Count    int             `json:"count"`
	TotalQty int             `json:"total_qty"`
	Total    int64           `json:"total"`
}

type CartService struct {
	repo      *repository.Repository
	store     session.Store
	discounts DiscountProvider
	log       *zap.Logger
	now       func() time.Time
}

func NewCartService(repo *repository.Repository, store session.Store, discounts DiscountProvider, log *zap.Logger) *CartService {
	return &CartService{
		repo:      repo,
		store:     store,
		discounts: discounts,
		log:       log,
		now:       time.Now,
	}
}

// Add добавляет товар в корзину. Цена и скидка фиксируются при первом добавлении ключа,
// повторные вызовы меняют только количество.
func (s *CartService) Add(ctx context.Context, sid string, in AddToCartInput) (cart.Line, error) {
	if in.Qty <= 0 {
		return cart.Line{}, ErrQuantityInvalid
	}

	product, err := s.repo.Products.GetByID(ctx, in.ProductID)
	if err != nil {
		return cart.Line{}, err
	}
	if product == nil || !product.IsActive {
		return cart.Line{}, ErrProductNotFound
	}

	st, err := s.resolveSaleType(ctx, product.ID, in.SaleTypeID)
	if err != nil {
		return cart.Line{}, err
	}

	snapshot, err := s.snapshot(ctx, product, st, in.Detail)
	if err != nil {
		return cart.Line{}, err
	}

	var added cart.Line
	_, err = s.store.UpdateCart(ctx, sid, func(c *cart.Cart) error {
		if st.TypeSale == models.SaleTypeLimited && st.LimitedSale > 0 {
			cur, _ := c.Get(snapshot.Key())
			if cur.Qty+in.Qty > st.LimitedSale {
				return ErrLimitExceeded
			}
		}
		added = c.Add(snapshot, in.Qty)
		return nil
	})
	if err != nil {
		return cart.Line{}, err
	}

	s.log.Debug("cart line added",
		zap.String("product_id", product.ID.String()),
		zap.String("sale_type_id", st.ID.String()),
		zap.Int("qty", added.Qty),
		zap.Int64("price", added.Price))
	return added, nil
}

func (s *CartService) resolveSaleType(ctx context.Context, productID uuid.UUID, id *uuid.UUID) (*models.ProductSaleType, error) {
	if id != nil && *id != uuid.Nil {
		st, err := s.repo.SaleTypes.GetByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if st == nil || st.ProductID != productID || !st.IsActive {
			return nil, ErrSaleTypeNotFound
		}
		return st, nil
	}
	st, err := s.repo.SaleTypes.FirstActive(ctx, productID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSaleTypeNotFound
	}
	return st, nil
}

func (s *CartService) snapshot(ctx context.Context, p *models.Product, st *models.ProductSaleType, detail string) (cart.Line, error) {
	pct, err := s.discounts.ActivePercent(ctx, p.ID, s.now())
	if err != nil {
		return cart.Line{}, err
	}
	base := st.UnitBasePrice()
	return cart.Line{
		ProductID:       p.ID,
		SaleTypeID:      st.ID,
		Detail:          detail,
		BasePrice:       base,
		Price:           ApplyDiscount(base, pct),
		DiscountPercent: pct,
		SaleType: &cart.SaleTypeSnapshot{
			ID:           st.ID,
			Type:         st.TypeSale,
			Title:        st.Title,
			MemberCarton: st.MemberCarton,
			LimitedSale:  st.LimitedSale,
		},
		BrandID:      p.BrandID,
		ProductTitle: p.Title,
	}, nil
}

// Remove ничего не возвращает, если позиции нет: корзина терпима к устаревшим ключам
func (s *CartService) Remove(ctx context.Context, sid string, key cart.LineKey) (bool, error) {
	var removed bool
	_, err := s.store.UpdateCart(ctx, sid, func(c *cart.Cart) error {
		removed = c.Remove(key)
		return nil
	})
	return removed, err
}

func (s *CartService) UpdateQuantity(ctx context.Context, sid string, key cart.LineKey, qty int) error {
	_, err := s.store.UpdateCart(ctx, sid, func(c *cart.Cart) error {
		if err := c.SetQty(key, qty); err != nil {
			if errors.Is(err, cart.ErrLineNotFound) {
				return ErrCartLineNotFound
			}
			return err
		}
		if qty <= 0 {
			return nil
		}
		l, _ := c.Get(key)
		if l.SaleType != nil && l.SaleType.Type == models.SaleTypeLimited &&
			l.SaleType.LimitedSale > 0 && qty > l.SaleType.LimitedSale {
			return ErrLimitExceeded
		}
		return nil
	})
	return err
}

func (s *CartService) Clear(ctx context.Context, sid string) error {
	_, err := s.store.UpdateCart(ctx, sid, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
	return err
}

// Items: ленивая последовательность позиций; удалённые из каталога товары пропускаются
func (s *CartService) Items(ctx context.Context, sid string) (iter.Seq[cart.LineItem], error) {
	c, err := s.store.LoadCart(ctx, sid)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.Products.GetByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	return cart.Items(c, func(id uuid.UUID) (cart.Product, bool) {
		p, ok := products[id]
		if !ok {
			return cart.Product{}, false
		}
		return cart.Product{ID: p.ID, Title: p.Title, ImageURL: p.ImageURL}, true
	}), nil
}

func (s *CartService) TotalPrice(ctx context.Context, sid string) (int64, error) {
	items, err := s.Items(ctx, sid)
	if err != nil {
		return 0, err
	}
	return cart.Total(items), nil
}

func (s *CartService) Summary(ctx context.Context, sid string) (*CartSummary, error) {
	items, err := s.Items(ctx, sid)
	if err != nil {
		return nil, err
	}
	sum := &CartSummary{Items: slices.Collect(items)}
	if sum.Items == nil {
		sum.Items = []cart.LineItem{}
	}
	for _, it := range sum.Items {
		sum.TotalQty += it.Qty
		sum.Total += it.TotalPrice
	}
	sum.Count = len(sum.Items)
	return sum, nil
}

func (s *CartService) Count(ctx context.Context, sid string) (int, error) {
	c, err := s.store.LoadCart(ctx, sid)
	if err != nil {
		return 0, err
	}
	return c.Len(), nil
}
