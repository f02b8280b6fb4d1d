package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"shop-service/internal/cart"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService struct {
	repo    *repository.Repository
	store   session.Store
	coupons CouponProvider
	events  EventBus
	log     *zap.Logger
	now     func() time.Time
}

func NewOrderService(repo *repository.Repository, store session.Store, coupons CouponProvider, events EventBus, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:    repo,
		store:   store,
		coupons: coupons,
		events:  events,
		log:     log,
		now:     time.Now,
	}
}

// PlaceOrder переносит корзину сессии в заказ. Товар каждой позиции перечитывается из каталога,
// цена берётся из корзины. Удалённые товары пропускаются с предупреждением.
func (s *OrderService) PlaceOrder(ctx context.Context, sid string) (*PlaceOrderResult, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.store.LoadCart(ctx, sid)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	res := &PlaceOrderResult{}
	var subtotal int64
	var details []models.OrderDetail

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		order := &models.Order{
			CustomerID: userID,
			OrderCode:  uuid.New(),
			Status:     models.OrderStatusPending,
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		for line := range c.All() {
			p, err := tx.Products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				res.Skipped = append(res.Skipped, line.ProductID)
				res.Warnings = append(res.Warnings, fmt.Sprintf("product %s no longer exists", line.ProductID))
				continue
			}
			d := models.OrderDetail{
				OrderID:         order.ID,
				ProductID:       p.ID,
				BrandID:         p.BrandID,
				ProductTitle:    p.Title,
				Qty:             line.Qty,
				Price:           line.Price,
				SelectedOptions: line.Detail,
			}
			if line.SaleTypeID != uuid.Nil {
				st := line.SaleTypeID
				d.SaleTypeID = &st
			}
			details = append(details, d)
			subtotal += line.Total()
		}

		if len(details) == 0 {
			return ErrEmptyCart
		}
		if err := tx.OrderDetails.BulkCreate(ctx, details); err != nil {
			return err
		}

		order.Details = details
		res.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.UpdateCart(ctx, sid, clearCart); err != nil {
		s.log.Warn("cart not cleared after order", zap.String("order_id", res.Order.ID.String()), zap.Error(err))
	}

	for _, w := range res.Warnings {
		s.log.Warn("order line skipped", zap.String("order_id", res.Order.ID.String()), zap.String("reason", w))
	}
	s.log.Info("order created",
		zap.String("order_id", res.Order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(details)),
		zap.Int64("subtotal", subtotal))

	if s.events != nil {
		_ = s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
			OrderID:    res.Order.ID,
			OrderCode:  res.Order.OrderCode,
			UserID:     userID,
			Email:      EmailFromContext(ctx),
			ItemsCount: len(details),
			Subtotal:   subtotal,
			CreatedAt:  s.now(),
		})
	}
	return res, nil
}

func clearCart(c *cart.Cart) error {
	c.Clear()
	return nil
}

// loadOwned: админ видит любой заказ, покупатель только свой
func (s *OrderService) loadOwned(ctx context.Context, id uuid.UUID) (*models.Order, uuid.UUID, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	var ord *models.Order
	if role == RoleAdmin {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, uuid.Nil, err
	}
	if ord == nil {
		return nil, uuid.Nil, ErrOrderNotFound
	}
	return ord, userID, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, _, err := s.loadOwned(ctx, id)
	return ord, err
}

func (s *OrderService) ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role != RoleAdmin {
		f.CustomerID = &userID
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.Orders.List(ctx, repository.OrderListFilter{
		CustomerID: f.CustomerID,
		Status:     f.Status,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// Checkout: страница оформления: только для владельца и только до финализации
func (s *OrderService) Checkout(ctx context.Context, id uuid.UUID) (*CheckoutView, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	ord, err := s.repo.Orders.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if ord.IsFinally {
		return nil, ErrOrderFinalized
	}
	addrs, err := s.repo.Addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CheckoutView{
		Order:     ord,
		Totals:    ComputeTotals(ord.Details, ord.Discount),
		Addresses: addrs,
	}, nil
}

func (in CheckoutInput) normalize() CheckoutInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func (in CheckoutInput) validate() error {
	verr := &ValidationError{}
	if in.FirstName == "" {
		verr.add("first_name", "نام")
	}
	if in.LastName == "" {
		verr.add("last_name", "نام‌خانوادگی")
	}
	if in.Phone == "" {
		verr.add("phone", "تلفن")
	}
	if in.AddressID == nil || *in.AddressID == uuid.Nil {
		verr.add("address_id", "آدرس")
	}
	return verr.orNil()
}

// ensureEditable: заказ принадлежит пользователю, не финализирован и не ждёт ответа шлюза.
// Сумма ожидающего платежа уже передана шлюзу, поэтому менять заказ до его исхода нельзя.
func (s *OrderService) ensureEditable(ctx context.Context, id, userID uuid.UUID) error {
	ord, err := s.repo.Orders.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if ord == nil {
		return ErrOrderNotFound
	}
	if ord.IsFinally {
		return ErrOrderFinalized
	}
	pending, err := s.repo.Payments.HasPendingForOrder(ctx, id)
	if err != nil {
		return err
	}
	if pending {
		return ErrPaymentInProgress
	}
	return nil
}

// UpdateCheckout сохраняет данные получателя и адрес. Финализированный заказ
// и заказ с ожидающим платежом не меняются.
func (s *OrderService) UpdateCheckout(ctx context.Context, id uuid.UUID, in CheckoutInput) (*CheckoutView, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	if err := s.ensureEditable(ctx, id, userID); err != nil {
		return nil, err
	}

	addr, err := s.repo.Addresses.GetByIDForUser(ctx, *in.AddressID, userID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, ErrAddressNotFound
	}

	ok, err := s.repo.Orders.UpdateCheckout(ctx, id, repository.CheckoutFields{
		AddressID:   &addr.ID,
		Description: in.Description,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderFinalized
	}

	s.log.Info("checkout updated", zap.String("order_id", id.String()), zap.String("address_id", addr.ID.String()))
	return s.Checkout(ctx, id)
}

// ApplyCoupon переписывает процент скидки заказа процентом купона
func (s *OrderService) ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (*CheckoutView, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, id, userID); err != nil {
		return nil, err
	}

	coupon, err := s.coupons.ActiveCoupon(ctx, code, s.now())
	if err != nil {
		return nil, err
	}
	if coupon.Discount < 0 || coupon.Discount > 100 {
		return nil, ErrCouponInvalid
	}

	ok, err := s.repo.Orders.SetDiscount(ctx, id, coupon.Discount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderFinalized
	}
	s.log.Info("coupon applied",
		zap.String("order_id", id.String()),
		zap.String("code", coupon.Code),
		zap.Int("discount", coupon.Discount))
	return s.Checkout(ctx, id)
}

// Invoice доступен и для оплаченных заказов
func (s *OrderService) Invoice(ctx context.Context, id uuid.UUID) (*CheckoutView, error) {
	ord, _, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &CheckoutView{Order: ord, Totals: ComputeTotals(ord.Details, ord.Discount)}
	if ord.AddressID != nil {
		addr, err := s.repo.Addresses.GetByIDForUser(ctx, *ord.AddressID, ord.CustomerID)
		if err != nil {
			return nil, err
		}
		if addr != nil {
			view.Addresses = []models.Address{*addr}
		}
	}
	return view, nil
}

func (s *OrderService) SetStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	old := ord.Status
	if old == status {
		return ord, nil
	}
	if err := s.repo.Orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	ord.Status = status

	s.log.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("old", string(old)),
		zap.String("new", string(status)))
	if s.events != nil {
		_ = s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:   ord.ID,
			OrderCode: ord.OrderCode,
			UserID:    ord.CustomerID,
			OldStatus: old,
			NewStatus: status,
			ChangedAt: s.now(),
		})
	}
	return ord, nil
}

func (s *OrderService) ListAddresses(ctx context.Context) ([]models.Address, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Addresses.ListByUser(ctx, userID)
}

func (s *OrderService) CreateAddress(ctx context.Context, in AddressInput) (*models.Address, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	a := &models.Address{
		UserID:        userID,
		State:         strings.TrimSpace(in.State),
		City:          strings.TrimSpace(in.City),
		AddressDetail: strings.TrimSpace(in.AddressDetail),
		PostalCode:    strings.TrimSpace(in.PostalCode),
	}
	verr := &ValidationError{}
	if a.State == "" {
		verr.add("state", "استان")
	}
	if a.City == "" {
		verr.add("city", "شهر")
	}
	if a.AddressDetail == "" {
		verr.add("address_detail", "آدرس")
	}
	if a.PostalCode != "" && !isPostalCode(a.PostalCode) {
		verr.add("postal_code", "کد پستی")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if err := s.repo.Addresses.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// почтовый индекс Ирана: 10 цифр
func isPostalCode(s string) bool {
	if utf8.RuneCountInString(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
