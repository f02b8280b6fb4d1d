package service_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"shop-service/internal/gateway"
	"shop-service/internal/models"
	"shop-service/internal/producer"
	"shop-service/internal/repository"
	"shop-service/internal/service"

	"github.com/google/uuid"
)

// memDB: хранилище в памяти для всех репозиториев; Repository без DB выполняет WithTx напрямую
type memDB struct {
	mu            sync.Mutex
	products      map[uuid.UUID]*models.Product
	saleTypes     map[uuid.UUID]*models.ProductSaleType
	orders        map[uuid.UUID]*models.Order
	details       []models.OrderDetail
	payments      map[uuid.UUID]*models.Payment
	addresses     map[uuid.UUID]*models.Address
	notifications []models.Notification
	discounts     map[uuid.UUID]int
	coupons       map[string]*models.Coupon
	seq           time.Time
}

func newMemDB() *memDB {
	return &memDB{
		products:  map[uuid.UUID]*models.Product{},
		saleTypes: map[uuid.UUID]*models.ProductSaleType{},
		orders:    map[uuid.UUID]*models.Order{},
		payments:  map[uuid.UUID]*models.Payment{},
		addresses: map[uuid.UUID]*models.Address{},
		discounts: map[uuid.UUID]int{},
		coupons:   map[string]*models.Coupon{},
		seq:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick выдаёт строго возрастающее время создания
func (m *memDB) tick() time.Time {
	m.seq = m.seq.Add(time.Second)
	return m.seq
}

func (m *memDB) repo() *repository.Repository {
	return &repository.Repository{
		Products:      fakeProducts{m},
		SaleTypes:     fakeSaleTypes{m},
		Discounts:     fakeDiscounts{m},
		Addresses:     fakeAddresses{m},
		Orders:        fakeOrders{m},
		OrderDetails:  fakeDetails{m},
		Payments:      fakePayments{m},
		Notifications: fakeNotifications{m},
	}
}

func (m *memDB) addProduct(title string, price int64, typ models.SaleType, carton, limited int) (*models.Product, *models.ProductSaleType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Product{ID: uuid.New(), Title: title, Slug: strings.ToLower(title), IsActive: true, CreatedAt: m.tick()}
	st := &models.ProductSaleType{
		ID: uuid.New(), ProductID: p.ID, TypeSale: typ, Price: price, FinalPrice: price,
		MemberCarton: carton, LimitedSale: limited, IsActive: true, CreatedAt: m.tick(),
	}
	m.products[p.ID] = p
	m.saleTypes[st.ID] = st
	return p, st
}

func (m *memDB) order(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func (m *memDB) payment(id uuid.UUID) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[id]
}

func (m *memDB) withDetails(o *models.Order) *models.Order {
	cp := *o
	cp.Details = nil
	for _, d := range m.details {
		if d.OrderID == o.ID {
			cp.Details = append(cp.Details, d)
		}
	}
	return &cp
}

type fakeProducts struct{ *memDB }

func (f fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.products[p.ID] = p
	return nil
}

func (f fakeProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakeProducts) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (f fakeProducts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	return nil
}

type fakeSaleTypes struct{ *memDB }

func (f fakeSaleTypes) Create(_ context.Context, s *models.ProductSaleType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = f.tick()
	f.saleTypes[s.ID] = s
	return nil
}

func (f fakeSaleTypes) GetByID(_ context.Context, id uuid.UUID) (*models.ProductSaleType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.saleTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f fakeSaleTypes) FirstActive(_ context.Context, productID uuid.UUID) (*models.ProductSaleType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.ProductSaleType
	for _, s := range f.saleTypes {
		if s.ProductID != productID || !s.IsActive {
			continue
		}
		if best == nil || s.CreatedAt.Before(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f fakeSaleTypes) UpdatePrice(_ context.Context, id uuid.UUID, price int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.saleTypes[id]; ok {
		s.Price, s.FinalPrice = price, price
	}
	return nil
}

type fakeDiscounts struct{ *memDB }

func (f fakeDiscounts) CreateBasket(_ context.Context, b *models.DiscountBasket, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if b.Discount > f.discounts[id] {
			f.discounts[id] = b.Discount
		}
	}
	return nil
}

func (f fakeDiscounts) CreateCoupon(_ context.Context, c *models.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coupons[c.Code] = c
	return nil
}

func (f fakeDiscounts) MaxActivePercent(_ context.Context, id uuid.UUID, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discounts[id], nil
}

func (f fakeDiscounts) ActiveCoupon(_ context.Context, code string, at time.Time) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[code]
	if !ok || !c.ActiveAt(at) {
		return nil, nil
	}
	return c, nil
}

func (f fakeDiscounts) AmazingProducts(context.Context, time.Time, int) ([]repository.AmazingRow, error) {
	return nil, nil
}

type fakeAddresses struct{ *memDB }

func (f fakeAddresses) Create(_ context.Context, a *models.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = f.tick()
	f.addresses[a.ID] = a
	return nil
}

func (f fakeAddresses) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Address
	for _, a := range f.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f fakeAddresses) GetByIDForUser(_ context.Context, id, userID uuid.UUID) (*models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.addresses[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

type fakeOrders struct{ *memDB }

func (f fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = f.tick()
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return f.withDetails(o), nil
}

func (f fakeOrders) GetByIDForUser(_ context.Context, id, userID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.CustomerID != userID {
		return nil, nil
	}
	return f.withDetails(o), nil
}

func (f fakeOrders) List(_ context.Context, flt repository.OrderListFilter) ([]*models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if flt.CustomerID != nil && o.CustomerID != *flt.CustomerID {
			continue
		}
		if flt.Status != nil && o.Status != *flt.Status {
			continue
		}
		out = append(out, f.withDetails(o))
	}
	slices.SortFunc(out, func(a, b *models.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, int64(len(out)), nil
}

func (f fakeOrders) UpdateStatus(_ context.Context, id uuid.UUID, st models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		o.Status = st
	}
	return nil
}

func (f fakeOrders) UpdateCheckout(_ context.Context, id uuid.UUID, c repository.CheckoutFields) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.IsFinally {
		return false, nil
	}
	o.AddressID, o.Description, o.FirstName, o.LastName, o.Phone = c.AddressID, c.Description, c.FirstName, c.LastName, c.Phone
	return true, nil
}

func (f fakeOrders) SetDiscount(_ context.Context, id uuid.UUID, d int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.IsFinally {
		return false, nil
	}
	o.Discount = d
	return true, nil
}

func (f fakeOrders) RevertToPending(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.IsFinally {
		return false, nil
	}
	o.Status = models.OrderStatusPending
	return true, nil
}

func (f fakeOrders) MarkPaid(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		o.IsFinally = true
		o.Status = models.OrderStatusPaid
	}
	return nil
}

type fakeDetails struct{ *memDB }

func (f fakeDetails) BulkCreate(_ context.Context, items []models.OrderDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		f.details = append(f.details, items[i])
	}
	return nil
}

func (f fakeDetails) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withDetails(&models.Order{ID: orderID}).Details, nil
}

type fakePayments struct{ *memDB }

func (f fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = f.tick()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f fakePayments) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakePayments) GetByAuthority(_ context.Context, authority string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.Authority != nil && *p.Authority == authority {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakePayments) LatestPendingForUser(_ context.Context, userID uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.Payment
	for _, p := range f.payments {
		if p.CustomerID != userID || p.IsFinaly {
			continue
		}
		if p.Status != models.PaymentStatusCreated && p.Status != models.PaymentStatusAwaitingGateway {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f fakePayments) HasPendingForOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.OrderID == orderID && p.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakePayments) SetAuthority(_ context.Context, id uuid.UUID, authority string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		p.Authority = &authority
		p.Status = models.PaymentStatusAwaitingGateway
	}
	return nil
}

func (f fakePayments) MarkSucceeded(_ context.Context, id uuid.UUID, st models.PaymentStatus, code, refID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.IsFinaly {
		return false, nil
	}
	p.IsFinaly, p.Status, p.StatusCode, p.RefID, p.Message = true, st, code, refID, ""
	return true, nil
}

func (f fakePayments) MarkFailed(_ context.Context, id uuid.UUID, st models.PaymentStatus, code, msg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || !p.IsPending() {
		return false, nil
	}
	p.Status, p.StatusCode, p.Message = st, code, msg
	return true, nil
}

func (f fakePayments) SetState(_ context.Context, id uuid.UUID, st repository.PaymentState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		p.Status, p.StatusCode, p.IsFinaly, p.Message = st.Status, st.StatusCode, st.IsFinaly, st.Message
	}
	return nil
}

func (f fakePayments) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.payments, id)
	return nil
}

func (f fakePayments) List(_ context.Context, flt repository.PaymentListFilter) ([]*models.Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Payment
	for _, p := range f.payments {
		if flt.IsFinaly != nil && p.IsFinaly != *flt.IsFinaly {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f fakePayments) Stats(context.Context, time.Time, time.Time) (repository.PaymentStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st repository.PaymentStats
	for _, p := range f.payments {
		st.TotalCount++
		if p.IsFinaly {
			st.SuccessCount++
			st.SuccessAmount += p.Amount
		}
	}
	return st, nil
}

func (f fakePayments) ExpireStale(context.Context, time.Time, string, string) (int64, error) {
	return 0, nil
}

type fakeNotifications struct{ *memDB }

func (f fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f fakeNotifications) ListByUser(_ context.Context, userID uuid.UUID, onlyUnread bool, _ int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID && (!onlyUnread || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f fakeNotifications) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// MockGateway
type MockGateway struct {
	RequestFunc func(ctx context.Context, in gateway.RequestInput) (*gateway.RequestResult, error)
	VerifyFunc  func(ctx context.Context, amount int64, authority string) (*gateway.VerifyResult, error)
	verifyCalls int
}

func (m *MockGateway) Request(ctx context.Context, in gateway.RequestInput) (*gateway.RequestResult, error) {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, in)
	}
	return &gateway.RequestResult{Authority: "A0000000000000000000000000000000001", Code: gateway.CodeSuccess}, nil
}

func (m *MockGateway) Verify(ctx context.Context, amount int64, authority string) (*gateway.VerifyResult, error) {
	m.verifyCalls++
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, amount, authority)
	}
	return &gateway.VerifyResult{Code: gateway.CodeSuccess, RefID: "REF"}, nil
}

func (m *MockGateway) StartPayURL(authority string) string {
	return "https://gateway.test/StartPay/" + authority
}

// MockMailer
type MockMailer struct {
	PublishFunc func(ctx context.Context, userID uuid.UUID, msg producer.EmailMessage) error
	sent        []producer.EmailMessage
}

func (m *MockMailer) PublishNotification(ctx context.Context, userID uuid.UUID, msg producer.EmailMessage) error {
	m.sent = append(m.sent, msg)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, userID, msg)
	}
	return nil
}

// recordingBus запоминает события для проверок
type recordingBus struct {
	mu       sync.Mutex
	created  []service.OrderCreatedEvent
	changed  []service.OrderStatusChangedEvent
	verified []service.PaymentVerifiedEvent
	failed   []service.PaymentFailedEvent
}

func (b *recordingBus) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, e)
	return nil
}

func (b *recordingBus) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changed = append(b.changed, e)
	return nil
}

func (b *recordingBus) PublishPaymentVerified(_ context.Context, e service.PaymentVerifiedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verified = append(b.verified, e)
	return nil
}

func (b *recordingBus) PublishPaymentFailed(_ context.Context, e service.PaymentFailedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = append(b.failed, e)
	return nil
}

func customerCtx(id uuid.UUID) context.Context {
	return service.WithRole(service.WithUserID(context.Background(), id), service.RoleCustomer)
}

func adminCtx() context.Context {
	return service.WithRole(service.WithUserID(context.Background(), uuid.New()), service.RoleAdmin)
}
