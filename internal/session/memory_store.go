package session

import (
	"context"
	"sync"
	"time"

	"shop-service/internal/cart"

	"go.uber.org/zap"
)

type cartEntry struct {
	data      []byte
	expiresAt time.Time
}

type paymentEntry struct {
	ref       PaymentRef
	expiresAt time.Time
}

// MemoryStore хранит сессии в памяти процесса; для локального запуска без redis и тестов.
// Корзина живёт cartTTL с последнего изменения, как ключ в redis; cartTTL <= 0 отключает истечение.
type MemoryStore struct {
	mu         sync.Mutex
	carts      map[string]cartEntry
	payments   map[string]paymentEntry
	cartTTL    time.Duration
	paymentTTL time.Duration
	nextSweep  time.Time
	log        *zap.Logger
	now        func() time.Time
}

func NewMemoryStore(cartTTL, paymentTTL time.Duration, log *zap.Logger) *MemoryStore {
	return &MemoryStore{
		carts:      make(map[string]cartEntry),
		payments:   make(map[string]paymentEntry),
		cartTTL:    cartTTL,
		paymentTTL: paymentTTL,
		log:        log,
		now:        time.Now,
	}
}

// WithClock подменяет часы хранилища
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemoryStore) LoadCart(_ context.Context, sid string) (*cart.Cart, error) {
	if sid == "" {
		return nil, ErrNoSession
	}
	s.mu.Lock()
	data := s.cartData(sid)
	s.mu.Unlock()
	return s.decode(sid, data), nil
}

func (s *MemoryStore) UpdateCart(_ context.Context, sid string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	if sid == "" {
		return nil, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decode(sid, s.cartData(sid))
	if err := fn(c); err != nil {
		return nil, err
	}
	out, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	s.carts[sid] = cartEntry{data: out, expiresAt: s.cartExpiry()}
	s.sweep()
	return c, nil
}

// cartData вызывается под s.mu
func (s *MemoryStore) cartData(sid string) []byte {
	e, ok := s.carts[sid]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.carts, sid)
		return nil
	}
	return e.data
}

func (s *MemoryStore) cartExpiry() time.Time {
	if s.cartTTL <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.cartTTL)
}

// sweep раз в cartTTL удаляет брошенные корзины; вызывается под s.mu
func (s *MemoryStore) sweep() {
	if s.cartTTL <= 0 {
		return
	}
	now := s.now()
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(s.cartTTL)
	for sid, e := range s.carts {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.carts, sid)
		}
	}
	for sid, e := range s.payments {
		if now.After(e.expiresAt) {
			delete(s.payments, sid)
		}
	}
}

func (s *MemoryStore) decode(sid string, data []byte) *cart.Cart {
	c, err := cart.Decode(data)
	if err != nil {
		s.log.Warn("corrupted cart in session, starting over", zap.String("sid", sid), zap.Error(err))
		return cart.New()
	}
	return c
}

// SetRawCart кладёт в сессию произвольные данные корзины, например в старом формате
func (s *MemoryStore) SetRawCart(sid string, data []byte) {
	s.mu.Lock()
	s.carts[sid] = cartEntry{data: data, expiresAt: s.cartExpiry()}
	s.mu.Unlock()
}

func (s *MemoryStore) SavePayment(_ context.Context, sid string, ref PaymentRef) error {
	if sid == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	s.payments[sid] = paymentEntry{ref: ref, expiresAt: s.now().Add(s.paymentTTL)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Payment(_ context.Context, sid string) (*PaymentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.payments[sid]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.payments, sid)
		return nil, nil
	}
	ref := e.ref
	return &ref, nil
}

func (s *MemoryStore) ClearPayment(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.payments, sid)
	s.mu.Unlock()
	return nil
}
