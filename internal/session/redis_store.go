package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/cache"
	"shop-service/internal/cart"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cartPrefix    = "cart:"
	paymentPrefix = "payment_session:"
	maxRetries    = 3
)

type RedisStore struct {
	rdb        *redis.Client
	log        *zap.Logger
	cartTTL    time.Duration
	paymentTTL time.Duration
}

func NewRedisStore(rc *cache.RedisClient, cartTTL, paymentTTL time.Duration, log *zap.Logger) *RedisStore {
	return &RedisStore{
		rdb:        rc.Client(),
		log:        log,
		cartTTL:    cartTTL,
		paymentTTL: paymentTTL,
	}
}

func (s *RedisStore) LoadCart(ctx context.Context, sid string) (*cart.Cart, error) {
	if sid == "" {
		return nil, ErrNoSession
	}
	data, err := s.rdb.Get(ctx, cartPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c, err := cart.Decode(data)
	if err != nil {
		// битая корзина не должна ломать сессию; перезапишется при следующем изменении
		s.log.Warn("corrupted cart in session, starting over", zap.String("sid", sid), zap.Error(err))
		return cart.New(), nil
	}
	return c, nil
}

// UpdateCart выполняет read-modify-write под WATCH; при конфликте повторяет до maxRetries раз
func (s *RedisStore) UpdateCart(ctx context.Context, sid string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	if sid == "" {
		return nil, ErrNoSession
	}
	key := cartPrefix + sid

	var result *cart.Cart
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		c, err := cart.Decode(data)
		if err != nil {
			s.log.Warn("corrupted cart in session, starting over", zap.String("sid", sid), zap.Error(err))
			c = cart.New()
		}
		if err := fn(c); err != nil {
			return err
		}
		out, err := c.Marshal()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.cartTTL)
			return nil
		})
		if err == nil {
			result = c
		}
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *RedisStore) SavePayment(ctx context.Context, sid string, ref PaymentRef) error {
	if sid == "" {
		return ErrNoSession
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, paymentPrefix+sid, data, s.paymentTTL).Err()
}

func (s *RedisStore) Payment(ctx context.Context, sid string) (*PaymentRef, error) {
	if sid == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, paymentPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ref PaymentRef
	if err := json.Unmarshal(data, &ref); err != nil {
		// битая запись бесполезна, удаляем
		_ = s.rdb.Del(ctx, paymentPrefix+sid).Err()
		return nil, nil
	}
	return &ref, nil
}

func (s *RedisStore) ClearPayment(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.rdb.Del(ctx, paymentPrefix+sid).Err()
}
