package cleanup

import (
	"context"
	"strconv"
	"time"

	"shop-service/internal/gateway"
	"shop-service/internal/repository"

	"go.uber.org/zap"
)

const staleMessage = "پرداخت در زمان مقرر تایید نشد"

type CleanupService struct {
	payments        repository.PaymentRepo
	notifications   repository.NotificationRepo
	staleAfter      time.Duration
	notificationTTL time.Duration
	log             *zap.Logger
	now             func() time.Time
}

func NewCleanupService(repo *repository.Repository, staleAfter, notificationTTL time.Duration, log *zap.Logger) *CleanupService {
	return &CleanupService{
		payments:        repo.Payments,
		notifications:   repo.Notifications,
		staleAfter:      staleAfter,
		notificationTTL: notificationTTL,
		log:             log,
		now:             time.Now,
	}
}

// ExpireStalePayments переводит платежи, по которым так и не пришёл callback, в gateway_error
func (c *CleanupService) ExpireStalePayments(ctx context.Context) error {
	before := c.now().Add(-c.staleAfter)
	n, err := c.payments.ExpireStale(ctx, before, strconv.Itoa(gateway.CodeRequestError), staleMessage)
	if err != nil {
		c.log.Error("failed to expire stale payments", zap.Error(err))
		return err
	}
	if n > 0 {
		c.log.Info("expired stale payments", zap.Int64("count", n))
	}
	return nil
}

// PurgeReadNotifications удаляет прочитанные уведомления старше notificationTTL
func (c *CleanupService) PurgeReadNotifications(ctx context.Context) error {
	before := c.now().Add(-c.notificationTTL)
	n, err := c.notifications.DeleteReadBefore(ctx, before)
	if err != nil {
		c.log.Error("failed to purge read notifications", zap.Error(err))
		return err
	}
	if n > 0 {
		c.log.Info("purged read notifications", zap.Int64("count", n))
	}
	return nil
}

// RunFullCleanup выполняет все задачи очистки
func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")

	if err := c.ExpireStalePayments(ctx); err != nil {
		return err
	}
	if err := c.PurgeReadNotifications(ctx); err != nil {
		return err
	}

	c.log.Info("full cleanup completed")
	return nil
}
