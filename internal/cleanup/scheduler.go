package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup *CleanupService
	log     *zap.Logger
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	paymentsEvery      time.Duration
	notificationsEvery time.Duration
}

func NewScheduler(cleanup *CleanupService, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cleanup:            cleanup,
		log:                log,
		stopCh:             make(chan struct{}),
		paymentsEvery:      5 * time.Minute,
		notificationsEvery: 6 * time.Hour,
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting cleanup scheduler")

	s.wg.Add(2)
	go s.run(ctx, "stale payments", s.paymentsEvery, true, s.cleanup.ExpireStalePayments)
	go s.run(ctx, "read notifications", s.notificationsEvery, false, s.cleanup.PurgeReadNotifications)
}

// Stop останавливает планировщик и ждёт завершения горутин
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.log.Info("stopping cleanup scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, name string, every time.Duration, immediately bool, task func(context.Context) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	if immediately {
		if err := task(ctx); err != nil {
			s.log.Error("initial cleanup failed", zap.String("task", name), zap.Error(err))
		}
	}

	for {
		select {
		case <-ticker.C:
			if err := task(ctx); err != nil {
				s.log.Error("cleanup failed", zap.String("task", name), zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("cleanup stopped", zap.String("task", name))
			return
		case <-ctx.Done():
			s.log.Info("cleanup cancelled", zap.String("task", name))
			return
		}
	}
}

// RunOnceNow выполняет полную очистку немедленно
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	return s.cleanup.RunFullCleanup(ctx)
}
