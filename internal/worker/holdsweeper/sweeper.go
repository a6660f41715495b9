// Package holdsweeper фоновый процесс экспирации просроченных холдов.
// Холд, не оплаченный до hold_expires_at, освобождает слот переводом
// брони в expired. Попутно чистятся просроченные ключи идемпотентности.
package holdsweeper

import (
	"context"
	"time"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	ExpireHeld(ctx context.Context, now time.Time) (int64, error)
}

// KeyPurger интерфейс чистки просроченных ключей идемпотентности
type KeyPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Metrics интерфейс метрик sweeper'а
type Metrics interface {
	AddExpiredHolds(n int64)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Sweeper периодически экспирирует просроченные холды.
// Экспирация выполняется одним условным UPDATE, поэтому одновременный
// запуск нескольких экземпляров безопасен: каждый холд истекает ровно раз.
type Sweeper struct {
	bookingRepo BookingRepository
	purgers     []KeyPurger
	interval    time.Duration
	metrics     Metrics
	logger      Logger
}

// New создает sweeper
func New(bookingRepo BookingRepository, purgers []KeyPurger, interval time.Duration, metrics Metrics, logger Logger) *Sweeper {
	return &Sweeper{
		bookingRepo: bookingRepo,
		purgers:     purgers,
		interval:    interval,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run крутит цикл до отмены контекста. Первый проход выполняется сразу,
// чтобы не ждать целый интервал после рестарта сервиса.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("HoldSweeper: started, interval=%s", s.interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("HoldSweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.bookingRepo.ExpireHeld(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("HoldSweeper: expire held bookings: %v", err)
	} else if expired > 0 {
		s.logger.Info("HoldSweeper: expired %d held bookings", expired)
		if s.metrics != nil {
			s.metrics.AddExpiredHolds(expired)
		}
	}

	for _, p := range s.purgers {
		if _, err := p.PurgeExpired(ctx); err != nil {
			s.logger.Warn("HoldSweeper: purge expired idempotency keys: %v", err)
		}
	}
}
