package refunds

import (
	"context"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetLatestByBooking(ctx context.Context, bookingID string) (*domain.Payment, error)
	MarkRefunded(ctx context.Context, id string, kind domain.RefundKind, reason string, refundedAt time.Time) error
}

// RefundDispatcher провайдер-специфичный путь возврата средств
type RefundDispatcher interface {
	Refund(ctx context.Context, payment *domain.Payment, amountCents int64, reason string) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
