package reconciler

import (
	"context"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Confirm(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string, reason string, actor domain.CancelActor) error
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByProviderPaymentID(ctx context.Context, provider domain.Provider, providerPaymentID string) (*domain.Payment, error)
	AttachProviderPaymentID(ctx context.Context, id, providerPaymentID string) error
	MarkPending(ctx context.Context, id string) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
