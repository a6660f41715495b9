package bookings

import (
	"context"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Hold(ctx context.Context, id string, holdExpiresAt time.Time) error
	ConfirmRules(ctx context.Context, id string, acceptedAt time.Time) error
	Confirm(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string, reason string, actor domain.CancelActor) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
	MarkNoShow(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error)
	ListByPerformer(ctx context.Context, performerID int64, from, to *time.Time, activeOnly bool) ([]*domain.Booking, error)
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	GetLatestByBooking(ctx context.Context, bookingID string) (*domain.Payment, error)
}

// CheckoutLinker строит ссылку на оплату у провайдера
type CheckoutLinker interface {
	CheckoutLink(paymentID string, amountCents int64, currency string) string
}

// RefundEngine интерфейс движка возвратов
type RefundEngine interface {
	ProcessRefund(ctx context.Context, bookingID string, amountCents int64, reason string) (int64, domain.RefundKind, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// TimeProvider источник текущего времени (подменяется в тестах)
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider системное время
type RealTimeProvider struct{}

// Now возвращает текущее время в UTC
func (RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
