// Package refunds реализует движок возвратов: вычисление суммы,
// провайдер-специфичная диспетчеризация и обновление статуса платежа.
package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
)

// Engine движок возвратов
type Engine struct {
	bookingRepo BookingRepository
	paymentRepo PaymentRepository
	dispatchers map[domain.Provider]RefundDispatcher
	logger      Logger
}

// NewEngine создает движок возвратов
func NewEngine(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	dispatchers map[domain.Provider]RefundDispatcher,
	logger Logger,
) *Engine {
	return &Engine{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		dispatchers: dispatchers,
		logger:      logger,
	}
}

// ProcessRefund выполняет возврат по брони: сумма ограничивается [0, цена брони],
// возврат диспетчеризуется провайдер-специфичным путем, платеж переводится
// в refunded (сумма >= полной цены) или partially_refunded.
// Возвращает фактически примененную сумму и вид возврата.
func (e *Engine) ProcessRefund(ctx context.Context, bookingID string, amountCents int64, reason string) (int64, domain.RefundKind, error) {
	booking, err := e.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return 0, "", ErrBookingNotFound
		}
		return 0, "", fmt.Errorf("%w: ProcessRefund - get booking: %v", ErrInternal, err)
	}

	payment, err := e.paymentRepo.GetLatestByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			e.logger.Warn("ProcessRefund: booking id=%s has no payment", bookingID)
			return 0, "", ErrPaymentNotFound
		}
		return 0, "", fmt.Errorf("%w: ProcessRefund - get payment: %v", ErrInternal, err)
	}

	if !payment.CanBeRefunded() {
		e.logger.Warn("ProcessRefund: payment id=%s status=%s is not refundable", payment.ID, payment.Status)
		return 0, "", ErrNotRefundable
	}

	amount := domain.ClampRefund(amountCents, booking.PriceCents)
	if amount == 0 {
		e.logger.Info("ProcessRefund: nothing to refund for booking id=%s", bookingID)
		return 0, "", nil
	}

	dispatcher, ok := e.dispatchers[payment.Provider]
	if !ok {
		return 0, "", ErrUnknownProvider
	}

	if err := dispatcher.Refund(ctx, payment, amount, reason); err != nil {
		e.logger.Error("ProcessRefund: provider=%s refund failed for payment id=%s: %v",
			payment.Provider, payment.ID, err)
		return 0, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	kind := domain.RefundKindFor(amount, booking.PriceCents)
	if err := e.paymentRepo.MarkRefunded(ctx, payment.ID, kind, reason, time.Now().UTC()); err != nil {
		return 0, "", fmt.Errorf("%w: ProcessRefund - mark refunded: %v", ErrInternal, err)
	}

	e.logger.Info("ProcessRefund: booking id=%s payment id=%s refunded %d cents (%s), reason=%q",
		bookingID, payment.ID, amount, kind, reason)
	return amount, kind, nil
}
