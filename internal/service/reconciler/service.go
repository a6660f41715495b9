// Package reconciler отображает нормализованные вебхук-события провайдеров
// на переходы состояний Booking/Payment.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
)

// Service применяет нормализованные вебхук-события к состоянию брони и платежа
type Service struct {
	bookingRepo BookingRepository
	paymentRepo PaymentRepository
	txManager   TransactionManager
	logger      Logger
}

// NewService создает reconciler
func NewService(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// Apply применяет событие: разрешает платеж и бронь, затем в одной транзакции
// выполняет переход платежа и (для paid) подтверждение брони.
//
// Поздний paid-вебхук по уже истекшей броне отклоняется как ErrInvalidStatus:
// экспирация холда авторитетна, вебхук-путь не воскрешает бронь.
func (s *Service) Apply(ctx context.Context, evt *domain.NormalizedWebhookEvent) error {
	payment, err := s.resolvePayment(ctx, evt)
	if err != nil {
		return err
	}

	booking, err := s.bookingRepo.GetByID(ctx, payment.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Error("Apply: payment id=%s references missing booking id=%s",
				payment.ID, payment.BookingID)
			return ErrBookingNotFound
		}
		return fmt.Errorf("%w: Apply - get booking: %v", ErrInternal, err)
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if evt.ProviderPaymentID != "" && payment.ProviderPaymentID == nil {
			if err := s.paymentRepo.AttachProviderPaymentID(txCtx, payment.ID, evt.ProviderPaymentID); err != nil {
				return fmt.Errorf("attach provider payment id: %w", err)
			}
		}

		switch evt.Outcome {
		case domain.OutcomePending:
			return s.paymentRepo.MarkPending(txCtx, payment.ID)

		case domain.OutcomePaid:
			if err := s.paymentRepo.MarkPaid(txCtx, payment.ID, time.Now().UTC()); err != nil {
				return err
			}
			return s.bookingRepo.Confirm(txCtx, booking.ID)

		case domain.OutcomeFailed:
			if err := s.paymentRepo.MarkFailed(txCtx, payment.ID); err != nil {
				return err
			}
			if evt.Final {
				// Провайдер сигнализирует окончательность: повторная оплата
				// невозможна, бронь отменяется
				return s.bookingRepo.Cancel(txCtx, booking.ID,
					domain.CancelReasonPaymentFailed, domain.CancelledBySystem)
			}
			// Не финальный отказ: бронь остается в awaiting_payment,
			// пользователь может оплатить повторно до истечения холда
			return nil

		default:
			return fmt.Errorf("%w: unknown outcome %q", ErrInternal, evt.Outcome)
		}
	})

	if err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrInvalidStatus), errors.Is(err, paymentRepo.ErrInvalidStatus):
			s.logger.Warn("Apply: rejected %s webhook for payment id=%s booking id=%s status=%s: %v",
				evt.Outcome, payment.ID, booking.ID, booking.Status, err)
			return ErrInvalidStatus
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			return ErrBookingNotFound
		case errors.Is(err, paymentRepo.ErrPaymentNotFound):
			return ErrPaymentNotFound
		default:
			s.logger.Error("Apply: failed to apply %s webhook for payment id=%s: %v",
				evt.Outcome, payment.ID, err)
			return fmt.Errorf("%w: Apply - transaction: %v", ErrInternal, err)
		}
	}

	s.logger.Info("Apply: provider=%s event=%s outcome=%s applied to payment id=%s booking id=%s",
		evt.Provider, evt.EventID, evt.Outcome, payment.ID, booking.ID)
	return nil
}

// resolvePayment находит платеж по metadata paymentId или по идентификатору провайдера
func (s *Service) resolvePayment(ctx context.Context, evt *domain.NormalizedWebhookEvent) (*domain.Payment, error) {
	if evt.PaymentID != "" {
		payment, err := s.paymentRepo.GetByID(ctx, evt.PaymentID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			return nil, fmt.Errorf("%w: resolvePayment - by id: %v", ErrInternal, err)
		}
		// Фоллбек на поиск по идентификатору провайдера
	}

	if evt.ProviderPaymentID != "" {
		payment, err := s.paymentRepo.GetByProviderPaymentID(ctx, evt.Provider, evt.ProviderPaymentID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			return nil, fmt.Errorf("%w: resolvePayment - by provider id: %v", ErrInternal, err)
		}
	}

	s.logger.Warn("Apply: cannot resolve payment for provider=%s event=%s (paymentId=%q providerPaymentId=%q)",
		evt.Provider, evt.EventID, evt.PaymentID, evt.ProviderPaymentID)
	return nil, ErrPaymentNotFound
}
