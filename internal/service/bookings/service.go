package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
)

// Service сервис жизненного цикла бронирований приватных звонков
type Service struct {
	bookingRepo  BookingRepository
	paymentRepo  PaymentRepository
	linkers      map[domain.Provider]CheckoutLinker
	refundEngine RefundEngine
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger

	defaultHoldMinutes int
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	linkers map[domain.Provider]CheckoutLinker,
	refundEngine RefundEngine,
	txManager TransactionManager,
	logger Logger,
	defaultHoldMinutes int,
) *Service {
	if defaultHoldMinutes <= 0 {
		defaultHoldMinutes = domain.DefaultHoldMinutes
	}
	return &Service{
		bookingRepo:        bookingRepo,
		paymentRepo:        paymentRepo,
		linkers:            linkers,
		refundEngine:       refundEngine,
		txManager:          txManager,
		timeProvider:       RealTimeProvider{},
		logger:             logger,
		defaultHoldMinutes: defaultHoldMinutes,
	}
}

// Create создает бронирование в статусе draft
// Слот на этом этапе еще не занят - занятие происходит в Hold
func (s *Service) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingResponse, error) {
	if err := validateCreateRequest(req); err != nil {
		s.logger.Warn("Create: validation failed for user=%d performer=%d: %v", req.UserID, req.PerformerID, err)
		return nil, err
	}

	start := req.StartTime.UTC()
	booking := &domain.Booking{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		PerformerID:     req.PerformerID,
		SlotID:          req.SlotID,
		CallType:        req.CallType,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:          domain.StatusDraft,
	}

	created, err := s.bookingRepo.Create(ctx, booking)
	if err != nil {
		s.logger.Error("Create: repository error for user=%d performer=%d: %v", req.UserID, req.PerformerID, err)
		return nil, fmt.Errorf("%w: Create - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Create: booking id=%s created for user=%d performer=%d start=%s",
		created.ID, created.UserID, created.PerformerID, created.StartTime.Format(time.RFC3339))
	return models.FromDomainBooking(created), nil
}

// Hold ставит холд на слот: draft -> held.
// Проверка доступности интервала и установка статуса атомарны на уровне
// хранилища; проигрыш гонки возвращается как ErrSlotUnavailable.
func (s *Service) Hold(ctx context.Context, bookingID string, req *models.HoldBookingRequest) (*models.BookingResponse, error) {
	holdMinutes := req.HoldMinutes
	if holdMinutes == 0 {
		holdMinutes = s.defaultHoldMinutes
	}
	if holdMinutes < domain.MinHoldMinutes || holdMinutes > domain.MaxHoldMinutes {
		s.logger.Warn("Hold: invalid holdMinutes=%d for booking=%s", holdMinutes, bookingID)
		return nil, fmt.Errorf("%w: holdMinutes out of range", ErrInvalidInput)
	}

	holdExpiresAt := s.timeProvider.Now().Add(time.Duration(holdMinutes) * time.Minute)

	if err := s.bookingRepo.Hold(ctx, bookingID, holdExpiresAt); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			s.logger.Warn("Hold: booking id=%s not found", bookingID)
			return nil, ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrSlotNotAvailable):
			s.logger.Warn("Hold: slot unavailable for booking id=%s", bookingID)
			return nil, ErrSlotUnavailable
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("Hold: booking id=%s is not in draft", bookingID)
			return nil, ErrInvalidStatus
		default:
			s.logger.Error("Hold: repository error for booking id=%s: %v", bookingID, err)
			return nil, fmt.Errorf("%w: Hold - repository error: %v", ErrInternal, err)
		}
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		s.logger.Error("Hold: failed to re-read booking id=%s: %v", bookingID, err)
		return nil, fmt.Errorf("%w: Hold - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Hold: booking id=%s held until %s", bookingID, holdExpiresAt.Format(time.RFC3339))
	return models.FromDomainBooking(booking), nil
}

// ConfirmRules фиксирует принятие правил звонка: held -> awaiting_payment.
// В той же транзакции создается платеж у выбранного провайдера со ссылкой
// на оплату; дедлайн оплаты (expires_at) носит справочный характер -
// авторитетно истечение холда, за которым следит sweeper.
func (s *Service) ConfirmRules(ctx context.Context, bookingID string, req *models.ConfirmRulesRequest) (*models.ConfirmRulesResponse, error) {
	linker, ok := s.linkers[req.Provider]
	if !ok {
		s.logger.Warn("ConfirmRules: unknown provider=%s for booking=%s", req.Provider, bookingID)
		return nil, ErrUnknownProvider
	}

	now := s.timeProvider.Now()

	var (
		booking *domain.Booking
		payment *domain.Payment
	)

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.bookingRepo.ConfirmRules(txCtx, bookingID, now); err != nil {
			return err
		}

		b, err := s.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		booking = b

		paymentID := uuid.NewString()
		p := &domain.Payment{
			ID:          paymentID,
			BookingID:   bookingID,
			Provider:    req.Provider,
			PaymentLink: linker.CheckoutLink(paymentID, b.PriceCents, b.Currency),
			AmountCents: b.PriceCents, // всегда равна цене брони на момент создания
			Currency:    b.Currency,
			Status:      domain.PaymentCreated,
			ExpiresAt:   b.HoldExpiresAt,
			Metadata: map[string]string{
				"paymentId": paymentID,
				"userId":    fmt.Sprintf("%d", b.UserID),
				"bookingId": b.ID,
			},
		}

		created, err := s.paymentRepo.Create(txCtx, p)
		if err != nil {
			return err
		}
		payment = created
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			s.logger.Warn("ConfirmRules: booking id=%s not found", bookingID)
			return nil, ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("ConfirmRules: booking id=%s is not held", bookingID)
			return nil, ErrInvalidStatus
		default:
			s.logger.Error("ConfirmRules: failed for booking id=%s: %v", bookingID, err)
			return nil, fmt.Errorf("%w: ConfirmRules - repository error: %v", ErrInternal, err)
		}
	}

	s.logger.Info("ConfirmRules: booking id=%s awaiting payment, payment id=%s provider=%s",
		bookingID, payment.ID, payment.Provider)
	return &models.ConfirmRulesResponse{
		Booking: models.FromDomainBooking(booking),
		Payment: models.FromDomainPayment(payment),
	}, nil
}

// Confirm подтверждает бронирование: awaiting_payment|held -> confirmed.
// Обычно вызывается reconciler'ом по paid-вебхуку; прямой вызов из API
// оставлен для бесплатных броней и ручного подтверждения оператором.
func (s *Service) Confirm(ctx context.Context, bookingID string) (*models.BookingResponse, error) {
	if err := s.bookingRepo.Confirm(ctx, bookingID); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			s.logger.Warn("Confirm: booking id=%s not found", bookingID)
			return nil, ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("Confirm: booking id=%s not confirmable", bookingID)
			return nil, ErrInvalidStatus
		default:
			s.logger.Error("Confirm: repository error for booking id=%s: %v", bookingID, err)
			return nil, fmt.Errorf("%w: Confirm - repository error: %v", ErrInternal, err)
		}
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		s.logger.Error("Confirm: failed to re-read booking id=%s: %v", bookingID, err)
		return nil, fmt.Errorf("%w: Confirm - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Confirm: booking id=%s confirmed", bookingID)
	return models.FromDomainBooking(booking), nil
}

// Cancel отменяет бронирование
// Если по брони уже прошла оплата, инициируется полный возврат
func (s *Service) Cancel(ctx context.Context, bookingID string, req *models.CancelBookingRequest) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("Cancel: booking id=%s not found", bookingID)
			return ErrBookingNotFound
		}
		s.logger.Error("Cancel: repository error for booking id=%s: %v", bookingID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	if err := s.bookingRepo.Cancel(ctx, bookingID, req.Reason, req.CancelledBy); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			return ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("Cancel: booking id=%s cannot be cancelled, status=%s", bookingID, booking.Status)
			return ErrInvalidStatus
		default:
			s.logger.Error("Cancel: repository error for booking id=%s: %v", bookingID, err)
			return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
		}
	}

	s.logger.Info("Cancel: booking id=%s cancelled by %s, reason=%q", bookingID, req.CancelledBy, req.Reason)

	// Возврат за отмененную оплаченную бронь - полная цена
	payment, err := s.paymentRepo.GetLatestByBooking(ctx, bookingID)
	if err == nil && payment.IsPaid() {
		if _, _, err := s.refundEngine.ProcessRefund(ctx, bookingID, booking.PriceCents, req.Reason); err != nil {
			// Отмена уже состоялась; возврат можно повторить отдельно
			s.logger.Error("Cancel: refund failed for booking id=%s: %v", bookingID, err)
		}
	} else if err != nil && !errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		s.logger.Error("Cancel: failed to load payment for booking id=%s: %v", bookingID, err)
	}

	return nil
}

// Complete завершает звонок: confirmed -> completed.
// Если фактическая длительность меньше забронированной, разница
// возвращается автоматически по поминутной ставке.
func (s *Service) Complete(ctx context.Context, bookingID string, req *models.CompleteBookingRequest) (*models.CompleteBookingResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("Complete: booking id=%s not found", bookingID)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("Complete: repository error for booking id=%s: %v", bookingID, err)
		return nil, fmt.Errorf("%w: Complete - repository error: %v", ErrInternal, err)
	}

	now := s.timeProvider.Now()
	if err := s.bookingRepo.Complete(ctx, bookingID, now); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			return nil, ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("Complete: booking id=%s is not confirmed, status=%s", bookingID, booking.Status)
			return nil, ErrInvalidStatus
		default:
			s.logger.Error("Complete: repository error for booking id=%s: %v", bookingID, err)
			return nil, fmt.Errorf("%w: Complete - repository error: %v", ErrInternal, err)
		}
	}

	resp := &models.CompleteBookingResponse{}

	actualMinutes := booking.DurationMinutes
	if req.ActualDurationMinutes != nil {
		actualMinutes = *req.ActualDurationMinutes
	}

	if refund := domain.EarlyEndRefund(booking.PriceCents, booking.DurationMinutes, actualMinutes); refund > 0 {
		applied, kind, err := s.refundEngine.ProcessRefund(ctx, bookingID, refund, "early_call_end")
		if err != nil {
			// Завершение уже состоялось; возврат можно повторить отдельно
			s.logger.Error("Complete: refund failed for booking id=%s: %v", bookingID, err)
		} else {
			resp.RefundCents = applied
			resp.RefundKind = string(kind)
			s.logger.Info("Complete: booking id=%s refunded %d cents (%s) for early end after %d/%d minutes",
				bookingID, applied, kind, actualMinutes, booking.DurationMinutes)
		}
	}

	updated, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		s.logger.Error("Complete: failed to re-read booking id=%s: %v", bookingID, err)
		return nil, fmt.Errorf("%w: Complete - repository error: %v", ErrInternal, err)
	}

	resp.Booking = models.FromDomainBooking(updated)
	s.logger.Info("Complete: booking id=%s completed", bookingID)
	return resp, nil
}

// MarkNoShow отмечает неявку: confirmed -> no_show
func (s *Service) MarkNoShow(ctx context.Context, bookingID string) error {
	if err := s.bookingRepo.MarkNoShow(ctx, bookingID); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrBookingNotFound):
			s.logger.Warn("MarkNoShow: booking id=%s not found", bookingID)
			return ErrBookingNotFound
		case errors.Is(err, bookingRepo.ErrInvalidStatus):
			s.logger.Warn("MarkNoShow: booking id=%s is not confirmed", bookingID)
			return ErrInvalidStatus
		default:
			s.logger.Error("MarkNoShow: repository error for booking id=%s: %v", bookingID, err)
			return fmt.Errorf("%w: MarkNoShow - repository error: %v", ErrInternal, err)
		}
	}

	s.logger.Info("MarkNoShow: booking id=%s marked as no-show", bookingID)
	return nil
}

// GetByID получает бронирование по ID
func (s *Service) GetByID(ctx context.Context, bookingID string) (*models.BookingResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("GetByID: repository error for booking id=%s: %v", bookingID, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainBooking(booking), nil
}

// GetUserBookings получает историю бронирований пользователя
func (s *Service) GetUserBookings(ctx context.Context, userID int64, status *string) (*models.BookingListResponse, error) {
	var domainStatus *domain.BookingStatus
	if status != nil {
		st := domain.BookingStatus(*status)
		if !knownStatus(st) {
			s.logger.Warn("GetUserBookings: invalid status=%s for user=%d", *status, userID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &st
	}

	bookings, err := s.bookingRepo.ListByUser(ctx, userID, domainStatus)
	if err != nil {
		s.logger.Error("GetUserBookings: repository error for user=%d: %v", userID, err)
		return nil, fmt.Errorf("%w: GetUserBookings - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainBookingList(bookings), nil
}

// GetPerformerBookings получает брони перформера за период
// activeOnly=true возвращает только блокирующие слот брони (предикат доступности)
func (s *Service) GetPerformerBookings(ctx context.Context, performerID int64, from, to *time.Time, activeOnly bool) (*models.BookingListResponse, error) {
	bookings, err := s.bookingRepo.ListByPerformer(ctx, performerID, from, to, activeOnly)
	if err != nil {
		s.logger.Error("GetPerformerBookings: repository error for performer=%d: %v", performerID, err)
		return nil, fmt.Errorf("%w: GetPerformerBookings - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainBookingList(bookings), nil
}

func validateCreateRequest(req *models.CreateBookingRequest) error {
	if req.UserID <= 0 || req.PerformerID <= 0 {
		return fmt.Errorf("%w: userId and performerId are required", ErrInvalidInput)
	}
	if req.CallType != domain.CallTypeVideo && req.CallType != domain.CallTypeAudio {
		return fmt.Errorf("%w: unknown callType %q", ErrInvalidInput, req.CallType)
	}
	if req.DurationMinutes < domain.MinCallDurationMinutes || req.DurationMinutes > domain.MaxCallDurationMinutes {
		return fmt.Errorf("%w: durationMinutes out of range", ErrInvalidInput)
	}
	if req.PriceCents < 0 {
		return fmt.Errorf("%w: priceCents must be non-negative", ErrInvalidInput)
	}
	if req.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}
	return nil
}

func knownStatus(st domain.BookingStatus) bool {
	switch st {
	case domain.StatusDraft, domain.StatusHeld, domain.StatusAwaitingPayment,
		domain.StatusConfirmed, domain.StatusCompleted, domain.StatusNoShow,
		domain.StatusCancelled, domain.StatusExpired:
		return true
	}
	return false
}
