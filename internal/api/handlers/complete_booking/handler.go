package complete_booking

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kir4ng/PCS-BookingService/internal/api/handlers"
	"github.com/kir4ng/PCS-BookingService/internal/service/bookings"
	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/complete
//
// При досрочном завершении звонка сервис считает пропорциональный возврат
// за неиспользованные минуты и возвращает его сумму в ответе.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var req models.CompleteBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings/{id}/complete - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
		return
	}

	result, err := h.service.Complete(r.Context(), bookingID, &req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/complete - Booking not found: booking_id=%s", bookingID)
			handlers.RespondNotFound(w, handlers.CodeBookingNotFound)

		case errors.Is(err, bookings.ErrInvalidStatus):
			h.logger.Warn("POST /bookings/{id}/complete - Invalid status: booking_id=%s", bookingID)
			handlers.RespondBadRequest(w, handlers.CodeInvalidStatus)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("POST /bookings/{id}/complete - Validation failed: booking_id=%s: %v", bookingID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)

		default:
			h.logger.Error("POST /bookings/{id}/complete - Failed: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/complete - Call completed: booking_id=%s, refund_cents=%d",
		bookingID, result.RefundCents)
	handlers.RespondJSON(w, http.StatusOK, result)
}
