package hold_booking

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

// Handle POST /api/v1/bookings/{bookingId}/hold
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var req models.HoldBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings/{id}/hold - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
		return
	}

	result, err := h.service.Hold(r.Context(), bookingID, &req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrSlotUnavailable):
			h.logger.Warn("POST /bookings/{id}/hold - Slot unavailable: booking_id=%s, user_id=%d",
				bookingID, req.UserID)
			handlers.RespondConflict(w, handlers.CodeSlotUnavailable)

		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/hold - Booking not found: booking_id=%s", bookingID)
			handlers.RespondNotFound(w, handlers.CodeBookingNotFound)

		case errors.Is(err, bookings.ErrInvalidStatus):
			h.logger.Warn("POST /bookings/{id}/hold - Invalid status: booking_id=%s", bookingID)
			handlers.RespondBadRequest(w, handlers.CodeInvalidStatus)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("POST /bookings/{id}/hold - Validation failed: booking_id=%s: %v", bookingID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)

		default:
			h.logger.Error("POST /bookings/{id}/hold - Failed: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/hold - Slot held: booking_id=%s, user_id=%d, hold_expires_at=%v",
		bookingID, req.UserID, result.HoldExpiresAt)
	handlers.RespondJSON(w, http.StatusOK, result)
}
