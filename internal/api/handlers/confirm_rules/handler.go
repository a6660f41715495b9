package confirm_rules

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

// Handle POST /api/v1/bookings/{bookingId}/confirm-rules
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var req models.ConfirmRulesRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings/{id}/confirm-rules - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
		return
	}

	result, err := h.service.ConfirmRules(r.Context(), bookingID, &req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/confirm-rules - Booking not found: booking_id=%s", bookingID)
			handlers.RespondNotFound(w, handlers.CodeBookingNotFound)

		case errors.Is(err, bookings.ErrInvalidStatus):
			h.logger.Warn("POST /bookings/{id}/confirm-rules - Invalid status: booking_id=%s", bookingID)
			handlers.RespondBadRequest(w, handlers.CodeInvalidStatus)

		case errors.Is(err, bookings.ErrUnknownProvider):
			h.logger.Warn("POST /bookings/{id}/confirm-rules - Unknown provider: booking_id=%s, provider=%s",
				bookingID, req.Provider)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("POST /bookings/{id}/confirm-rules - Validation failed: booking_id=%s: %v", bookingID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)

		default:
			h.logger.Error("POST /bookings/{id}/confirm-rules - Failed: booking_id=%s, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/confirm-rules - Rules accepted, payment created: booking_id=%s, payment_id=%s, provider=%s",
		bookingID, result.Payment.ID, req.Provider)
	handlers.RespondJSON(w, http.StatusOK, result)
}
