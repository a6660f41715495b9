package create_booking

import (
	"errors"
	"net/http"

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

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidInput)
		return
	}

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Validation failed: user_id=%d, performer_id=%d: %v",
				req.UserID, req.PerformerID, err)
			handlers.RespondBadRequest(w, handlers.CodeInvalidInput)

		default:
			h.logger.Error("POST /bookings - Failed to create booking: user_id=%d, performer_id=%d, error=%v",
				req.UserID, req.PerformerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings - Booking created: booking_id=%s, user_id=%d, performer_id=%d",
		result.ID, req.UserID, req.PerformerID)
	handlers.RespondJSON(w, http.StatusCreated, result)
}
