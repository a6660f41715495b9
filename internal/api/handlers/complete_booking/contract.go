package complete_booking

import (
	"context"

	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
)

type BookingService interface {
	Complete(ctx context.Context, bookingID string, req *models.CompleteBookingRequest) (*models.CompleteBookingResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
