package get_performer_bookings

import (
	"context"
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
)

type BookingService interface {
	GetPerformerBookings(ctx context.Context, performerID int64, from, to *time.Time, activeOnly bool) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
