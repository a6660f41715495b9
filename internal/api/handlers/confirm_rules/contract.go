package confirm_rules

import (
	"context"

	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
)

type BookingService interface {
	ConfirmRules(ctx context.Context, bookingID string, req *models.ConfirmRulesRequest) (*models.ConfirmRulesResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
