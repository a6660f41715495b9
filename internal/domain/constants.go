package domain

// Default lifecycle values
const (
	DefaultHoldMinutes     = 15
	MinHoldMinutes         = 1
	MaxHoldMinutes         = 60
	MinCallDurationMinutes = 5
	MaxCallDurationMinutes = 240
)

// Cancellation reasons set by the system itself
const (
	CancelReasonPaymentFailed = "payment_failed"
)

// Time format constants
const (
	DateFormat = "2006-01-02"
)

// SlotBlockingStatuses статусы, участвующие в проверке пересечения слотов
// Две брони одного перформера с этими статусами не могут пересекаться по времени
var SlotBlockingStatuses = []BookingStatus{
	StatusHeld,
	StatusAwaitingPayment,
	StatusConfirmed,
}

// HoldStatuses статусы, в которых бронь живет на холде и подлежит экспирации
var HoldStatuses = []BookingStatus{
	StatusHeld,
	StatusAwaitingPayment,
}

// TerminalStatuses терминальные статусы брони
var TerminalStatuses = []BookingStatus{
	StatusCompleted,
	StatusNoShow,
	StatusCancelled,
	StatusExpired,
}
