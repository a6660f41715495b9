package reconciler

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платеж из вебхука не разрешается в наш платеж
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrBookingNotFound возвращается, когда платеж ссылается на несуществующую бронь
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidStatus возвращается при недопустимом переходе состояния
	// (в т.ч. поздний paid-вебхук по уже истекшей брони)
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("reconciler: internal error")
)
