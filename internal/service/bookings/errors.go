package bookings

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotUnavailable возвращается, когда интервал перформера занят конкурирующей бронью
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidStatus возвращается при недопустимом переходе статусов
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnknownProvider возвращается при неизвестном платежном провайдере
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("bookings service: internal error")
)
