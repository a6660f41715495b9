package refunds

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPaymentNotFound возвращается, когда у бронирования нет платежа
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrNotRefundable возвращается, когда платеж не в возвращаемом статусе
	ErrNotRefundable = errors.New("payment is not refundable")

	// ErrUnknownProvider возвращается при неизвестном платежном провайдере
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrProvider возвращается при ошибке провайдер-специфичного пути возврата
	ErrProvider = errors.New("provider refund failed")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("refunds service: internal error")
)
