package cryptopay

import "errors"

var (
	// ErrMalformedPayload возвращается при нечитаемом JSON
	ErrMalformedPayload = errors.New("cryptopay: malformed payload")

	// ErrMissingEventID возвращается, когда в payload нет eventId
	ErrMissingEventID = errors.New("cryptopay: missing eventId")

	// ErrUnknownStatus возвращается при неизвестном статусе платежа
	ErrUnknownStatus = errors.New("cryptopay: unknown payment status")

	// ErrNoPaymentReference возвращается, когда payload не ссылается ни на один наш платеж
	ErrNoPaymentReference = errors.New("cryptopay: no payment reference in payload")
)
