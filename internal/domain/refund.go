package domain

// RefundKind классификация возврата по сумме
type RefundKind string

const (
	RefundFull    RefundKind = "refunded"
	RefundPartial RefundKind = "partially_refunded"
)

// ClampRefund ограничивает сумму возврата диапазоном [0, priceCents]
func ClampRefund(amountCents, priceCents int64) int64 {
	if amountCents < 0 {
		return 0
	}
	if amountCents > priceCents {
		return priceCents
	}
	return amountCents
}

// EarlyEndRefund computes the refund owed when a call ends before its booked
// duration: the user pays min(actual, booked) minutes at the per-minute rate,
// the rest comes back.
func EarlyEndRefund(priceCents int64, bookedMinutes, actualMinutes int) int64 {
	if bookedMinutes <= 0 {
		return 0
	}

	billedMinutes := actualMinutes
	if billedMinutes > bookedMinutes {
		billedMinutes = bookedMinutes
	}
	if billedMinutes < 0 {
		billedMinutes = 0
	}

	perMinute := priceCents / int64(bookedMinutes)
	actualCost := perMinute * int64(billedMinutes)

	return ClampRefund(priceCents-actualCost, priceCents)
}

// RefundKindFor классифицирует возврат: полный при amount >= priceCents, иначе частичный
func RefundKindFor(amountCents, priceCents int64) RefundKind {
	if amountCents >= priceCents {
		return RefundFull
	}
	return RefundPartial
}
