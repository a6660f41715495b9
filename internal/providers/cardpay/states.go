package cardpay

import "github.com/kir4ng/PCS-BookingService/internal/domain"

// Коды состояний транзакции карточного провайдера
const (
	StatePending   = 0
	StateAccepted  = 1
	StateRejected  = 2
	StateFailed    = 3
	StateCancelled = 4
	StateReversed  = 5
	StateAbandoned = 6
)

// stateOutcome маппинг кода состояния на исход и признак окончательности.
// rejected/failed не финальны: пользователь может повторить оплату по тому же
// платежу до истечения холда. cancelled/reversed/abandoned закрывают платеж.
var stateOutcome = map[int]struct {
	outcome domain.WebhookOutcome
	final   bool
}{
	StatePending:   {domain.OutcomePending, false},
	StateAccepted:  {domain.OutcomePaid, false},
	StateRejected:  {domain.OutcomeFailed, false},
	StateFailed:    {domain.OutcomeFailed, false},
	StateCancelled: {domain.OutcomeFailed, true},
	StateReversed:  {domain.OutcomeFailed, true},
	StateAbandoned: {domain.OutcomeFailed, true},
}
