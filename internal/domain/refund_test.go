package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlyEndRefund(t *testing.T) {
	tests := []struct {
		name       string
		priceCents int64
		booked     int
		actual     int
		want       int64
	}{
		{"15 dollars 30min ended at 12min", 1500, 30, 12, 900},
		{"full duration used", 1500, 30, 30, 0},
		{"longer than booked bills booked only", 1500, 30, 45, 0},
		{"zero minutes used", 1500, 30, 0, 1500},
		{"negative actual treated as zero", 1500, 30, -5, 1500},
		{"zero booked minutes", 1500, 0, 10, 0},
		{"rate rounds down in user favor", 1000, 30, 12, 604},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EarlyEndRefund(tt.priceCents, tt.booked, tt.actual))
		})
	}
}

func TestClampRefund(t *testing.T) {
	assert.Equal(t, int64(0), ClampRefund(-100, 1500))
	assert.Equal(t, int64(1500), ClampRefund(2000, 1500))
	assert.Equal(t, int64(900), ClampRefund(900, 1500))
}

func TestRefundKindFor(t *testing.T) {
	assert.Equal(t, RefundFull, RefundKindFor(1500, 1500))
	assert.Equal(t, RefundFull, RefundKindFor(2000, 1500))
	assert.Equal(t, RefundPartial, RefundKindFor(900, 1500))
	assert.Equal(t, RefundPartial, RefundKindFor(0, 1500))
}
