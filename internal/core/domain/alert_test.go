package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateStock(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		stock     int
		hasActive bool
		want      StockTransition
	}{
		{"drops to threshold", 5, 5, false, TransitionTrigger},
		{"drops below threshold", 5, 0, false, TransitionTrigger},
		{"still low with active alert", 5, 3, true, TransitionNone},
		{"recovers above threshold", 5, 6, true, TransitionResolve},
		{"healthy without alert", 5, 10, false, TransitionNone},
		{"zero threshold at zero stock", 0, 0, false, TransitionTrigger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateStock(tt.threshold, tt.stock, tt.hasActive))
		})
	}
}

func TestNewLowStockAlert(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewLowStockAlert("a-1", Product{ID: "p-1", LowStockThreshold: 4}, 2, now)

	assert.Equal(t, "p-1", a.ProductID)
	assert.Equal(t, 2, a.StockAtTrigger)
	assert.Equal(t, 4, a.Threshold)
	assert.True(t, a.IsActive())
	assert.False(t, a.Acknowledged)
	assert.Nil(t, a.ResolvedAt)
	assert.Equal(t, now, a.CreatedAt)
}

func TestLowStockAlert_Resolve(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewLowStockAlert("a-1", Product{ID: "p-1"}, 0, now)

	later := now.Add(time.Hour)
	require.NoError(t, a.Resolve(later))
	assert.Equal(t, AlertStatusResolved, a.Status)
	require.NotNil(t, a.ResolvedAt)
	assert.Equal(t, later, *a.ResolvedAt)
	assert.False(t, a.Acknowledged)

	assert.ErrorIs(t, a.Resolve(later), ErrAlreadyResolved)
}

func TestLowStockAlert_Acknowledge(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewLowStockAlert("a-1", Product{ID: "p-1"}, 0, now)

	require.NoError(t, a.Acknowledge(now))
	assert.True(t, a.Acknowledged)
	assert.False(t, a.IsActive())

	assert.ErrorIs(t, a.Acknowledge(now), ErrAlreadyResolved)
}
