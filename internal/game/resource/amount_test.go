package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_LessEqual(t *testing.T) {
	tests := []struct {
		name   string
		cost   Amount
		amount Amount
		want   bool
	}{
		{"empty cost", Amount{}, Amount{}, true},
		{"exact match", Amount{Metal: 2}, Amount{Metal: 2}, true},
		{"short of kind", Amount{Metal: 3}, Amount{Metal: 2}, false},
		{"other kind surplus does not cover", Amount{Metal: 1}, Amount{Energy: 5}, false},
		{"zero of kind, plenty of another", Amount{Crystal: 1}, Amount{Crystal: 0, Metal: 3}, false},
		{"any cost from leftovers", Amount{Any: 2}, Amount{Metal: 1, Energy: 1}, true},
		{"any cost after exact matching", Amount{Metal: 2, Any: 1}, Amount{Metal: 2, Energy: 1}, true},
		{"any cost exceeds leftovers", Amount{Metal: 2, Any: 2}, Amount{Metal: 3}, false},
		{"amount any bucket covers kind", Amount{Energy: 2}, Amount{Energy: 1, Any: 1}, true},
		{"amount any bucket too small", Amount{Energy: 3}, Amount{Energy: 1, Any: 1}, false},
		{"amount any covers cost any", Amount{Any: 3}, Amount{Any: 3}, true},
		{"any bucket shared between kind and any", Amount{Metal: 1, Any: 1}, Amount{Any: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cost.LessEqual(tt.amount))
		})
	}
}

func TestAmount_AddSubRoundTrip(t *testing.T) {
	amounts := []Amount{
		{},
		{Metal: 3},
		{Metal: 1, Energy: 2, Any: 4},
		{Crystal: 5, Energy: 1},
	}
	for _, a := range amounts {
		for _, b := range amounts {
			got := a.Add(b).Sub(b)
			assert.True(t, got.Equal(a), "%v + %v - %v = %v", a, b, b, got)
		}
		assert.True(t, a.Equal(a))
	}
}

func TestAmount_EqualIgnoresZeroEntries(t *testing.T) {
	assert.True(t, Amount{Metal: 0}.Equal(Amount{}))
	assert.False(t, Amount{Any: 1}.Equal(Amount{Metal: 1}))
}

func TestAmount_Pay(t *testing.T) {
	pool := Amount{Metal: 2, Energy: 1, Any: 1}

	left, ok := pool.Pay(Amount{Metal: 3})
	require.True(t, ok)
	assert.True(t, left.Equal(Amount{Energy: 1}), "got %v", left)

	left, ok = pool.Pay(Amount{Crystal: 1, Any: 2})
	require.True(t, ok)
	assert.Equal(t, 1, left.Total())
	assert.Equal(t, 0, left.Get(Any))

	left, ok = pool.Pay(Amount{Crystal: 2})
	assert.False(t, ok)
	assert.True(t, left.Equal(pool))
}

func TestAmount_Cap(t *testing.T) {
	got := Amount{Metal: 7, Energy: 2, Crystal: 9}.Cap(Amount{Metal: 5, Energy: 5})
	assert.True(t, got.Equal(Amount{Metal: 5, Energy: 2, Crystal: 9}))
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "{}", Amount{}.String())
	assert.Equal(t, "{ENERGY:1 METAL:2}", Amount{Metal: 2, Energy: 1}.String())
}
