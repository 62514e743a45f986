package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(10050, CNY)
		require.NoError(t, err)
		assert.Equal(t, CNY, m.Currency())
		assert.Equal(t, int64(10050), m.MinorUnits())
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(100, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestMoney_Decimal(t *testing.T) {
	m := NewMoneyCents(10050)
	assert.Equal(t, "100.50", m.Decimal().StringFixed(2))

	m = NewMoneyCents(-5)
	assert.Equal(t, "-0.05", m.Decimal().StringFixed(2))
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyCents(1000)
	b := NewMoneyCents(250)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.MinorUnits())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(750), diff.MinorUnits())

	assert.Equal(t, int64(5000), a.MulQuantity(5).MinorUnits())
	assert.Equal(t, int64(-5000), a.MulQuantity(-5).MinorUnits())
	assert.True(t, ZeroCents().IsZero())
	assert.True(t, NewMoneyCents(-1).IsNegative())
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	a := Zero(CNY)
	b := Zero(USD)

	_, err := a.Add(b)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "currency mismatch")

	_, err = a.Sub(b)
	assert.Error(t, err)
}

func TestMoney_String(t *testing.T) {
	m := NewMoneyCents(12345)
	assert.Equal(t, "123.45 CNY", m.String())
}

func TestDivideRoundHalfUp(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		quantity  int64
		wantUnit  int64
		wantRem   int64
	}{
		{"exact division", 3000, 20, 150, 0},
		{"rounds half up", 1001, 2, 501, -1},
		{"rounds down below half", 1004, 10, 100, 4},
		{"rounds up at half", 1005, 10, 101, -5},
		{"negative total rounds half away from zero", -1005, 10, -101, 5},
		{"zero quantity returns total as remainder", 1234, 0, 0, 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, rem := DivideRoundHalfUp(tt.total, tt.quantity)
			assert.Equal(t, tt.wantUnit, unit)
			assert.Equal(t, tt.wantRem, rem)
			if tt.quantity > 0 {
				// remainder always reconciles exactly
				assert.Equal(t, tt.total, unit*tt.quantity+rem)
			}
		})
	}
}
