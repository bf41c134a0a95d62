package mbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionChars(t *testing.T) {
	for a := ActionNone; a <= Fill; a++ {
		got, err := ParseAction(a.Char())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAction('X')
	assert.Error(t, err)
	assert.False(t, Action(9).Valid())
	assert.Equal(t, byte('?'), Action(9).Char())
	assert.Equal(t, "Clear", Clear.String())
}

func TestSideChars(t *testing.T) {
	for _, s := range []Side{SideNone, Bid, Ask} {
		got, err := ParseSide(s.Char())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseSide('S')
	assert.Error(t, err)
}

func TestFlags(t *testing.T) {
	ev := Event{Flags: FlagLast | FlagSnapshot}
	assert.True(t, ev.IsLast())
	assert.False(t, ev.IsTOB())
	assert.Equal(t, Flags(160), ev.Flags)
}

func TestPrices(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		fmt  string
	}{
		{"101.25", 101_250_000_000, "101.25"},
		{"0.000000001", 1, "0.00"},
		{"-3.5", -3_500_000_000, "-3.50"},
		{"99.999", 99_999_000_000, "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			px, err := ParsePrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, px)
			assert.Equal(t, tt.fmt, FormatPrice(px))
		})
	}

	assert.Equal(t, "UNDEF", FormatPrice(UndefPrice))
	_, err := ParsePrice("abc")
	assert.Error(t, err)
}
