package lattice

import (
	"math"
	"testing"
)

func TestFiniteBoundSaturation(t *testing.T) {
	max := FiniteBound(math.MaxInt)
	min := FiniteBound(math.MinInt)

	tests := []struct {
		got, expected IntervalBound
	}{
		{max.Plus(FiniteBound(1)), max},
		{min.Plus(FiniteBound(-1)), min},
		{min.Minus(FiniteBound(1)), min},
		{max.Minus(FiniteBound(-1)), max},
		{mult(max, FiniteBound(2)), max},
		{mult(min, FiniteBound(2)), min},
		{mult(min, FiniteBound(-2)), max},
		{mult(min, FiniteBound(0)), FiniteBound(0)},
		{FiniteBound(3).Plus(FiniteBound(4)), FiniteBound(7)},
		{FiniteBound(3).Minus(FiniteBound(4)), FiniteBound(-1)},
		{mult(FiniteBound(-3), FiniteBound(4)), FiniteBound(-12)},
	}

	for _, test := range tests {
		if !test.got.Eq(test.expected) {
			t.Errorf("got %s, expected %s", test.got, test.expected)
		}
	}
}
