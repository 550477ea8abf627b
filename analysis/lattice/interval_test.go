package lattice

import "testing"

func TestIntervalJoin(t *testing.T) {
	lat := Create().Lattice().Interval()
	int := Create().Element().Interval

	type b = FiniteBound
	type P = PlusInfinity
	type M = MinusInfinity

	tests := []struct {
		a, b, expected Element
	}{
		{lat.Bot(), lat.Bot(), lat.Bot()},
		{lat.Bot(), lat.Top(), lat.Top()},
		{lat.Top(), lat.Bot(), lat.Top()},
		{lat.Top(), lat.Top(), lat.Top()},
		{lat.Bot(), int(b(0), b(0)), int(b(0), b(0))},
		{int(b(0), b(0)), lat.Bot(), int(b(0), b(0))},
		{int(b(0), b(0)), int(b(1), b(1)), int(b(0), b(1))},
		{int(b(1), b(1)), int(b(0), b(0)), int(b(0), b(1))},
		{int(b(1), b(2)), int(b(3), b(4)), int(b(1), b(4))},
		{int(b(-1), b(0)), int(b(0), b(1)), int(b(-1), b(1))},
		{int(b(0), b(1)), int(b(-1), b(0)), int(b(-1), b(1))},
		{int(b(0), b(1024)), int(b(0), P{}), int(b(0), P{})},
		{int(b(0), P{}), int(b(0), b(1024)), int(b(0), P{})},
		{int(b(-1024), b(0)), int(b(0), P{}), int(b(-1024), P{})},
		{int(M{}, b(0)), int(b(-1024), b(0)), int(M{}, b(0))},
		{int(b(-1024), b(0)), int(M{}, b(0)), int(M{}, b(0))},
		{int(M{}, b(-1024)), int(b(1024), P{}), lat.Top()},
	}

	for _, test := range tests {
		res := test.a.Join(test.b)
		if !res.Eq(test.expected) {
			t.Errorf("%s ⊔ %s = %s, expected %s\n", test.a, test.b, res, test.expected)
		} else {
			t.Logf("%s ⊔ %s = %s\n", test.a, test.b, res)
		}
	}
}

func TestIntervalMeet(t *testing.T) {
	lat := Create().Lattice().Interval()
	int := Create().Element().Interval

	type b = FiniteBound
	type P = PlusInfinity
	type M = MinusInfinity

	tests := []struct {
		a, b, expected Element
	}{
		{lat.Bot(), lat.Bot(), lat.Bot()},
		{lat.Bot(), lat.Top(), lat.Bot()},
		{lat.Top(), lat.Top(), lat.Top()},
		{lat.Top(), int(b(0), b(5)), int(b(0), b(5))},
		{int(b(0), b(5)), int(b(3), b(9)), int(b(3), b(5))},
		{int(b(3), b(9)), int(b(0), b(5)), int(b(3), b(5))},
		{int(b(0), b(5)), int(b(5), b(9)), int(b(5), b(5))},
		{int(b(0), b(4)), int(b(5), b(9)), lat.Bot()},
		{int(M{}, b(0)), int(b(0), P{}), int(b(0), b(0))},
		{int(M{}, b(-1)), int(b(1), P{}), lat.Bot()},
	}

	for _, test := range tests {
		res := test.a.Meet(test.b)
		if !res.Eq(test.expected) {
			t.Errorf("%s ⊓ %s = %s, expected %s\n", test.a, test.b, res, test.expected)
		} else {
			t.Logf("%s ⊓ %s = %s\n", test.a, test.b, res)
		}
	}
}

func TestIntervalWidenNarrow(t *testing.T) {
	lat := Create().Lattice().Interval()
	int := Create().Element().Interval

	type b = FiniteBound
	type P = PlusInfinity
	type M = MinusInfinity

	tests := []struct {
		a, b, widened Interval
	}{
		{lat.Bot().Interval(), int(b(0), b(0)), int(b(0), b(0))},
		{int(b(0), b(0)), lat.Bot().Interval(), int(b(0), b(0))},
		{int(b(0), b(0)), int(b(0), b(0)), int(b(0), b(0))},
		{int(b(0), b(0)), int(b(0), b(1)), int(b(0), P{})},
		{int(b(0), b(1)), int(b(-1), b(1)), int(M{}, b(1))},
		{int(b(0), b(0)), int(b(-1), b(1)), lat.Top().Interval()},
		{int(b(0), P{}), int(b(0), P{}), int(b(0), P{})},
	}

	for _, test := range tests {
		res := test.a.Widen(test.b)
		if !res.Eq(test.widened) {
			t.Errorf("%s ∇ %s = %s, expected %s\n", test.a, test.b, res, test.widened)
		}
		// The widened element over-approximates both arguments.
		if !test.a.Leq(res) || !test.b.Leq(res) {
			t.Errorf("%s ∇ %s = %s does not bound both operands\n", test.a, test.b, res)
		}
	}

	narrows := []struct {
		a, b, expected Interval
	}{
		// Narrowing recovers bounds that widening discarded.
		{int(b(0), P{}), int(b(0), b(9)), int(b(0), b(9))},
		{int(M{}, b(9)), int(b(0), b(9)), int(b(0), b(9))},
		{lat.Top().Interval(), int(b(0), b(9)), int(b(0), b(9))},
		// Finite bounds are kept even if the argument is tighter.
		{int(b(0), b(9)), int(b(2), b(7)), int(b(0), b(9))},
		{int(b(0), b(9)), lat.Bot().Interval(), lat.Bot().Interval()},
	}

	for _, test := range narrows {
		res := test.a.Narrow(test.b)
		if !res.Eq(test.expected) {
			t.Errorf("%s Δ %s = %s, expected %s\n", test.a, test.b, res, test.expected)
		}
	}
}

func TestIntervalArith(t *testing.T) {
	lat := Create().Lattice().Interval()
	int := Create().Element().Interval

	type b = FiniteBound
	type P = PlusInfinity
	type M = MinusInfinity

	type binOp = func(Interval, Interval) Interval
	add := Interval.Add
	sub := Interval.Sub
	mul := Interval.Mul
	div := Interval.Div
	rem := Interval.Rem

	tests := []struct {
		op             binOp
		name           string
		a, b, expected Interval
	}{
		{add, "+", int(b(1), b(2)), int(b(3), b(4)), int(b(4), b(6))},
		{add, "+", int(b(0), P{}), int(b(1), b(1)), int(b(1), P{})},
		{add, "+", lat.Bot().Interval(), int(b(1), b(1)), lat.Bot().Interval()},
		{sub, "-", int(b(1), b(2)), int(b(3), b(4)), int(b(-3), b(-1))},
		{sub, "-", int(M{}, b(0)), int(b(1), b(1)), int(M{}, b(-1))},
		{mul, "*", int(b(2), b(3)), int(b(4), b(5)), int(b(8), b(15))},
		{mul, "*", int(b(-2), b(3)), int(b(-4), b(5)), int(b(-12), b(15))},
		{mul, "*", int(b(0), b(0)), lat.Top().Interval(), int(b(0), b(0))},
		{mul, "*", int(b(1), P{}), int(b(2), b(2)), int(b(2), P{})},
		{div, "/", int(b(10), b(20)), int(b(2), b(5)), int(b(2), b(10))},
		{div, "/", int(b(-10), b(10)), int(b(2), b(2)), int(b(-5), b(5))},
		{div, "/", int(b(10), b(20)), int(b(-1), b(1)), lat.Top().Interval()},
		{div, "/", int(b(10), b(20)), int(b(0), b(0)), lat.Top().Interval()},
		{rem, "%", int(b(10), b(20)), int(b(3), b(3)), int(b(0), b(2))},
		{rem, "%", int(b(-10), b(-1)), int(b(3), b(3)), int(b(-2), b(0))},
		{rem, "%", int(b(-10), b(10)), int(b(4), b(4)), int(b(-3), b(3))},
		{rem, "%", int(b(10), b(20)), int(b(0), b(3)), lat.Top().Interval()},
	}

	for _, test := range tests {
		res := test.op(test.a, test.b)
		if !res.Eq(test.expected) {
			t.Errorf("%s %s %s = %s, expected %s\n",
				test.a, test.name, test.b, res, test.expected)
		} else {
			t.Logf("%s %s %s = %s\n", test.a, test.name, test.b, res)
		}
	}

	neg := int(b(-3), b(7)).Neg()
	if !neg.Eq(int(b(-7), b(3))) {
		t.Errorf("-[−3, 7] = %s, expected [-7, 3]", neg)
	}
}
