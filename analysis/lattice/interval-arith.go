package lattice

// Abstract arithmetic on intervals. All operations are total and pure:
// inputs the backend cannot represent precisely yield a conservative
// over-approximation (up to ⊤), never an error. Checkers are responsible
// for flagging candidate faults such as division by a zero-containing
// divisor; the lattice only approximates the result value.

func negBound(b IntervalBound) IntervalBound {
	switch b := b.(type) {
	case FiniteBound:
		return -b
	case PlusInfinity:
		return MinusInfinity{}
	}
	return PlusInfinity{}
}

// boundDiv computes b1 / b2 for a non-zero b2, with quotients of finite
// bounds by infinities collapsing to 0.
func boundDiv(b1, b2 IntervalBound) IntervalBound {
	f1, fin1 := b1.(FiniteBound)
	f2, fin2 := b2.(FiniteBound)
	switch {
	case fin1 && fin2:
		return f1 / f2
	case fin1:
		// finite / ±∞
		return FiniteBound(0)
	}

	neg := false
	if _, ok := b1.(MinusInfinity); ok {
		neg = !neg
	}
	if fin2 && f2 < 0 {
		neg = !neg
	} else if _, ok := b2.(MinusInfinity); ok {
		neg = !neg
	}
	if neg {
		return MinusInfinity{}
	}
	return PlusInfinity{}
}

func minMaxBounds(candidates ...IntervalBound) (low, high IntervalBound) {
	low, high = candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		low = low.Min(c)
		high = high.Max(c)
	}
	return
}

// Add computes the abstract sum [l1+l2, h1+h2].
func (e1 Interval) Add(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return intervalLattice.Bot().Interval()
	}
	return Interval{
		low:  e1.low.Plus(e2.low),
		high: e1.high.Plus(e2.high),
	}
}

// Sub computes the abstract difference [l1-h2, h1-l2].
func (e1 Interval) Sub(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return intervalLattice.Bot().Interval()
	}
	return Interval{
		low:  e1.low.Minus(e2.high),
		high: e1.high.Minus(e2.low),
	}
}

// Mul computes the abstract product as the hull of all bound products.
func (e1 Interval) Mul(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return intervalLattice.Bot().Interval()
	}
	low, high := minMaxBounds(
		mult(e1.low, e2.low),
		mult(e1.low, e2.high),
		mult(e1.high, e2.low),
		mult(e1.high, e2.high),
	)
	return Interval{low: low, high: high}
}

// Div computes the abstract truncated quotient. A divisor that may be zero
// makes the result ⊤; ruling the division safe (or not) is the checker's
// concern, not the lattice's.
func (e1 Interval) Div(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return intervalLattice.Bot().Interval()
	}
	if e2.Contains(0) {
		return intervalLattice.Top().Interval()
	}
	low, high := minMaxBounds(
		boundDiv(e1.low, e2.low),
		boundDiv(e1.low, e2.high),
		boundDiv(e1.high, e2.low),
		boundDiv(e1.high, e2.high),
	)
	return Interval{low: low, high: high}
}

// Rem computes the abstract truncated remainder. The result magnitude is
// strictly below the largest divisor magnitude, and the sign follows the
// dividend.
func (e1 Interval) Rem(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return intervalLattice.Bot().Interval()
	}
	if e2.Contains(0) {
		return intervalLattice.Top().Interval()
	}

	mag := negBound(e2.low).Max(e2.high)
	var hi IntervalBound
	if m, ok := mag.(FiniteBound); ok {
		hi = m - 1
	} else {
		hi = PlusInfinity{}
	}

	zero := FiniteBound(0)
	switch {
	case e1.low.Geq(zero):
		return Interval{low: zero, high: hi.Min(e1.high)}
	case e1.high.Leq(zero):
		return Interval{low: negBound(hi).Max(e1.low), high: zero}
	}
	return Interval{low: negBound(hi), high: hi}
}

// Neg computes the abstract negation [-h, -l].
func (e1 Interval) Neg() Interval {
	if e1.IsBot() {
		return e1
	}
	return Interval{
		low:  negBound(e1.high),
		high: negBound(e1.low),
	}
}
