package lattice

import (
	"fmt"
)

// Interval is an interval and a member of the interval lattice.
// Any interval consists of two interval bounds, `low` and `high`.
type Interval struct {
	element
	low  IntervalBound
	high IntervalBound
}

// Interval creates an interval with possibly infinite bounds.
func (elementFactory) Interval(low IntervalBound, high IntervalBound) Interval {
	return Interval{low: low, high: high}
}

// IntervalFinite creates an interval with finite bounds.
func (elementFactory) IntervalFinite(low int, high int) Interval {
	return Interval{
		low:  FiniteBound(low),
		high: FiniteBound(high),
	}
}

// Constant creates the degenerate interval [c, c].
func (elementFactory) Constant(c int) Interval {
	return Interval{
		low:  FiniteBound(c),
		high: FiniteBound(c),
	}
}

// Lattice retrieves the interval lattice for any interval.
func (Interval) Lattice() Lattice {
	return intervalLattice
}

func (e Interval) String() string {
	if e.IsBot() {
		return colorize.Element("⊥")
	}
	return "[" + e.low.String() + ", " + e.high.String() + "]"
}

// Interval safely converts an interval.
func (e Interval) Interval() Interval {
	return e
}

// IsBot checks that the interval is equal to ⊥ = [∞, -∞].
func (e Interval) IsBot() bool {
	return e == intervalLattice.Bot().Interval()
}

// IsTop checks that the interval is equal to ⊤ = [-∞, ∞].
func (e Interval) IsTop() bool {
	return e == intervalLattice.Top().Interval()
}

// Eq computes e1 = e2. Performs lattice dynamic type checking.
func (e1 Interval) Eq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "=")
	return e1.eq(e2)
}

func (e1 Interval) eq(e2 Element) bool {
	return e1.leq(e2) && e1.geq(e2)
}

// Leq computes e1 ⊑ e2. Performs lattice dynamic type checking.
func (e1 Interval) Leq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊑")
	return e1.leq(e2)
}

func (e1 Interval) leq(e2 Element) bool {
	if e2, ok := e2.(Interval); ok {
		return e1.low.Geq(e2.low) && e1.high.Leq(e2.high)
	}
	panic(errInternal)
}

// Geq computes e1 ⊒ e2. Performs lattice dynamic type checking.
func (e1 Interval) Geq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊒")
	return e1.geq(e2)
}

func (e1 Interval) geq(e2 Element) bool {
	if e2, ok := e2.(Interval); ok {
		return e1.low.Leq(e2.low) && e1.high.Geq(e2.high)
	}
	panic(errInternal)
}

// Join computes e1 ⊔ e2. Performs lattice dynamic type checking.
func (e1 Interval) Join(e2 Element) Element {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊔")
	return e1.join(e2)
}

// join computes e1 ⊔ e2.
// The resulting interval takes the lowest of the lower bounds,
// and the highest of the upper bounds.
func (e1 Interval) join(e2 Element) Element {
	if e2, ok := e2.(Interval); ok {
		var low, high IntervalBound
		if e1.low.Leq(e2.low) {
			low = e1.low
		} else {
			low = e2.low
		}
		if e1.high.Geq(e2.high) {
			high = e1.high
		} else {
			high = e2.high
		}
		return Interval{low: low, high: high}
	}
	panic(errInternal)
}

// Meet computes e1 ⊓ e2. Performs lattice dynamic type checking.
func (e1 Interval) Meet(e2 Element) Element {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊓")
	return e1.meet(e2)
}

// meet computes e1 ⊓ e2. Overlapping intervals meet in their overlap;
// disjoint intervals meet in ⊥.
func (e1 Interval) meet(e2 Element) Element {
	if e2, ok := e2.(Interval); ok {
		if e1.high.Lt(e2.low) || e2.high.Lt(e1.low) {
			return e1.Lattice().Bot()
		}
		return Interval{
			low:  e1.low.Max(e2.low),
			high: e1.high.Min(e2.high),
		}
	}
	panic(errInternal)
}

// Widen computes e1 ∇ e2. A bound that is unstable between e1 and e2 jumps
// directly to the corresponding infinity, which guarantees that every
// ascending chain produced by repeated widening stabilizes after finitely
// many steps.
func (e1 Interval) Widen(e2 Interval) Interval {
	if e1.IsBot() {
		return e2
	}
	if e2.IsBot() {
		return e1
	}

	low, high := e1.low, e1.high
	if e2.low.Lt(e1.low) {
		low = MinusInfinity{}
	}
	if e2.high.Gt(e1.high) {
		high = PlusInfinity{}
	}
	return Interval{low: low, high: high}
}

// Narrow computes e1 Δ e2, refining bounds that widening pushed to
// infinity with the bounds of e2, without violating soundness provided
// e2 ⊑ e1.
func (e1 Interval) Narrow(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return e2
	}

	low, high := e1.low, e1.high
	if low.IsInfinite() {
		low = e2.low
	}
	if high.IsInfinite() {
		high = e2.high
	}
	return Interval{low: low, high: high}
}

// GetFiniteBounds unpacks the interval bounds, if finite, and panics otherwise.
func (i Interval) GetFiniteBounds() (int, int) {
	if i.low.IsInfinite() || i.high.IsInfinite() {
		panic(fmt.Sprintf("Interval %s does not have finite bounds", i))
	}
	return (int)(i.low.(FiniteBound)), (int)(i.high.(FiniteBound))
}

// Low returns the lower bound.
func (i Interval) Low() IntervalBound {
	return i.low
}

// High returns the upper bound.
func (i Interval) High() IntervalBound {
	return i.high
}

// Contains checks whether the concrete value v is included in the interval.
func (i Interval) Contains(v int) bool {
	b := FiniteBound(v)
	return i.low.Leq(b) && i.high.Geq(b)
}

// IsConstant checks whether the interval is a single concrete point.
func (i Interval) IsConstant() bool {
	return !i.low.IsInfinite() && i.low.Eq(i.high)
}
