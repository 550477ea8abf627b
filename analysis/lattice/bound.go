package lattice

import (
	"math"
	"strconv"
)

// IntervalBound is an interface implemented by all interval lattice bounds,
// i.e., any FiniteBound value, PlusInfinity and MinusInfinity.
type IntervalBound interface {
	String() string

	// IsInfinite checks whether the interval bound is infinite.
	IsInfinite() bool

	// Eq checks for interval bound equality.
	Eq(IntervalBound) bool
	// Leq computes b1 ≤ b2. The semantics is -∞ ≤ c ≤ ∞, where c ∈ ℤ.
	Leq(IntervalBound) bool
	// Geq computes b1 ≥ b2.
	Geq(IntervalBound) bool
	// Lt computes b1 < b2.
	Lt(IntervalBound) bool
	// Gt computes b1 > b2.
	Gt(IntervalBound) bool

	// Plus computes b1 + b2. Adding bounds of opposite infinities panics;
	// interval arithmetic never produces that combination.
	Plus(IntervalBound) IntervalBound
	// Minus computes b1 - b2. Subtracting an infinity from itself panics.
	Minus(IntervalBound) IntervalBound
	// Max computes max(b1, b2).
	Max(IntervalBound) IntervalBound
	// Min computes min(b1, b2).
	Min(IntervalBound) IntervalBound
}

type (
	// FiniteBound is used to represent finite limits of an interval value.
	FiniteBound int
	// PlusInfinity represents ∞.
	PlusInfinity struct{}
	// MinusInfinity represents -∞.
	MinusInfinity struct{}
)

// IsInfinite is false for the finite bound.
func (FiniteBound) IsInfinite() bool {
	return false
}

func (b FiniteBound) String() string {
	return colorize.Element(strconv.Itoa((int)(b)))
}

// Eq compares for equality with another bound. Two finite bounds
// are equal if their underlying values are equal.
func (b1 FiniteBound) Eq(b2 IntervalBound) bool {
	if b2, ok := b2.(FiniteBound); ok {
		return b1 == b2
	}
	return false
}

// Leq computes b1 ≤ b2.
func (b1 FiniteBound) Leq(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 <= b2
	case PlusInfinity:
		return true
	}
	return false
}

// Geq computes b1 ≥ b2.
func (b1 FiniteBound) Geq(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 >= b2
	case MinusInfinity:
		return true
	}
	return false
}

// Lt computes b1 < b2.
func (b1 FiniteBound) Lt(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 < b2
	case PlusInfinity:
		return true
	}
	return false
}

// Gt computes b1 > b2.
func (b1 FiniteBound) Gt(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 > b2
	case MinusInfinity:
		return true
	}
	return false
}

// Plus computes b1 + b2, where a finite bound absorbs into either
// infinity. Finite arithmetic saturates at the machine limits instead of
// wrapping.
func (b1 FiniteBound) Plus(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		return FiniteBound(satAdd(int(b1), int(b2)))
	case PlusInfinity:
		return PlusInfinity{}
	case MinusInfinity:
		return MinusInfinity{}
	}
	return nil
}

// Minus computes b1 - b2, where a finite bound absorbs into the
// opposite infinity.
func (b1 FiniteBound) Minus(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		return FiniteBound(satSub(int(b1), int(b2)))
	case PlusInfinity:
		return MinusInfinity{}
	case MinusInfinity:
		return PlusInfinity{}
	}
	return nil
}

// Max computes max(b1, b2).
func (b1 FiniteBound) Max(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		if b1 < b2 {
			return b2
		}
		return b1
	case PlusInfinity:
		return b2
	case MinusInfinity:
		return b1
	}
	return nil
}

// Min computes min(b1, b2).
func (b1 FiniteBound) Min(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		if b1 < b2 {
			return b1
		}
		return b2
	case PlusInfinity:
		return b1
	case MinusInfinity:
		return b2
	}
	return nil
}

// IsInfinite is true for ∞.
func (PlusInfinity) IsInfinite() bool {
	return true
}

func (PlusInfinity) String() string {
	return colorize.Element("∞")
}

// Eq checks for interval bound equality.
func (PlusInfinity) Eq(b2 IntervalBound) bool {
	_, ok := b2.(PlusInfinity)
	return ok
}

// Leq computes ∞ ≤ b.
func (PlusInfinity) Leq(b2 IntervalBound) bool {
	_, ok := b2.(PlusInfinity)
	return ok
}

// Geq computes ∞ ≥ b. It is always true as ∞ is the largest possible bound.
func (PlusInfinity) Geq(IntervalBound) bool {
	return true
}

// Lt computes ∞ < b. It is always false as ∞ is the largest possible bound.
func (PlusInfinity) Lt(IntervalBound) bool {
	return false
}

// Gt computes ∞ > b.
func (PlusInfinity) Gt(b2 IntervalBound) bool {
	_, ok := b2.(PlusInfinity)
	return !ok
}

// Plus computes ∞ + b. Panics on -∞.
func (PlusInfinity) Plus(b2 IntervalBound) IntervalBound {
	if _, ok := b2.(MinusInfinity); ok {
		panic("∞ + (-∞)")
	}
	return PlusInfinity{}
}

// Minus computes ∞ - b. Panics on ∞.
func (PlusInfinity) Minus(b2 IntervalBound) IntervalBound {
	if _, ok := b2.(PlusInfinity); ok {
		panic("∞ - ∞")
	}
	return PlusInfinity{}
}

// Max computes max(∞, b) = ∞.
func (PlusInfinity) Max(IntervalBound) IntervalBound {
	return PlusInfinity{}
}

// Min computes min(∞, b) = b.
func (PlusInfinity) Min(b2 IntervalBound) IntervalBound {
	return b2
}

// IsInfinite is true for -∞.
func (MinusInfinity) IsInfinite() bool {
	return true
}

func (MinusInfinity) String() string {
	return colorize.Element("-∞")
}

// Eq computes -∞ = b.
func (MinusInfinity) Eq(b2 IntervalBound) bool {
	_, ok := b2.(MinusInfinity)
	return ok
}

// Leq computes -∞ ≤ b. It is always true as -∞ is the smallest possible bound.
func (MinusInfinity) Leq(IntervalBound) bool {
	return true
}

// Geq computes -∞ ≥ b.
func (MinusInfinity) Geq(b2 IntervalBound) bool {
	_, ok := b2.(MinusInfinity)
	return ok
}

// Lt computes -∞ < b.
func (MinusInfinity) Lt(b2 IntervalBound) bool {
	_, ok := b2.(MinusInfinity)
	return !ok
}

// Gt computes -∞ > b. It is always false as -∞ is the smallest possible bound.
func (MinusInfinity) Gt(IntervalBound) bool {
	return false
}

// Plus computes -∞ + b. Panics on ∞.
func (MinusInfinity) Plus(b IntervalBound) IntervalBound {
	if _, ok := b.(PlusInfinity); ok {
		panic("-∞ + ∞")
	}
	return MinusInfinity{}
}

// Minus computes -∞ - b. Panics on -∞.
func (MinusInfinity) Minus(b IntervalBound) IntervalBound {
	if _, ok := b.(MinusInfinity); ok {
		panic("-∞ - (-∞)")
	}
	return MinusInfinity{}
}

// Max computes max(-∞, b) = b.
func (MinusInfinity) Max(b IntervalBound) IntervalBound {
	return b
}

// Min computes min(-∞, b) = -∞.
func (MinusInfinity) Min(IntervalBound) IntervalBound {
	return MinusInfinity{}
}

// mult computes b1 * b2 under the convention 0 * ±∞ = 0, which is the
// correct absorption rule for interval multiplication.
func mult(b1, b2 IntervalBound) IntervalBound {
	sign := func(b IntervalBound) int {
		switch b := b.(type) {
		case FiniteBound:
			switch {
			case b > 0:
				return 1
			case b < 0:
				return -1
			}
			return 0
		case PlusInfinity:
			return 1
		}
		return -1
	}

	f1, fin1 := b1.(FiniteBound)
	f2, fin2 := b2.(FiniteBound)
	if fin1 && fin2 {
		return FiniteBound(satMul(int(f1), int(f2)))
	}
	if (fin1 && f1 == 0) || (fin2 && f2 == 0) {
		return FiniteBound(0)
	}
	if sign(b1)*sign(b2) > 0 {
		return PlusInfinity{}
	}
	return MinusInfinity{}
}

// satAdd computes a + b, saturating at the machine limits.
func satAdd(a, b int) int {
	switch s := a + b; {
	case b > 0 && s < a:
		return math.MaxInt
	case b < 0 && s > a:
		return math.MinInt
	default:
		return s
	}
}

// satSub computes a - b, saturating at the machine limits.
func satSub(a, b int) int {
	switch d := a - b; {
	case b < 0 && d < a:
		return math.MaxInt
	case b > 0 && d > a:
		return math.MinInt
	default:
		return d
	}
}

// satMul computes a * b, saturating at the machine limits.
func satMul(a, b int) int {
	switch {
	case a == 0 || b == 0:
		return 0
	case a == math.MinInt || b == math.MinInt:
		if a == 1 || b == 1 {
			return math.MinInt
		}
		if (a > 0) == (b > 0) {
			return math.MaxInt
		}
		return math.MinInt
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt
		}
		return math.MinInt
	}
	return p
}
