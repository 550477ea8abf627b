package lattice

// IntervalLattice represents the interval lattice.
type IntervalLattice struct{}

// intervalLattice is a singleton instantiation of the interval lattice.
var intervalLattice = &IntervalLattice{}

// Interval yields the interval lattice.
func (latticeFactory) Interval() *IntervalLattice {
	return intervalLattice
}

// Top yields [-∞, ∞].
func (*IntervalLattice) Top() Element {
	return Interval{
		low:  MinusInfinity{},
		high: PlusInfinity{},
	}
}

// Bot yields [∞, -∞].
func (*IntervalLattice) Bot() Element {
	return Interval{
		low:  PlusInfinity{},
		high: MinusInfinity{},
	}
}

func (*IntervalLattice) String() string {
	return "[" + colorize.Lattice("ℤ") +
		", " + colorize.Lattice("ℤ") + "]"
}

// Eq checks for equality with another lattice.
func (*IntervalLattice) Eq(l2 Lattice) bool {
	_, ok := l2.(*IntervalLattice)
	return ok
}
