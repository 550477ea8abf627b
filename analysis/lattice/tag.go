package lattice

// Tag is the allocation state of an abstract memory object, drawn from the
// four-point lattice
//
//	       Unknown
//	      /       \
//	Allocated   Freed
//	      \       /
//	          ⊥
//
// The join of Allocated and Freed is Unknown rather than an error: a merge
// point where only one branch freed an object keeps the handle, in the
// least precise state present in either branch.
type Tag struct {
	element
	kind tagKind
}

type tagKind uint8

const (
	tagBot tagKind = iota
	tagAllocated
	tagFreed
	tagUnknown
)

// Allocated creates the tag of a live object.
func (elementFactory) Allocated() Tag {
	return Tag{kind: tagAllocated}
}

// Freed creates the tag of a released object.
func (elementFactory) Freed() Tag {
	return Tag{kind: tagFreed}
}

// UnknownTag creates the tag of an object whose state the analysis
// cannot determine.
func (elementFactory) UnknownTag() Tag {
	return Tag{kind: tagUnknown}
}

// Lattice retrieves the tag lattice for any tag.
func (Tag) Lattice() Lattice {
	return tagLattice
}

// Tag safely converts a tag.
func (e Tag) Tag() Tag {
	return e
}

func (e Tag) String() string {
	switch e.kind {
	case tagAllocated:
		return colorize.Tag("Allocated")
	case tagFreed:
		return colorize.Tag("Freed")
	case tagUnknown:
		return colorize.Tag("Unknown")
	}
	return colorize.Tag("⊥")
}

// IsAllocated checks whether the object is definitely live.
func (e Tag) IsAllocated() bool { return e.kind == tagAllocated }

// IsFreed checks whether the object is definitely released.
func (e Tag) IsFreed() bool { return e.kind == tagFreed }

// IsUnknown checks whether the object state is undetermined.
func (e Tag) IsUnknown() bool { return e.kind == tagUnknown }

// IsBot checks whether the tag is the bottom of the tag lattice.
func (e Tag) IsBot() bool { return e.kind == tagBot }

// Eq computes e1 = e2. Performs lattice dynamic type checking.
func (e1 Tag) Eq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "=")
	return e1.eq(e2)
}

func (e1 Tag) eq(e2 Element) bool {
	if e2, ok := e2.(Tag); ok {
		return e1.kind == e2.kind
	}
	panic(errInternal)
}

// Leq computes e1 ⊑ e2. Performs lattice dynamic type checking.
func (e1 Tag) Leq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊑")
	return e1.leq(e2)
}

func (e1 Tag) leq(e2 Element) bool {
	if e2, ok := e2.(Tag); ok {
		return e1.kind == tagBot || e1.kind == e2.kind || e2.kind == tagUnknown
	}
	panic(errInternal)
}

// Geq computes e1 ⊒ e2. Performs lattice dynamic type checking.
func (e1 Tag) Geq(e2 Element) bool {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊒")
	return e1.geq(e2)
}

func (e1 Tag) geq(e2 Element) bool {
	return e2.(Tag).leq(e1)
}

// Join computes e1 ⊔ e2. Performs lattice dynamic type checking.
func (e1 Tag) Join(e2 Element) Element {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊔")
	return e1.join(e2)
}

func (e1 Tag) join(e2 Element) Element {
	if e2, ok := e2.(Tag); ok {
		switch {
		case e1.kind == e2.kind:
			return e1
		case e1.kind == tagBot:
			return e2
		case e2.kind == tagBot:
			return e1
		}
		return Tag{kind: tagUnknown}
	}
	panic(errInternal)
}

// Meet computes e1 ⊓ e2. Performs lattice dynamic type checking.
func (e1 Tag) Meet(e2 Element) Element {
	checkLatticeMatch(e1.Lattice(), e2.Lattice(), "⊓")
	return e1.meet(e2)
}

func (e1 Tag) meet(e2 Element) Element {
	if e2, ok := e2.(Tag); ok {
		switch {
		case e1.kind == e2.kind:
			return e1
		case e1.kind == tagUnknown:
			return e2
		case e2.kind == tagUnknown:
			return e1
		}
		return Tag{kind: tagBot}
	}
	panic(errInternal)
}

// TagLattice represents the allocation tag lattice.
type TagLattice struct{}

// tagLattice is a singleton instantiation of the tag lattice.
var tagLattice = &TagLattice{}

// Tag yields the tag lattice.
func (latticeFactory) Tag() *TagLattice {
	return tagLattice
}

// Top yields the Unknown tag.
func (*TagLattice) Top() Element {
	return Tag{kind: tagUnknown}
}

// Bot yields the bottom tag.
func (*TagLattice) Bot() Element {
	return Tag{kind: tagBot}
}

func (*TagLattice) String() string {
	return colorize.Lattice("AllocTag")
}

// Eq checks for equality with another lattice.
func (*TagLattice) Eq(l2 Lattice) bool {
	_, ok := l2.(*TagLattice)
	return ok
}
