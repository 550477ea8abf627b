package lattice

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/kestrel-analysis/kestrel/utils"
)

var colorize = struct {
	Lattice func(...interface{}) string
	Element func(...interface{}) string
	Tag     func(...interface{}) string
}{
	Lattice: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Element: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Tag: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
}

var (
	errUnsupportedTypeConversion = errors.New("UnsupportedTypeConversion")
	errInternal                  = errors.New("internal error")
)

// Element is implemented by all abstract lattice elements.
type Element interface {
	// Type conversion API
	Interval() Interval
	Tag() Tag

	Lattice() Lattice

	// External API for lattice element operations.
	// They dynamically perform lattice type checking.
	Leq(Element) bool
	Geq(Element) bool
	Eq(Element) bool
	Join(Element) Element
	Meet(Element) Element

	// Internal lattice element operations, that skip
	// lattice type checking. Only use under the
	// assumption of lattice type safety.
	leq(Element) bool
	geq(Element) bool
	eq(Element) bool
	join(Element) Element
	meet(Element) Element

	String() string
}

type element struct{}

func (element) Interval() Interval {
	panic(errUnsupportedTypeConversion)
}

func (element) Tag() Tag {
	panic(errUnsupportedTypeConversion)
}

// Lattice is implemented by all lattices.
type Lattice interface {
	Top() Element
	Bot() Element
	Eq(Lattice) bool
	String() string
}

// checkLatticeMatch verifies that elements of two lattices may be compared
// or combined with the given operation.
func checkLatticeMatch(l1, l2 Lattice, op string) {
	if !l1.Eq(l2) {
		panic(fmt.Sprintf(
			"lattice mismatch: %s %s %s is undefined", l1, op, l2,
		))
	}
}

type (
	// factory is a structure that implements methods from which to access
	// the lattice and lattice element factories.
	factory struct{}

	// latticeFactory is a structure that implements methods for creating lattices.
	latticeFactory struct{}

	// elementFactory is a structure that implements methods for creating lattice elements.
	elementFactory struct{}
)

var (
	latFact = latticeFactory{}
	elFact  = elementFactory{}
)

// Lattice gives access to the lattice factory.
func (factory) Lattice() latticeFactory {
	return latFact
}

// Element gives access to the element factory.
func (factory) Element() elementFactory {
	return elFact
}

// Create returns a factory for which the methods are used
// to create lattices or lattice elements.
func Create() factory {
	return factory{}
}

// Elements returns a factory for which the methods are used
// to create lattice elements.
func Elements() elementFactory {
	return elFact
}
