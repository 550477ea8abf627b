// Package domain exposes numeric abstract domains behind a backend-neutral
// interface. The fixpoint solver composes transfer functions through Env and
// never inspects the backing representation, so a relational backend can be
// added without touching the solver.
package domain

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
)

// Env is a numeric abstract environment, mapping variables to abstract
// values. Every operation is total and pure: an environment is never
// mutated, and inputs the backend cannot represent precisely produce a
// conservative over-approximation carrying the imprecision marker, not an
// error.
type Env interface {
	Domain() Domain

	// IsBottom checks whether the environment denotes no concrete state.
	IsBottom() bool
	// Imprecise reports whether some operation on this environment, or an
	// ancestor of it, lost precision beyond ordinary over-approximation.
	Imprecise() bool
	// MarkImprecise returns the environment with the imprecision marker set.
	MarkImprecise() Env

	// Lookup retrieves the abstract value of a variable. Variables without
	// a binding are ⊤.
	Lookup(v string) lattice.Interval
	// Eval computes the abstract value of an operand.
	Eval(op ir.Operand) lattice.Interval
	// EvalRvalue computes the abstract value of a right-hand side.
	EvalRvalue(rv ir.Rvalue) lattice.Interval

	// Assign binds dst to the abstract value of the right-hand side.
	Assign(dst string, rv ir.Rvalue) Env
	// AssignInterval binds dst to the given abstract value directly.
	AssignInterval(dst string, val lattice.Interval) Env
	// Forget discards any binding for v, making it ⊤.
	Forget(v string) Env

	// Guard refines the environment under the assumption that the condition
	// holds. The result may be bottom when the condition is abstractly
	// infeasible. Guarding with c and with c.Negate() covers both branch
	// polarities.
	Guard(c ir.Cond) Env

	Leq(Env) bool
	Eq(Env) bool
	Join(Env) Env
	Meet(Env) Env
	Widen(Env) Env
	Narrow(Env) Env

	String() string
}

// Domain is a factory of abstract environments for one numeric backend.
type Domain interface {
	Name() string
	Top() Env
	Bottom() Env
}

// New selects a backend by name.
func New(backend string) (Domain, error) {
	switch backend {
	case "interval":
		return intervalDomain{}, nil
	}
	return nil, fmt.Errorf("unknown abstract domain %q", backend)
}
