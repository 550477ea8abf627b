// Package absstate defines the abstract state flowing along control-flow
// edges: the product of a numeric environment and a memory model.
package absstate

import (
	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/analysis/memory"
)

// State is the product of a numeric abstract environment and a memory
// model. States are immutable; all operations derive new states.
type State struct {
	Env domain.Env
	Mem memory.Model
}

// Top creates the state with no information.
func Top(d domain.Domain) State {
	return State{Env: d.Top(), Mem: memory.NewModel()}
}

// Bottom creates the unreachable state.
func Bottom(d domain.Domain) State {
	return State{Env: d.Bottom(), Mem: memory.NewModel()}
}

// IsBottom checks whether the state is unreachable. The numeric component
// carries reachability; the memory model has no bottom of its own.
func (s State) IsBottom() bool {
	return s.Env.IsBottom()
}

// WithEnv replaces the numeric component.
func (s State) WithEnv(env domain.Env) State {
	return State{Env: env, Mem: s.Mem}
}

// WithMem replaces the memory component.
func (s State) WithMem(m memory.Model) State {
	return State{Env: s.Env, Mem: m}
}

// Join combines two states componentwise.
func (s1 State) Join(s2 State) State {
	switch {
	case s1.IsBottom():
		return State{Env: s2.Env.Join(s1.Env), Mem: s2.Mem}
	case s2.IsBottom():
		return State{Env: s1.Env.Join(s2.Env), Mem: s1.Mem}
	}
	return State{Env: s1.Env.Join(s2.Env), Mem: s1.Mem.Join(s2.Mem)}
}

// Widen widens the numeric component and joins the memory component, whose
// handle space is finite once the solver caps iteration tags.
func (s1 State) Widen(s2 State) State {
	switch {
	case s1.IsBottom():
		return State{Env: s2.Env.Widen(s1.Env), Mem: s2.Mem}
	case s2.IsBottom():
		return State{Env: s1.Env.Widen(s2.Env), Mem: s1.Mem}
	}
	return State{Env: s1.Env.Widen(s2.Env), Mem: s1.Mem.Join(s2.Mem)}
}

// Narrow refines the numeric component with the descending operand and
// keeps its memory, assuming s2 was recomputed from a post-fixpoint.
func (s1 State) Narrow(s2 State) State {
	return State{Env: s1.Env.Narrow(s2.Env), Mem: s2.Mem}
}

// Leq computes s1 ⊑ s2 componentwise.
func (s1 State) Leq(s2 State) bool {
	if s1.IsBottom() {
		return true
	}
	if s2.IsBottom() {
		return false
	}
	return s1.Env.Leq(s2.Env) && s1.Mem.Leq(s2.Mem)
}

// Eq checks state equality.
func (s1 State) Eq(s2 State) bool {
	return s1.Leq(s2) && s2.Leq(s1)
}

func (s State) String() string {
	return s.Env.String() + " × " + s.Mem.String()
}
