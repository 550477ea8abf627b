package memory

import (
	uf "github.com/spakin/disjoint"

	"github.com/kestrel-analysis/kestrel/ir"
)

// Aliases partitions the reference variables of a function into classes
// that may denote the same object, computed flow-insensitively with a
// union-find pass over reference copies. The partition over-approximates
// the flow-sensitive points-to bindings and is used to widen the blast
// radius of opaque calls: an argument escaping to an unknown callee drags
// its whole class along.
type Aliases struct {
	elems map[string]*uf.Element
}

// AnalyzeAliases computes the alias classes of one function.
func AnalyzeAliases(fn *ir.Function) *Aliases {
	a := &Aliases{elems: map[string]*uf.Element{}}

	isRef := func(v string) bool {
		t, found := fn.TypeOf(v)
		return found && t.Kind == ir.KRef
	}
	elem := func(v string) *uf.Element {
		if el, found := a.elems[v]; found {
			return el
		}
		el := uf.NewElement()
		a.elems[v] = el
		return el
	}
	for _, p := range fn.Params {
		if p.Type.Kind == ir.KRef {
			elem(p.Name)
		}
	}
	for _, l := range fn.Locals {
		if l.Type.Kind == ir.KRef {
			elem(l.Name)
		}
	}

	for _, b := range fn.Blocks {
		for _, stmt := range b.Stmts {
			switch stmt := stmt.(type) {
			case ir.Assign:
				// Reference copies are the only intra-function aliasing.
				if stmt.Val.Op == ir.OpCopy && !stmt.Val.X.IsLit() &&
					isRef(stmt.Dst) && isRef(stmt.Val.X.Var) {
					uf.Union(elem(stmt.Dst), elem(stmt.Val.X.Var))
				}
			case ir.Call:
				// A callee may return any reference passed to it.
				var refArgs []string
				for _, arg := range stmt.Args {
					if !arg.IsLit() && isRef(arg.Var) {
						refArgs = append(refArgs, arg.Var)
					}
				}
				for _, dst := range stmt.Dsts {
					if isRef(dst) {
						for _, arg := range refArgs {
							uf.Union(elem(dst), elem(arg))
						}
					}
				}
			}
		}
	}

	return a
}

// Same checks whether two reference variables may alias.
func (a *Aliases) Same(x, y string) bool {
	ex, foundX := a.elems[x]
	ey, foundY := a.elems[y]
	return foundX && foundY && ex.Find() == ey.Find()
}

// ClassOf returns every reference variable in the alias class of v,
// including v itself.
func (a *Aliases) ClassOf(v string) []string {
	el, found := a.elems[v]
	if !found {
		return []string{v}
	}
	root := el.Find()
	var res []string
	for w, ew := range a.elems {
		if ew.Find() == root {
			res = append(res, w)
		}
	}
	return res
}
