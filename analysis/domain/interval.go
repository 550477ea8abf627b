package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
)

// intervalDomain is the non-relational interval backend.
type intervalDomain struct{}

func (intervalDomain) Name() string {
	return "interval"
}

func (intervalDomain) Top() Env {
	return &intervalEnv{vars: immutable.NewMap[string, lattice.Interval](nil)}
}

func (intervalDomain) Bottom() Env {
	return &intervalEnv{
		vars:   immutable.NewMap[string, lattice.Interval](nil),
		bottom: true,
	}
}

// intervalEnv maps variables to intervals. Variables without a binding are
// implicitly ⊤, so joins and widenings can drop bindings instead of storing
// ⊤ entries.
type intervalEnv struct {
	vars      *immutable.Map[string, lattice.Interval]
	bottom    bool
	imprecise bool
}

func asInterval(o Env) *intervalEnv {
	if e, ok := o.(*intervalEnv); ok {
		return e
	}
	panic(fmt.Sprintf(
		"abstract domain mismatch: interval combined with %s", o.Domain().Name(),
	))
}

func (e *intervalEnv) Domain() Domain {
	return intervalDomain{}
}

func (e *intervalEnv) IsBottom() bool {
	return e.bottom
}

func (e *intervalEnv) Imprecise() bool {
	return e.imprecise
}

func (e *intervalEnv) MarkImprecise() Env {
	if e.imprecise {
		return e
	}
	res := *e
	res.imprecise = true
	return &res
}

func (e *intervalEnv) Lookup(v string) lattice.Interval {
	if e.bottom {
		return lattice.Create().Lattice().Interval().Bot().Interval()
	}
	if val, ok := e.vars.Get(v); ok {
		return val
	}
	return lattice.Create().Lattice().Interval().Top().Interval()
}

func (e *intervalEnv) Eval(op ir.Operand) lattice.Interval {
	if op.IsLit() {
		if e.bottom {
			return lattice.Create().Lattice().Interval().Bot().Interval()
		}
		return lattice.Elements().Constant(op.Lit)
	}
	return e.Lookup(op.Var)
}

func (e *intervalEnv) EvalRvalue(rv ir.Rvalue) lattice.Interval {
	x := e.Eval(rv.X)
	switch rv.Op {
	case ir.OpCopy:
		return x
	case ir.OpNeg:
		return x.Neg()
	}

	y := e.Eval(rv.Y)
	switch rv.Op {
	case ir.OpAdd:
		return x.Add(y)
	case ir.OpSub:
		return x.Sub(y)
	case ir.OpMul:
		return x.Mul(y)
	case ir.OpDiv:
		return x.Div(y)
	case ir.OpRem:
		return x.Rem(y)
	}
	panic(fmt.Sprintf("unknown rvalue operator in %s", rv))
}

func (e *intervalEnv) Assign(dst string, rv ir.Rvalue) Env {
	return e.AssignInterval(dst, e.EvalRvalue(rv))
}

func (e *intervalEnv) AssignInterval(dst string, val lattice.Interval) Env {
	if e.bottom {
		return e
	}
	if val.IsBot() {
		// The right-hand side is unreachable, and so is the assignment.
		return &intervalEnv{vars: e.vars, bottom: true, imprecise: e.imprecise}
	}
	if val.IsTop() {
		return e.Forget(dst)
	}
	return &intervalEnv{vars: e.vars.Set(dst, val), imprecise: e.imprecise}
}

func (e *intervalEnv) Forget(v string) Env {
	if e.bottom {
		return e
	}
	if _, ok := e.vars.Get(v); !ok {
		return e
	}
	return &intervalEnv{vars: e.vars.Delete(v), imprecise: e.imprecise}
}

func incBound(b lattice.IntervalBound) lattice.IntervalBound {
	if f, ok := b.(lattice.FiniteBound); ok {
		return f + 1
	}
	return b
}

func decBound(b lattice.IntervalBound) lattice.IntervalBound {
	if f, ok := b.(lattice.FiniteBound); ok {
		return f - 1
	}
	return b
}

// trimNe cuts a constant vy off the endpoint of vx. A disequality only
// refines an interval when the excluded value sits on one of its bounds.
func trimNe(vx, vy lattice.Interval) lattice.Interval {
	if vx.IsBot() || !vy.IsConstant() {
		return vx
	}
	c, _ := vy.GetFiniteBounds()
	cb := lattice.FiniteBound(c)
	switch {
	case vx.IsConstant() && vx.Contains(c):
		return lattice.Create().Lattice().Interval().Bot().Interval()
	case vx.Low().Eq(cb):
		return lattice.Elements().Interval(cb+1, vx.High())
	case vx.High().Eq(cb):
		return lattice.Elements().Interval(vx.Low(), cb-1)
	}
	return vx
}

// refine computes the strongest interval refinement of both comparison
// operands under the assumption that the comparison holds.
func refine(op ir.RelOp, vx, vy lattice.Interval) (lattice.Interval, lattice.Interval) {
	el := lattice.Elements()
	inf, minf := lattice.PlusInfinity{}, lattice.MinusInfinity{}

	switch op {
	case ir.RelEq:
		m := vx.Meet(vy).Interval()
		return m, m
	case ir.RelNe:
		return trimNe(vx, vy), trimNe(vy, vx)
	case ir.RelLt:
		return vx.Meet(el.Interval(minf, decBound(vy.High()))).Interval(),
			vy.Meet(el.Interval(incBound(vx.Low()), inf)).Interval()
	case ir.RelLe:
		return vx.Meet(el.Interval(minf, vy.High())).Interval(),
			vy.Meet(el.Interval(vx.Low(), inf)).Interval()
	case ir.RelGt:
		return vx.Meet(el.Interval(incBound(vy.Low()), inf)).Interval(),
			vy.Meet(el.Interval(minf, decBound(vx.High()))).Interval()
	case ir.RelGe:
		return vx.Meet(el.Interval(vy.Low(), inf)).Interval(),
			vy.Meet(el.Interval(minf, vx.High())).Interval()
	}
	return vx, vy
}

func (e *intervalEnv) Guard(c ir.Cond) Env {
	if e.bottom {
		return e
	}

	vx, vy := e.Eval(c.X), e.Eval(c.Y)
	rx, ry := refine(c.Op, vx, vy)
	if rx.IsBot() || ry.IsBot() {
		return &intervalEnv{vars: e.vars, bottom: true, imprecise: e.imprecise}
	}

	res := Env(e)
	if !c.X.IsLit() {
		res = res.AssignInterval(c.X.Var, rx)
	}
	if !c.Y.IsLit() {
		res = res.AssignInterval(c.Y.Var, ry)
	}
	return res
}

// Leq computes e1 ⊑ e2 pointwise. Bindings absent from e2 are ⊤ and
// trivially satisfied.
func (e1 *intervalEnv) Leq(o Env) bool {
	e2 := asInterval(o)
	if e1.bottom {
		return true
	}
	if e2.bottom {
		return false
	}
	for it := e2.vars.Iterator(); !it.Done(); {
		k, v2, _ := it.Next()
		if !e1.Lookup(k).Leq(v2) {
			return false
		}
	}
	return true
}

func (e1 *intervalEnv) Eq(o Env) bool {
	e2 := asInterval(o)
	return e1.Leq(e2) && e2.Leq(e1)
}

func (e1 *intervalEnv) Join(o Env) Env {
	e2 := asInterval(o)
	switch {
	case e1.bottom:
		return mergeImprecision(e2, e1)
	case e2.bottom:
		return mergeImprecision(e1, e2)
	}

	vars := immutable.NewMap[string, lattice.Interval](nil)
	for it := e1.vars.Iterator(); !it.Done(); {
		k, v1, _ := it.Next()
		if v2, ok := e2.vars.Get(k); ok {
			if j := v1.Join(v2).Interval(); !j.IsTop() {
				vars = vars.Set(k, j)
			}
		}
	}
	return &intervalEnv{vars: vars, imprecise: e1.imprecise || e2.imprecise}
}

func (e1 *intervalEnv) Meet(o Env) Env {
	e2 := asInterval(o)
	if e1.bottom {
		return mergeImprecision(e1, e2)
	}
	if e2.bottom {
		return mergeImprecision(e2, e1)
	}

	vars := e1.vars
	for it := e2.vars.Iterator(); !it.Done(); {
		k, v2, _ := it.Next()
		m := e1.Lookup(k).Meet(v2).Interval()
		if m.IsBot() {
			return &intervalEnv{
				vars:      immutable.NewMap[string, lattice.Interval](nil),
				bottom:    true,
				imprecise: e1.imprecise || e2.imprecise,
			}
		}
		vars = vars.Set(k, m)
	}
	return &intervalEnv{vars: vars, imprecise: e1.imprecise || e2.imprecise}
}

// Widen jumps unstable bindings to ⊤ pointwise. Bindings present in only
// one operand are already unstable and drop out.
func (e1 *intervalEnv) Widen(o Env) Env {
	e2 := asInterval(o)
	switch {
	case e1.bottom:
		return mergeImprecision(e2, e1)
	case e2.bottom:
		return mergeImprecision(e1, e2)
	}

	vars := immutable.NewMap[string, lattice.Interval](nil)
	for it := e1.vars.Iterator(); !it.Done(); {
		k, v1, _ := it.Next()
		if v2, ok := e2.vars.Get(k); ok {
			if w := v1.Widen(v2); !w.IsTop() {
				vars = vars.Set(k, w)
			}
		}
	}
	return &intervalEnv{vars: vars, imprecise: e1.imprecise || e2.imprecise}
}

// Narrow refines widened bindings with the narrowing operand, assuming
// o ⊑ e1 as produced by a descending iteration.
func (e1 *intervalEnv) Narrow(o Env) Env {
	e2 := asInterval(o)
	if e1.bottom || e2.bottom {
		return mergeImprecision(e2, e1)
	}

	vars := e1.vars
	for it := e2.vars.Iterator(); !it.Done(); {
		k, v2, _ := it.Next()
		if n := e1.Lookup(k).Narrow(v2); !n.IsTop() {
			vars = vars.Set(k, n)
		}
	}
	return &intervalEnv{vars: vars, imprecise: e1.imprecise || e2.imprecise}
}

// mergeImprecision keeps the bindings of the first environment and the
// imprecision marker of both.
func mergeImprecision(keep, other *intervalEnv) Env {
	if other.imprecise && !keep.imprecise {
		res := *keep
		res.imprecise = true
		return &res
	}
	return keep
}

func (e *intervalEnv) String() string {
	if e.bottom {
		return "⊥"
	}

	keys := make([]string, 0, e.vars.Len())
	for it := e.vars.Iterator(); !it.Done(); {
		k, _, _ := it.Next()
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := e.vars.Get(k)
		fmt.Fprintf(&sb, "%s ↦ %s", k, v)
	}
	sb.WriteString("}")
	return sb.String()
}
