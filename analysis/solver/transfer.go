package solver

import (
	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/analysis/memory"
	"github.com/kestrel-analysis/kestrel/ir"
)

// analysisCtx carries everything the transfer functions need about the
// function under analysis.
type analysisCtx struct {
	cfg       Config
	fn        *ir.Function
	aliases   *memory.Aliases
	summaries *Summaries
	// inflight names the callees being solved on the current chain.
	inflight map[string]bool

	// touches records that the function may disturb memory visible to
	// its caller (free, invalidate or store through a reference
	// parameter or one of its aliases).
	touches bool
	// blockIter holds the capped allocation iteration the last fixpoint
	// visit used per block, for deterministic replay.
	blockIter map[int]int
}

func newAnalysisCtx(fn *ir.Function, cfg Config, sums *Summaries, inflight map[string]bool) *analysisCtx {
	return &analysisCtx{
		cfg:       cfg,
		fn:        fn,
		aliases:   memory.AnalyzeAliases(fn),
		summaries: sums,
		inflight:  inflight,
		blockIter: map[int]int{},
	}
}

func (ctx *analysisCtx) allocIter(block int) int {
	return ctx.blockIter[block]
}

// escapesCaller checks whether a reference variable may alias a reference
// parameter, i.e. whether effects through it are visible to the caller.
func (ctx *analysisCtx) escapesCaller(v string) bool {
	for _, p := range ctx.fn.Params {
		if p.Type.Kind == ir.KRef && ctx.aliases.Same(v, p.Name) {
			return true
		}
	}
	return false
}

// escapeTargets collects every handle reachable from the given reference
// variables, widened over their alias classes.
func (ctx *analysisCtx) escapeTargets(s absstate.State, refs []string) memory.HandleSet {
	hs := memory.NewHandleSet()
	for _, v := range refs {
		for _, w := range ctx.aliases.ClassOf(v) {
			hs = hs.Union(s.Mem.PointsTo(w))
		}
	}
	return hs
}

func isRefVar(fn *ir.Function, v string) bool {
	t, found := fn.TypeOf(v)
	return found && t.Kind == ir.KRef
}

// transferStmt computes the post-state of one statement. Pure up to the
// ctx.touches marker; the fixpoint and the checker replay both go through
// here.
func (ctx *analysisCtx) transferStmt(s absstate.State, stmt ir.Statement, pt ir.Point, iter int) absstate.State {
	if s.IsBottom() {
		return s
	}

	switch stmt := stmt.(type) {
	case ir.Assign:
		return s.WithEnv(s.Env.Assign(stmt.Dst, stmt.Val))

	case ir.Alloc:
		m, h := s.Mem.Allocate(pt, iter)
		return s.WithMem(m.Bind(stmt.Dst, memory.NewHandleSet(h)))

	case ir.Free:
		if ctx.escapesCaller(stmt.Ref) {
			ctx.touches = true
		}
		m, _ := s.Mem.Free(s.Mem.PointsTo(stmt.Ref))
		return s.WithMem(m)

	case ir.Load:
		// Heap contents are not tracked numerically.
		return s.WithEnv(s.Env.Forget(stmt.Dst))

	case ir.Store:
		if ctx.escapesCaller(stmt.Ref) {
			ctx.touches = true
		}
		return s

	case ir.MakeArray:
		length := s.Env.Eval(stmt.Len).
			Meet(lattice.Elements().Interval(lattice.FiniteBound(0), lattice.PlusInfinity{})).
			Interval()
		return s.WithEnv(s.Env.AssignInterval(LengthVar(stmt.Dst), length))

	case ir.IndexLoad:
		return s.WithEnv(s.Env.Forget(stmt.Dst))

	case ir.IndexStore:
		return s

	case ir.Call:
		return ctx.transferCall(s, stmt)
	}
	return s
}

func (ctx *analysisCtx) transferCall(s absstate.State, call ir.Call) absstate.State {
	args := make([]lattice.Interval, len(call.Args))
	var refArgs []string
	for i, a := range call.Args {
		args[i] = s.Env.Eval(a)
		if !a.IsLit() && isRefVar(ctx.fn, a.Var) {
			refArgs = append(refArgs, a.Var)
		}
	}

	if call.Unresolved {
		return ctx.opaqueCall(s, call, refArgs)
	}

	sum := ctx.summaries.resolve(call.Callee, args, ctx.inflight)

	env := s.Env
	mem := s.Mem
	for i, dst := range call.Dsts {
		if isRefVar(ctx.fn, dst) {
			// The callee may return any reference it was passed.
			mem = mem.Bind(dst, ctx.escapeTargets(s, refArgs))
			continue
		}
		env = env.AssignInterval(dst, sum.Result(i))
	}

	if sum.TouchesMemory {
		mem = mem.Invalidate(ctx.escapeTargets(s, refArgs))
		for _, v := range refArgs {
			if ctx.escapesCaller(v) {
				ctx.touches = true
			}
		}
	}
	if sum.PrecisionLost {
		env = env.MarkImprecise()
	}
	return absstate.State{Env: env, Mem: mem}
}

// opaqueCall applies the most conservative call effect: every result is
// unconstrained and every handle reachable from the reference arguments
// moves to Unknown.
func (ctx *analysisCtx) opaqueCall(s absstate.State, call ir.Call, refArgs []string) absstate.State {
	env := s.Env
	mem := s.Mem
	for _, dst := range call.Dsts {
		if isRefVar(ctx.fn, dst) {
			// No provenance for a reference produced by an unknown callee.
			mem = mem.Bind(dst, memory.NewHandleSet())
			continue
		}
		env = env.Forget(dst)
	}
	mem = mem.Invalidate(ctx.escapeTargets(s, refArgs))
	for _, v := range refArgs {
		if ctx.escapesCaller(v) {
			ctx.touches = true
		}
	}
	return absstate.State{Env: env.MarkImprecise(), Mem: mem}
}

// edgeOut refines a block's exit state along the edge to its succPos'th
// successor, applying the branch condition on conditional edges.
func edgeOut(out absstate.State, term ir.Terminator, succPos int) absstate.State {
	if br, ok := term.(ir.Branch); ok {
		cond := br.Cond
		if succPos != 0 {
			cond = cond.Negate()
		}
		return out.WithEnv(out.Env.Guard(cond))
	}
	return out
}

// typeRange is the representable interval of an integer type. 64-bit
// types stay unconstrained so that bound arithmetic cannot wrap.
func typeRange(t ir.Type) lattice.Interval {
	if t.Bits >= 64 {
		return lattice.Elements().Interval(lattice.MinusInfinity{}, lattice.PlusInfinity{})
	}
	lo, hi := t.Bounds()
	return lattice.Elements().IntervalFinite(lo, hi)
}

// entryState builds the state at a function entry: integer parameters
// bound to the given argument intervals, narrowed to their type's
// representable range, reference parameters with caller-owned, unknown
// provenance.
func entryState(fn *ir.Function, cfg Config, args []lattice.Interval) absstate.State {
	s := absstate.Top(cfg.Domain)
	env := s.Env
	for i, p := range fn.Params {
		if p.Type.Kind != ir.KInt {
			continue
		}
		iv := typeRange(p.Type)
		if i < len(args) {
			iv = args[i].Meet(iv).Interval()
		}
		env = env.AssignInterval(p.Name, iv)
	}
	return s.WithEnv(env)
}
