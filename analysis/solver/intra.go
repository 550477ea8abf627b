package solver

import (
	"time"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils/graph"
	"github.com/kestrel-analysis/kestrel/utils/pq"
)

// AnalyzeFunction solves one function as an analysis entry point, with
// integer parameters unconstrained.
func AnalyzeFunction(fn *ir.Function, cfg Config, sums *Summaries) *FuncResult {
	return analyze(fn, entryState(fn, cfg, nil), cfg, sums,
		map[string]bool{fn.Name: true})
}

// analyze runs the intraprocedural fixpoint: chaotic iteration over a
// priority worklist in reverse post-order, with delayed widening at loop
// heads, a hard visit cap, and bounded narrowing passes afterwards.
// inflight holds the callees on the current summary-computation chain;
// calls back into them resolve to ⊤ instead of recursing.
func analyze(fn *ir.Function, entry absstate.State, cfg Config, sums *Summaries, inflight map[string]bool) *FuncResult {
	ctx := newAnalysisCtx(fn, cfg, sums, inflight)
	res := &FuncResult{
		Fn:     fn,
		Status: InProgress,
		ctx:    ctx,
	}

	start := time.Now()
	var deadline time.Time
	if cfg.Budget > 0 {
		deadline = start.Add(cfg.Budget)
	}
	overBudget := func() bool {
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	G := graph.OfHashable(func(b int) []int {
		return fn.Blocks[b].Term.Successors()
	})
	post := G.Postorder([]int{fn.Entry})

	// Reverse post-order priorities: a block is processed before any of
	// its non-back-edge successors.
	priority := map[int]int{}
	for i, b := range post {
		priority[b] = len(post) - 1 - i
	}

	// Loop heads are the targets of back edges.
	doms := G.Dominators(fn.Entry)
	loopHead := map[int]bool{}
	type predEdge struct{ block, pos int }
	preds := map[int][]predEdge{}
	for _, u := range post {
		for pos, v := range G.Edges(u) {
			preds[v] = append(preds[v], predEdge{u, pos})
			if doms.Dominates(v, u) {
				loopHead[v] = true
			}
		}
	}

	in := map[int]absstate.State{fn.Entry: entry}
	joins := map[int]int{}
	visits := map[int]int{}
	capped := map[int]bool{}

	transferBlock := func(b int) absstate.State {
		out := in[b]
		iter := ctx.blockIter[b]
		for i, stmt := range fn.Blocks[b].Stmts {
			out = ctx.transferStmt(out, stmt, ir.At(fn, b, i), iter)
		}
		return out
	}

	wl := pq.Empty(func(a, b int) bool {
		return priority[a] < priority[b]
	})
	wl.Add(fn.Entry)

	for !wl.IsEmpty() {
		if overBudget() {
			res.BudgetExceeded = true
			break
		}

		b := wl.GetNext()
		visits[b]++
		res.Visits++

		iter := visits[b] - 1
		if iter > cfg.WideningDelay {
			iter = cfg.WideningDelay
		}
		ctx.blockIter[b] = iter

		if visits[b] > cfg.IterationCap && !capped[b] {
			// The domain violated the chain condition (or the cap is
			// simply too tight): give up on the block's precision
			// instead of iterating forever.
			capped[b] = true
			res.PrecisionLost = true
			in[b] = absstate.Top(cfg.Domain).
				WithEnv(cfg.Domain.Top().MarkImprecise()).
				WithMem(in[b].Mem)
		}

		out := transferBlock(b)
		term := fn.Blocks[b].Term
		for pos, succ := range term.Successors() {
			edge := edgeOut(out, term, pos)

			old, seen := in[succ]
			if !seen {
				old = absstate.Bottom(cfg.Domain)
			}
			next := old.Join(edge)
			if loopHead[succ] {
				joins[succ]++
				if joins[succ] > cfg.WideningDelay {
					next = old.Widen(next)
				}
			}
			if !seen || !next.Eq(old) {
				in[succ] = next
				wl.Add(succ)
			}
		}
	}

	// Descending passes recover the precision widening threw away.
	if !res.BudgetExceeded {
		for pass := 0; pass < cfg.NarrowingIter; pass++ {
			if overBudget() {
				res.BudgetExceeded = true
				break
			}
			changed := false
			for i := len(post) - 1; i >= 0; i-- {
				b := post[i]
				if b == fn.Entry || capped[b] {
					continue
				}
				candidate := absstate.Bottom(cfg.Domain)
				for _, p := range preds[b] {
					candidate = candidate.Join(
						edgeOut(transferBlock(p.block), fn.Blocks[p.block].Term, p.pos))
				}
				if narrowed := in[b].Narrow(candidate); !narrowed.Eq(in[b]) {
					in[b] = narrowed
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	// Join the abstract results over all reachable return sites. Blocks
	// the budget cut off before their first visit have no entry state.
	var returns []lattice.Interval
	for _, b := range post {
		ret, isReturn := fn.Blocks[b].Term.(ir.Return)
		if !isReturn {
			continue
		}
		if _, seen := in[b]; !seen {
			continue
		}
		out := transferBlock(b)
		if out.IsBottom() {
			continue
		}
		// Imprecision introduced after the last block entry only shows in
		// the exit state.
		if out.Env.Imprecise() {
			res.PrecisionLost = true
		}
		for i, r := range ret.Results {
			for len(returns) <= i {
				returns = append(returns,
					lattice.Create().Lattice().Interval().Bot().Interval())
			}
			returns[i] = returns[i].Join(out.Env.Eval(r)).Interval()
		}
	}

	for _, s := range in {
		if s.Env.Imprecise() {
			res.PrecisionLost = true
			break
		}
	}

	res.Status = Stable
	res.Entries = in
	res.Returns = returns
	res.TouchesMemory = ctx.touches
	res.Duration = time.Since(start)
	return res
}
