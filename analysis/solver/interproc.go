package solver

import (
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils/graph"
)

// CallGraph builds the resolved call graph of the program, with function
// names as nodes. Unresolved calls contribute no edges; they are opaque.
func CallGraph(prog *ir.Program) graph.Graph[string] {
	return graph.OfHashable(func(name string) []string {
		fn := prog.Func(name)
		if fn == nil {
			return nil
		}
		return prog.Callees(fn)
	})
}

// Components computes the SCC condensation of the call graph with every
// function as a root. Processing components in index order visits callees
// before callers.
func Components(prog *ir.Program) graph.SCCDecomposition[string] {
	fns := prog.Funcs()
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	return CallGraph(prog).SCC(names)
}

// SolveComponent solves one call-graph component. Non-recursive functions
// are solved directly; the members of a recursive component are seeded
// with ⊤ summaries and refined by an outer fixpoint, each refinement
// round descending from above so the iteration can stop at any round
// without losing soundness.
func SolveComponent(prog *ir.Program, fns []string, recursive bool, cfg Config, sums *Summaries) map[string]*FuncResult {
	results := map[string]*FuncResult{}

	if !recursive {
		name := fns[0]
		results[name] = AnalyzeFunction(prog.Func(name), cfg, sums)
		return results
	}

	for _, name := range fns {
		sums.Seed(name, topSummary())
	}

	for round := 0; ; round++ {
		changed := false
		for _, name := range fns {
			res := AnalyzeFunction(prog.Func(name), cfg, sums)
			results[name] = res

			next := Summary{
				Results:       res.Returns,
				TouchesMemory: res.TouchesMemory,
				PrecisionLost: res.PrecisionLost || res.BudgetExceeded,
			}
			old, _ := sums.Seeded(name)
			if !summaryEq(old, next) {
				sums.Seed(name, next)
				changed = true
			}
		}
		if !changed || round >= cfg.NarrowingIter {
			break
		}
	}
	return results
}

func summaryEq(a, b Summary) bool {
	if len(a.Results) != len(b.Results) ||
		a.TouchesMemory != b.TouchesMemory ||
		a.PrecisionLost != b.PrecisionLost {
		return false
	}
	for i := range a.Results {
		if !a.Results[i].Eq(b.Results[i]) {
			return false
		}
	}
	return true
}
