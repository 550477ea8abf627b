package main

import (
	"sync"

	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
)

// analysisRun is the solved state of a whole program.
type analysisRun struct {
	results map[string]*solver.FuncResult
	order   []string
}

// runPipeline validates and solves every function, scheduling call-graph
// components callees-first and fanning independent components out over the
// worker pool. Failure isolation is per function: a malformed function is
// excluded from solving and its callers see an opaque summary.
func runPipeline(prog *ir.Program, cfg solver.Config, workers int) *analysisRun {
	run := &analysisRun{results: map[string]*solver.FuncResult{}}
	for _, fn := range prog.Funcs() {
		run.order = append(run.order, fn.Name)
	}

	sums := solver.NewSummaries(prog, cfg)
	malformed := prog.Validate()
	for name, err := range malformed {
		run.results[name] = solver.MalformedResult(prog.Func(name), err)
		sums.Seed(name, solver.Summary{TouchesMemory: true, PrecisionLost: true})
	}

	scc := solver.Components(prog)
	cond := scc.ToGraph()
	n := len(scc.Components)
	if n == 0 {
		return run
	}

	// Dependency counting over the condensation: a component becomes
	// ready once every component it calls into is solved.
	pendingDeps := make([]int, n)
	dependents := make([][]int, n)
	for i := 0; i < n; i++ {
		for _, dep := range cond.Edges(i) {
			pendingDeps[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	if workers < 1 {
		workers = 1
	}
	ready := make(chan int, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		if pendingDeps[i] == 0 {
			ready <- i
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for comp := range ready {
				var todo []string
				for _, name := range scc.Components[comp] {
					if _, bad := malformed[name]; !bad {
						todo = append(todo, name)
					}
				}
				if len(todo) > 0 {
					recursive := !scc.Trivial(comp, func(a, b string) bool { return a == b })
					res := solver.SolveComponent(prog, todo, recursive, cfg, sums)
					mu.Lock()
					for name, fr := range res {
						run.results[name] = fr
					}
					mu.Unlock()
				}
				done <- comp
			}
		}()
	}

	for completed := 0; completed < n; completed++ {
		comp := <-done
		for _, d := range dependents[comp] {
			pendingDeps[d]--
			if pendingDeps[d] == 0 {
				ready <- d
			}
		}
	}
	close(ready)
	wg.Wait()

	return run
}
