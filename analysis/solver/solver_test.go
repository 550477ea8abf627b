package solver

import (
	"fmt"
	"testing"
	"time"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
)

func mustProg(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := ir.DecodeBytes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if errs := prog.Validate(); len(errs) > 0 {
		t.Fatalf("test program is malformed: %v", errs)
	}
	return prog
}

func testConfig(t *testing.T) Config {
	t.Helper()
	d, err := domain.New("interval")
	if err != nil {
		t.Fatal(err)
	}
	return DefaultConfig(d)
}

func solve(t *testing.T, src, name string) *FuncResult {
	t.Helper()
	prog := mustProg(t, src)
	cfg := testConfig(t)
	return AnalyzeFunction(prog.Func(name), cfg, NewSummaries(prog, cfg))
}

func expectVar(t *testing.T, res *FuncResult, block int, v string, want lattice.Interval) {
	t.Helper()
	got := res.EntryState(block).Env.Lookup(v)
	if !got.Eq(want) {
		t.Errorf("block %d: %s = %s, expected %s", block, v, got, want)
	}
}

const countingLoop = `
functions:
  - name: loop
    locals:
      - {name: i, type: i32}
    entry: 0
    blocks:
      - stmts:
          - assign: {dst: i, x: 0}
        term: {goto: 1}
      - term:
          branch: {op: lt, x: i, y: 10, then: 2, else: 3}
      - stmts:
          - assign: {dst: i, op: add, x: i, y: 1}
        term: {goto: 1}
      - term: {return: {results: [i]}}
`

func TestLoopWideningNarrowing(t *testing.T) {
	res := solve(t, countingLoop, "loop")

	if res.Status != Stable {
		t.Fatalf("status = %s, expected Stable", res.Status)
	}
	if res.PrecisionLost || res.BudgetExceeded {
		t.Errorf("unexpected degradation flags on %+v", res)
	}

	iv := lattice.Elements().IntervalFinite
	// Narrowing recovers the loop bound that widening discarded.
	expectVar(t, res, 1, "i", iv(0, 10))
	expectVar(t, res, 2, "i", iv(0, 9))
	expectVar(t, res, 3, "i", iv(10, 10))

	if len(res.Returns) != 1 || !res.Returns[0].Eq(iv(10, 10)) {
		t.Errorf("returns = %v, expected [[10, 10]]", res.Returns)
	}
}

func TestParameterTypeRange(t *testing.T) {
	res := solve(t, `
functions:
  - name: f
    params:
      - {name: a, type: u8}
      - {name: b, type: i64}
    blocks:
      - term: {return: {results: [a]}}
`, "f")

	expectVar(t, res, 0, "a", lattice.Elements().IntervalFinite(0, 255))
	if !res.EntryState(0).Env.Lookup("b").IsTop() {
		t.Error("64-bit parameters should stay unconstrained")
	}
}

func TestGuardedBranch(t *testing.T) {
	res := solve(t, `
functions:
  - name: f
    params:
      - {name: a, type: u8}
    locals:
      - {name: x, type: u8}
    blocks:
      - term:
          branch: {op: ge, x: a, y: 200, then: 1, else: 2}
      - stmts:
          - assign: {dst: x, op: copy, x: a}
        term: {return: {results: [x]}}
      - term: {return: {results: [0]}}
`, "f")

	expectVar(t, res, 1, "a", lattice.Elements().IntervalFinite(200, 255))
	expectVar(t, res, 2, "a", lattice.Elements().IntervalFinite(0, 199))
}

func TestArrayLength(t *testing.T) {
	res := solve(t, `
functions:
  - name: f
    locals:
      - {name: buf, type: array}
      - {name: x, type: i32}
    blocks:
      - stmts:
          - make-array: {dst: buf, len: 5}
        term: {goto: 1}
      - stmts:
          - index-load: {dst: x, arr: buf, idx: 0}
        term: {return: {results: [x]}}
`, "f")

	expectVar(t, res, 1, LengthVar("buf"), lattice.Elements().IntervalFinite(5, 5))
}

func TestCallSummary(t *testing.T) {
	res := solve(t, `
functions:
  - name: caller
    locals:
      - {name: r, type: i32}
    blocks:
      - stmts:
          - call: {dsts: [r], callee: double, args: [21]}
        term: {return: {results: [r]}}
  - name: double
    params:
      - {name: v, type: i32}
    locals:
      - {name: d, type: i32}
    blocks:
      - stmts:
          - assign: {dst: d, op: mul, x: v, y: 2}
        term: {return: {results: [d]}}
`, "caller")

	if res.PrecisionLost {
		t.Error("a resolved call should not lose precision")
	}
	if len(res.Returns) != 1 || !res.Returns[0].Eq(lattice.Elements().Constant(42)) {
		t.Errorf("returns = %v, expected [[42, 42]]", res.Returns)
	}
}

func TestUnresolvedCallIsOpaque(t *testing.T) {
	res := solve(t, `
functions:
  - name: f
    locals:
      - {name: r, type: i32}
    blocks:
      - stmts:
          - call: {dsts: [r], callee: mystery}
        term: {return: {results: [r]}}
`, "f")

	if !res.PrecisionLost {
		t.Error("an opaque call should mark the result imprecise")
	}
	if len(res.Returns) != 1 || !res.Returns[0].IsTop() {
		t.Errorf("returns = %v, expected [⊤]", res.Returns)
	}
}

func TestSummaryShapeFallback(t *testing.T) {
	// Eleven distinct call contexts overflow the default summary bound,
	// pinning the callee to one context-insensitive summary.
	src := `
functions:
  - name: caller
    locals:
      - {name: r, type: i32}
    blocks:
      - stmts:
`
	for i := 0; i <= 10; i++ {
		src += fmt.Sprintf("          - call: {dsts: [r], callee: id, args: [%d]}\n", i)
	}
	src += `        term: {return: {results: [r]}}
  - name: id
    params:
      - {name: v, type: i32}
    blocks:
      - term: {return: {results: [v]}}
`

	prog := mustProg(t, src)
	cfg := testConfig(t)
	sums := NewSummaries(prog, cfg)
	res := AnalyzeFunction(prog.Func("caller"), cfg, sums)

	if !res.PrecisionLost {
		t.Error("the fallback summary should mark callers imprecise")
	}
	if fb, pinned := sums.Seeded("id"); !pinned {
		t.Error("the callee should be pinned to the fallback summary")
	} else if !fb.PrecisionLost {
		t.Error("the fallback summary should carry the precision flag")
	}
}

func TestRecursiveComponent(t *testing.T) {
	prog := mustProg(t, `
functions:
  - name: count
    params:
      - {name: n, type: i32}
    locals:
      - {name: m, type: i32}
      - {name: r, type: i32}
    blocks:
      - term:
          branch: {op: le, x: n, y: 0, then: 1, else: 2}
      - term: {return: {results: [0]}}
      - stmts:
          - assign: {dst: m, op: sub, x: n, y: 1}
          - call: {dsts: [r], callee: count, args: [m]}
        term: {return: {results: [r]}}
`)
	cfg := testConfig(t)
	sums := NewSummaries(prog, cfg)
	results := SolveComponent(prog, []string{"count"}, true, cfg, sums)

	res := results["count"]
	if res == nil || res.Status != Stable {
		t.Fatalf("recursion did not stabilize: %+v", res)
	}
	if len(res.Returns) != 1 || !res.Returns[0].Contains(0) {
		t.Errorf("returns = %v, expected an interval containing 0", res.Returns)
	}
}

func TestIterationCap(t *testing.T) {
	prog := mustProg(t, countingLoop)
	cfg := testConfig(t)
	// A widening delay past the cap forces plain joins until the cap fires.
	cfg.WideningDelay = 1000
	cfg.IterationCap = 3

	res := AnalyzeFunction(prog.Func("loop"), cfg, NewSummaries(prog, cfg))
	if res.Status != Stable {
		t.Fatalf("status = %s, expected Stable despite the cap", res.Status)
	}
	if !res.PrecisionLost {
		t.Error("the iteration cap should flag lost precision")
	}
}

func TestBudget(t *testing.T) {
	prog := mustProg(t, countingLoop)
	cfg := testConfig(t)
	cfg.Budget = time.Nanosecond

	res := AnalyzeFunction(prog.Func("loop"), cfg, NewSummaries(prog, cfg))
	if !res.BudgetExceeded {
		t.Error("a nanosecond budget should be exceeded")
	}
	if res.Status != Stable {
		t.Errorf("status = %s, expected Stable", res.Status)
	}
	// The budget fires before the return block is ever visited; its state
	// must simply be missing, not crash the collection.
	if len(res.Returns) != 0 {
		t.Errorf("returns = %v, expected none before any return site was reached", res.Returns)
	}
}

func TestDirectRecursionTerminates(t *testing.T) {
	prog := mustProg(t, `
functions:
  - name: f
    params:
      - {name: k, type: i32}
    locals:
      - {name: m, type: i32}
      - {name: r, type: i32}
    blocks:
      - term:
          branch: {op: le, x: k, y: 0, then: 1, else: 2}
      - term: {return: {results: [0]}}
      - stmts:
          - assign: {dst: m, op: sub, x: k, y: 1}
          - call: {dsts: [r], callee: f, args: [m]}
        term: {return: {results: [r]}}
`)
	cfg := testConfig(t)

	// A self-recursive entry point with an unseeded cache must resolve the
	// call on its own chain to ⊤ instead of waiting on itself.
	done := make(chan *FuncResult, 1)
	go func() {
		done <- AnalyzeFunction(prog.Func("f"), cfg, NewSummaries(prog, cfg))
	}()

	select {
	case res := <-done:
		if res.Status != Stable {
			t.Fatalf("status = %s, expected Stable", res.Status)
		}
		if len(res.Returns) != 1 || !res.Returns[0].Contains(0) {
			t.Errorf("returns = %v, expected an interval containing 0", res.Returns)
		}
		if !res.PrecisionLost {
			t.Error("the ⊤ self-summary should flag lost precision")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("analysis of a self-recursive function did not terminate")
	}
}

func TestTransferMonotone(t *testing.T) {
	prog := mustProg(t, `
functions:
  - name: f
    params:
      - {name: a, type: u8}
      - {name: b, type: i32}
    locals:
      - {name: x, type: i32}
      - {name: buf, type: array}
      - {name: p, type: ref}
    blocks:
      - stmts:
          - assign: {dst: x, op: add, x: a, y: b}
          - assign: {dst: x, op: mul, x: a, y: a}
          - assign: {dst: x, op: div, x: b, y: a}
          - assign: {dst: x, op: neg, x: b}
          - make-array: {dst: buf, len: b}
          - index-load: {dst: x, arr: buf, idx: a}
          - alloc: {dst: p}
          - free: {ref: p}
          - load: {dst: x, ref: p}
        term: {return: {results: [x]}}
`)
	fn := prog.Func("f")
	cfg := testConfig(t)
	ctx := newAnalysisCtx(fn, cfg, NewSummaries(prog, cfg), nil)

	iv := lattice.Elements().IntervalFinite
	lo := absstate.Top(cfg.Domain)
	lo = lo.WithEnv(lo.Env.AssignInterval("a", iv(2, 3)).AssignInterval("b", iv(5, 5)))
	hi := absstate.Top(cfg.Domain)
	hi = hi.WithEnv(hi.Env.AssignInterval("a", iv(0, 10)))

	if !lo.Leq(hi) {
		t.Fatal("the input states are not ordered")
	}

	for i, stmt := range fn.Blocks[0].Stmts {
		pt := ir.At(fn, 0, i)
		small := ctx.transferStmt(lo, stmt, pt, 0)
		big := ctx.transferStmt(hi, stmt, pt, 0)
		if !small.Leq(big) {
			t.Errorf("transfer of %s is not monotone: %s is not below %s", stmt, small, big)
		}
	}
}

func TestTouchesMemory(t *testing.T) {
	res := solve(t, `
functions:
  - name: release
    params:
      - {name: p, type: ref}
    blocks:
      - stmts:
          - free: {ref: p}
        term: {return: {}}
`, "release")

	if !res.TouchesMemory {
		t.Error("freeing a reference parameter is visible to the caller")
	}

	res = solve(t, `
functions:
  - name: local
    locals:
      - {name: p, type: ref}
    blocks:
      - stmts:
          - alloc: {dst: p}
          - free: {ref: p}
        term: {return: {}}
`, "local")

	if res.TouchesMemory {
		t.Error("freeing a local allocation is invisible to the caller")
	}
}

func TestReplay(t *testing.T) {
	res := solve(t, `
functions:
  - name: f
    locals:
      - {name: x, type: i32}
      - {name: y, type: i32}
    blocks:
      - stmts:
          - assign: {dst: x, x: 3}
          - assign: {dst: y, op: add, x: x, y: 4}
        term: {return: {results: [y]}}
`, "f")

	var points []ir.Point
	res.Replay(0, func(pt ir.Point, instr ir.Instruction, pre, post absstate.State) {
		points = append(points, pt)
		switch pt.Index {
		case 0:
			if !pre.Env.Lookup("x").IsTop() {
				t.Errorf("pre of the first statement should not bind x")
			}
			if !post.Env.Lookup("x").Eq(lattice.Elements().Constant(3)) {
				t.Errorf("post of x := 3 is %s", post.Env.Lookup("x"))
			}
		case 1:
			if !post.Env.Lookup("y").Eq(lattice.Elements().Constant(7)) {
				t.Errorf("post of y := x + 4 is %s", post.Env.Lookup("y"))
			}
		}
	})

	// Two statements plus the terminator.
	if len(points) != 3 {
		t.Fatalf("replay visited %d points, expected 3", len(points))
	}
}
