package main

import (
	"testing"

	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
)

const pipelineProgram = `
functions:
  - name: entry
    locals:
      - {name: a, type: i32}
      - {name: b, type: i32}
    blocks:
      - stmts:
          - call: {dsts: [a], callee: helper}
          - call: {dsts: [b], callee: broken}
        term: {return: {results: [a]}}
  - name: helper
    blocks:
      - term: {return: {results: [7]}}
  - name: broken
    blocks:
      - term: {goto: 42}
  - name: even
    params:
      - {name: n, type: i32}
    locals:
      - {name: m, type: i32}
      - {name: r, type: i32}
    blocks:
      - term:
          branch: {op: eq, x: n, y: 0, then: 1, else: 2}
      - term: {return: {results: [1]}}
      - stmts:
          - assign: {dst: m, op: sub, x: n, y: 1}
          - call: {dsts: [r], callee: odd, args: [m]}
        term: {return: {results: [r]}}
  - name: odd
    params:
      - {name: n, type: i32}
    locals:
      - {name: m, type: i32}
      - {name: r, type: i32}
    blocks:
      - term:
          branch: {op: eq, x: n, y: 0, then: 1, else: 2}
      - term: {return: {results: [0]}}
      - stmts:
          - assign: {dst: m, op: sub, x: n, y: 1}
          - call: {dsts: [r], callee: even, args: [m]}
        term: {return: {results: [r]}}
`

func testPipelineConfig(t *testing.T) solver.Config {
	t.Helper()
	d, err := domain.New("interval")
	if err != nil {
		t.Fatal(err)
	}
	return solver.DefaultConfig(d)
}

func TestRunPipeline(t *testing.T) {
	prog, err := ir.DecodeBytes([]byte(pipelineProgram))
	if err != nil {
		t.Fatal(err)
	}

	run := runPipeline(prog, testPipelineConfig(t), 4)

	if len(run.order) != 5 {
		t.Fatalf("order has %d entries, expected 5: %v", len(run.order), run.order)
	}
	for _, name := range run.order {
		if run.results[name] == nil {
			t.Fatalf("no result for %s", name)
		}
	}

	broken := run.results["broken"]
	if !broken.Malformed || broken.Err == nil {
		t.Errorf("broken should be malformed, got %+v", broken)
	}

	helper := run.results["helper"]
	if helper.Malformed || len(helper.Returns) != 1 ||
		!helper.Returns[0].Eq(lattice.Elements().Constant(7)) {
		t.Errorf("helper returns = %v, expected [[7, 7]]", helper.Returns)
	}

	// A malformed callee degrades its caller instead of sinking the batch.
	entry := run.results["entry"]
	if entry.Malformed {
		t.Error("entry itself is well formed")
	}
	if !entry.PrecisionLost {
		t.Error("calling a malformed function should lose precision")
	}

	for _, name := range []string{"even", "odd"} {
		res := run.results[name]
		if res.Status != solver.Stable {
			t.Errorf("%s did not stabilize: %+v", name, res)
		}
	}
}

func TestCfgDotMalformedFunction(t *testing.T) {
	prog, err := ir.DecodeBytes([]byte(pipelineProgram))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cfgDot(prog, "broken", nil); err == nil {
		t.Error("rendering a function with a dangling branch should fail")
	}
	if _, err := cfgDot(prog, "nope", nil); err == nil {
		t.Error("rendering an unknown function should fail")
	}

	cfg := testPipelineConfig(t)
	if g, err := cfgDot(prog, "helper", &cfg); err != nil || g == nil {
		t.Errorf("rendering a well-formed function failed: %v", err)
	}
}

func TestRunPipelineSingleWorker(t *testing.T) {
	prog, err := ir.DecodeBytes([]byte(pipelineProgram))
	if err != nil {
		t.Fatal(err)
	}

	// A worker count below one clamps to a single worker.
	run := runPipeline(prog, testPipelineConfig(t), 0)
	if len(run.results) != 5 {
		t.Fatalf("got %d results, expected 5", len(run.results))
	}
}
