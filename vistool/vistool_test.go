package vistool

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/ir"
)

func testFunction(t *testing.T) *ir.Function {
	t.Helper()
	prog, err := ir.DecodeBytes([]byte(`
functions:
  - name: f
    locals:
      - {name: i, type: i32}
    blocks:
      - stmts:
          - assign: {dst: i, x: 0}
        term:
          branch: {op: lt, x: i, y: 10, then: 1, else: 2}
      - term: {goto: 0}
      - term: {return: {results: [i]}}
`))
	if err != nil {
		t.Fatal(err)
	}
	return prog.Func("f")
}

func TestCFGToDot(t *testing.T) {
	g := CFGToDot(testFunction(t), nil)

	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"digraph ControlFlow",
		`label="f";`,
		`"b0" -> "b1" [ label="T"; ]`,
		`"b0" -> "b2" [ label="F"; ]`,
		`"b1" -> "b0" [  ]`,
		`fillcolor="lightblue"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output is missing %q:\n%s", want, out)
		}
	}
}

func TestCFGToDotWithStates(t *testing.T) {
	fn := testFunction(t)
	d, err := domain.New("interval")
	if err != nil {
		t.Fatal(err)
	}
	states := map[int]absstate.State{
		0: absstate.Top(d),
		1: absstate.Top(d),
	}

	g := CFGToDot(fn, states)
	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "entry: ") {
		t.Errorf("annotated output should carry entry states:\n%s", out)
	}
	// Block 2 has no state and renders as unreachable.
	if !strings.Contains(out, "entry: unreachable") {
		t.Errorf("blocks without a state should render as unreachable:\n%s", out)
	}
}
