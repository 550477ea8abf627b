package ir

import (
	"strings"
	"testing"
)

const sampleProgram = `
functions:
  - name: clamp
    params:
      - {name: a, type: u8}
    locals:
      - {name: x, type: u8}
    entry: 0
    blocks:
      - term:
          branch: {op: gt, x: a, y: 100, then: 1, else: 2}
      - stmts:
          - assign: {dst: x, op: copy, x: 100}
        term:
          goto: 2
      - stmts:
          - assign: {dst: x, op: add, x: a, y: 1}
        term:
          return: {results: [x]}
  - name: caller
    locals:
      - {name: r, type: u8}
      - {name: s, type: u8}
    entry: 0
    blocks:
      - stmts:
          - call: {dsts: [r], callee: clamp, args: [41]}
          - call: {dsts: [s], callee: mystery, args: [r]}
        term:
          return: {results: [s]}
`

func TestDecode(t *testing.T) {
	prog, err := DecodeBytes([]byte(sampleProgram))
	if err != nil {
		t.Fatal(err)
	}

	clamp := prog.Func("clamp")
	if clamp == nil {
		t.Fatal("clamp not decoded")
	}
	if len(clamp.Blocks) != 3 {
		t.Fatalf("clamp has %d blocks, expected 3", len(clamp.Blocks))
	}
	if ty, found := clamp.TypeOf("a"); !found || ty.Bits != 8 || ty.Signed {
		t.Errorf("a has type %v, expected u8", ty)
	}

	br, isBranch := clamp.Blocks[0].Term.(Branch)
	if !isBranch {
		t.Fatalf("block 0 ends in %T, expected Branch", clamp.Blocks[0].Term)
	}
	if br.Cond.Op != RelGt || br.Then != 1 || br.Else != 2 {
		t.Errorf("unexpected branch %v", br)
	}
	if !br.Cond.Y.IsLit() || br.Cond.Y.Lit != 100 {
		t.Errorf("branch compares against %v, expected literal 100", br.Cond.Y)
	}

	add := clamp.Blocks[2].Stmts[0].(Assign)
	if add.Val.Op != OpAdd || add.Val.X.Var != "a" {
		t.Errorf("unexpected assignment %v", add)
	}
}

func TestDecodeResolvesCalls(t *testing.T) {
	prog, err := DecodeBytes([]byte(sampleProgram))
	if err != nil {
		t.Fatal(err)
	}

	caller := prog.Func("caller")
	known := caller.Blocks[0].Stmts[0].(Call)
	unknown := caller.Blocks[0].Stmts[1].(Call)

	if known.Unresolved {
		t.Error("call to clamp should be resolved")
	}
	if !unknown.Unresolved {
		t.Error("call to mystery should be unresolved")
	}
	if callees := prog.Callees(caller); len(callees) != 1 || callees[0] != "clamp" {
		t.Errorf("callees of caller = %v, expected [clamp]", callees)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"empty", "functions: []", "no functions"},
		{"unnamed", `
functions:
  - blocks: []`, "missing name"},
		{"badop", `
functions:
  - name: f
    blocks:
      - stmts:
          - assign: {dst: x, op: xor, x: 1, y: 2}
        term: {return: {}}`, "unknown operator"},
		{"badtype", `
functions:
  - name: f
    locals: [{name: x, type: f64}]
    blocks:
      - term: {return: {}}`, "unknown type"},
		{"badterm", `
functions:
  - name: f
    blocks:
      - term: {jump: 3}`, "no recognized tag"},
	}

	for _, test := range tests {
		if _, err := DecodeBytes([]byte(test.src)); err == nil {
			t.Errorf("%s: expected an error", test.name)
		} else if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: error %q does not mention %q", test.name, err, test.want)
		}
	}
}

func TestDecodeBooleanLikeNames(t *testing.T) {
	// YAML 1.1 resolves bare n, y, no and off as booleans; the decoder
	// must keep them as variable names.
	prog, err := DecodeBytes([]byte(`
functions:
  - name: f
    params:
      - {name: n, type: i32}
      - {name: y, type: i32}
    locals:
      - {name: r, type: i32}
      - {name: off, type: i32}
      - {name: no, type: i32}
    blocks:
      - stmts:
          - assign: {dst: r, op: add, x: n, y: y}
        term:
          branch: {op: le, x: y, y: off, then: 1, else: 1}
      - term: {return: {results: [no]}}`))
	if err != nil {
		t.Fatal(err)
	}

	fn := prog.Func("f")
	assign := fn.Blocks[0].Stmts[0].(Assign)
	if assign.Val.X.IsLit() || assign.Val.X.Var != "n" {
		t.Errorf("x operand is %+v, expected the variable n", assign.Val.X)
	}
	if assign.Val.Y.IsLit() || assign.Val.Y.Var != "y" {
		t.Errorf("y operand is %+v, expected the variable y", assign.Val.Y)
	}
	branch := fn.Blocks[0].Term.(Branch)
	if branch.Cond.Y.IsLit() || branch.Cond.Y.Var != "off" {
		t.Errorf("branch operand is %+v, expected the variable off", branch.Cond.Y)
	}
	ret := fn.Blocks[1].Term.(Return)
	if ret.Results[0].IsLit() || ret.Results[0].Var != "no" {
		t.Errorf("result is %+v, expected the variable no", ret.Results[0])
	}
}

func TestDecodeDuplicateFunction(t *testing.T) {
	src := `
functions:
  - name: f
    blocks:
      - term: {return: {}}
  - name: f
    blocks:
      - term: {return: {}}`
	if _, err := DecodeBytes([]byte(src)); err == nil ||
		!strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected a duplicate function error, got %v", err)
	}
}
