package ir

import (
	"strings"
	"testing"
)

func mustDecode(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := DecodeBytes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestValidateIsolatesFunctions(t *testing.T) {
	prog := mustDecode(t, `
functions:
  - name: good
    locals: [{name: x, type: i32}]
    blocks:
      - stmts:
          - assign: {dst: x, op: add, x: 1, y: 2}
        term: {return: {results: [x]}}
  - name: dangling
    blocks:
      - term: {goto: 7}
  - name: noterm
    blocks:
      - stmts:
          - assign: {dst: y, x: 0}
`)

	errs := prog.Validate()
	if _, bad := errs["good"]; bad {
		t.Errorf("good flagged malformed: %v", errs["good"])
	}
	if err := errs["dangling"]; err == nil ||
		!strings.Contains(err.Error(), "dangling reference") {
		t.Errorf("dangling: got %v", err)
	}
	if err := errs["noterm"]; err == nil ||
		!strings.Contains(err.Error(), "missing terminator") {
		t.Errorf("noterm: got %v", err)
	}
}

func TestValidateVariableUses(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"undefined", `
functions:
  - name: f
    blocks:
      - stmts:
          - assign: {dst: x, x: 1}
        term: {return: {}}`, `undefined variable "x"`},
		{"refAsInt", `
functions:
  - name: f
    locals: [{name: p, type: ref}, {name: x, type: i32}]
    blocks:
      - stmts:
          - assign: {dst: x, op: add, x: p, y: 1}
        term: {return: {}}`, "non-scalar type"},
		{"intAlloc", `
functions:
  - name: f
    locals: [{name: x, type: i32}]
    blocks:
      - stmts:
          - alloc: {dst: x}
        term: {return: {}}`, "allocation target"},
		{"arity", `
functions:
  - name: f
    blocks:
      - stmts:
          - call: {callee: g, args: [1, 2]}
        term: {return: {}}
  - name: g
    params: [{name: a, type: i32}]
    blocks:
      - term: {return: {}}`, "2 arguments, want 1"},
	}

	for _, test := range tests {
		prog := mustDecode(t, test.src)
		err := prog.Validate()["f"]
		if err == nil {
			t.Errorf("%s: expected a validation error", test.name)
		} else if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: error %q does not mention %q", test.name, err, test.want)
		}
	}
}

func TestValidateIgnoresUnreachable(t *testing.T) {
	// Block 1 is never reached from the entry, so its malformations do
	// not invalidate the function.
	prog := mustDecode(t, `
functions:
  - name: f
    blocks:
      - term: {return: {}}
      - stmts:
          - assign: {dst: ghost, x: 1}
        term: {goto: 99}
`)
	if err := prog.Validate()["f"]; err != nil {
		t.Errorf("unreachable block invalidated f: %v", err)
	}
}

func TestValidateUnresolvedCallIsOpaque(t *testing.T) {
	prog := mustDecode(t, `
functions:
  - name: f
    locals: [{name: r, type: i32}]
    blocks:
      - stmts:
          - call: {dsts: [r], callee: external, args: [1, 2, 3]}
        term: {return: {results: [r]}}
`)
	if err := prog.Validate()["f"]; err != nil {
		t.Errorf("unresolved call should not be arity checked: %v", err)
	}
}
