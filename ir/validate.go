package ir

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/kestrel-analysis/kestrel/utils/worklist"
)

// Validate checks every function for structural malformations: missing
// terminators, dangling block references, undefined or ill-typed variable
// uses, and call arity mismatches. A malformed function is fatal for that
// function's analysis only; the returned map holds one error per offending
// function and the batch continues with the rest.
func (p *Program) Validate() map[string]error {
	errs := map[string]error{}
	for _, fn := range p.Funcs() {
		if err := p.validateFunction(fn); err != nil {
			errs[fn.Name] = err
		}
	}
	return errs
}

func (p *Program) validateFunction(fn *Function) error {
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function has no blocks")
	}
	if fn.Block(fn.Entry) == nil {
		return fmt.Errorf("entry block %d out of range", fn.Entry)
	}

	// Malformations in code unreachable from the entry do not invalidate
	// the function; the solver never visits those blocks.
	var reachable intsets.Sparse
	worklist.Start(fn.Entry, func(id int, add func(int)) {
		if reachable.Has(id) {
			return
		}
		reachable.Insert(id)
		if fn.Blocks[id].Term == nil {
			return
		}
		for _, succ := range fn.Blocks[id].Term.Successors() {
			if fn.Block(succ) != nil {
				add(succ)
			}
		}
	})

	wantKind := func(name string, kind Kind, what string) error {
		t, found := fn.TypeOf(name)
		if !found {
			return fmt.Errorf("undefined variable %q", name)
		}
		if t.Kind != kind {
			return fmt.Errorf("%s %q has type %s", what, name, t)
		}
		return nil
	}
	checkOperand := func(o Operand) error {
		if o.IsLit() {
			return nil
		}
		t, found := fn.TypeOf(o.Var)
		if !found {
			return fmt.Errorf("undefined variable %q", o.Var)
		}
		if t.Kind != KInt && t.Kind != KBool {
			return fmt.Errorf("operand %q has non-scalar type %s", o.Var, t)
		}
		return nil
	}

	for _, b := range fn.Blocks {
		if !reachable.Has(b.Index) {
			continue
		}
		if b.Term == nil {
			return fmt.Errorf("block %d: missing terminator", b.Index)
		}
		for _, succ := range b.Term.Successors() {
			if fn.Block(succ) == nil {
				return fmt.Errorf("block %d: dangling reference to block %d", b.Index, succ)
			}
		}

		for j, stmt := range b.Stmts {
			if err := p.validateStmt(fn, stmt, wantKind, checkOperand); err != nil {
				return fmt.Errorf("block %d, statement %d: %w", b.Index, j, err)
			}
		}

		if branch, ok := b.Term.(Branch); ok {
			if err := checkOperand(branch.Cond.X); err != nil {
				return fmt.Errorf("block %d: %w", b.Index, err)
			}
			if err := checkOperand(branch.Cond.Y); err != nil {
				return fmt.Errorf("block %d: %w", b.Index, err)
			}
		}
	}

	return nil
}

func (p *Program) validateStmt(
	fn *Function,
	stmt Statement,
	wantKind func(string, Kind, string) error,
	checkOperand func(Operand) error,
) error {
	switch s := stmt.(type) {
	case Assign:
		if err := wantKind(s.Dst, KInt, "assignment target"); err != nil {
			return err
		}
		if err := checkOperand(s.Val.X); err != nil {
			return err
		}
		if s.Val.Op != OpCopy && s.Val.Op != OpNeg {
			return checkOperand(s.Val.Y)
		}
		return nil

	case Alloc:
		return wantKind(s.Dst, KRef, "allocation target")

	case Free:
		return wantKind(s.Ref, KRef, "free operand")

	case Load:
		if err := wantKind(s.Ref, KRef, "load source"); err != nil {
			return err
		}
		return wantKind(s.Dst, KInt, "load target")

	case Store:
		if err := wantKind(s.Ref, KRef, "store target"); err != nil {
			return err
		}
		return checkOperand(s.Val)

	case MakeArray:
		if err := wantKind(s.Dst, KArray, "array target"); err != nil {
			return err
		}
		return checkOperand(s.Len)

	case IndexLoad:
		if err := wantKind(s.Arr, KArray, "indexed collection"); err != nil {
			return err
		}
		if err := checkOperand(s.Idx); err != nil {
			return err
		}
		return wantKind(s.Dst, KInt, "index load target")

	case IndexStore:
		if err := wantKind(s.Arr, KArray, "indexed collection"); err != nil {
			return err
		}
		if err := checkOperand(s.Idx); err != nil {
			return err
		}
		return checkOperand(s.Val)

	case Call:
		for _, a := range s.Args {
			if !a.IsLit() {
				if _, found := fn.TypeOf(a.Var); !found {
					return fmt.Errorf("undefined variable %q", a.Var)
				}
			}
		}
		for _, d := range s.Dsts {
			if _, found := fn.TypeOf(d); !found {
				return fmt.Errorf("undefined variable %q", d)
			}
		}
		if !s.Unresolved {
			callee := p.Func(s.Callee)
			if callee == nil {
				return fmt.Errorf("unresolved callee %q not marked opaque", s.Callee)
			}
			if len(s.Args) != len(callee.Params) {
				return fmt.Errorf("call to %q has %d arguments, want %d",
					s.Callee, len(s.Args), len(callee.Params))
			}
		}
		return nil
	}

	return fmt.Errorf("unknown statement type %T", stmt)
}
