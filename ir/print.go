package ir

import (
	"fmt"
	"strconv"
	"strings"
)

func (o Operand) String() string {
	if o.IsLit() {
		return strconv.Itoa(o.Lit)
	}
	return o.Var
}

func (op BinOp) String() string {
	switch op {
	case OpCopy:
		return ""
	case OpNeg:
		return "-"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpRem:
		return "%"
	}
	return "?"
}

func (r Rvalue) String() string {
	switch r.Op {
	case OpCopy:
		return r.X.String()
	case OpNeg:
		return "-" + r.X.String()
	}
	return fmt.Sprintf("%s %s %s", r.X, r.Op, r.Y)
}

func (op RelOp) String() string {
	switch op {
	case RelEq:
		return "=="
	case RelNe:
		return "!="
	case RelLt:
		return "<"
	case RelLe:
		return "<="
	case RelGt:
		return ">"
	case RelGe:
		return ">="
	}
	return "?"
}

func (c Cond) String() string {
	return fmt.Sprintf("%s %s %s", c.X, c.Op, c.Y)
}

func (s Assign) String() string {
	return fmt.Sprintf("%s = %s", s.Dst, s.Val)
}

func (s Alloc) String() string {
	return fmt.Sprintf("%s = alloc", s.Dst)
}

func (s Free) String() string {
	return fmt.Sprintf("free %s", s.Ref)
}

func (s Load) String() string {
	return fmt.Sprintf("%s = *%s", s.Dst, s.Ref)
}

func (s Store) String() string {
	return fmt.Sprintf("*%s = %s", s.Ref, s.Val)
}

func (s MakeArray) String() string {
	return fmt.Sprintf("%s = array(%s)", s.Dst, s.Len)
}

func (s IndexLoad) String() string {
	return fmt.Sprintf("%s = %s[%s]", s.Dst, s.Arr, s.Idx)
}

func (s IndexStore) String() string {
	return fmt.Sprintf("%s[%s] = %s", s.Arr, s.Idx, s.Val)
}

func (s Call) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.String()
	}
	call := fmt.Sprintf("%s(%s)", s.Callee, strings.Join(args, ", "))
	if s.Unresolved {
		call = "?" + call
	}
	if len(s.Dsts) == 0 {
		return call
	}
	return strings.Join(s.Dsts, ", ") + " = " + call
}

func (t Goto) String() string {
	return fmt.Sprintf("goto %d", t.Target)
}

func (t Branch) String() string {
	return fmt.Sprintf("if %s goto %d else %d", t.Cond, t.Then, t.Else)
}

func (t Return) String() string {
	if len(t.Results) == 0 {
		return "return"
	}
	strs := make([]string, len(t.Results))
	for i, r := range t.Results {
		strs[i] = r.String()
	}
	return "return " + strings.Join(strs, ", ")
}

func (Unreachable) String() string {
	return "unreachable"
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "b%d:\n", b.Index)
	for _, s := range b.Stmts {
		fmt.Fprintf(&sb, "\t%s\n", s)
	}
	if b.Term != nil {
		fmt.Fprintf(&sb, "\t%s\n", b.Term)
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + " " + p.Type.String()
	}
	fmt.Fprintf(&sb, "func %s(%s):\n", f.Name, strings.Join(params, ", "))
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	return sb.String()
}
