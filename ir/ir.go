// Package ir defines the control-flow representation consumed by the
// analysis engine. A program is a set of functions; each function is an
// immutable graph of basic blocks with ordered statement lists and a typed
// terminator. The representation is produced by an external front end
// (decoded from its interchange format by this package) and is read-only
// to the engine.
package ir

import (
	"fmt"
	"math"
)

// Kind discriminates the coarse type of a local.
type Kind uint8

const (
	// KInt is a machine integer with a bit width and signedness.
	KInt Kind = iota
	// KBool is a boolean.
	KBool
	// KRef is a reference to an abstract memory object.
	KRef
	// KArray is a collection with an abstract length.
	KArray
)

// Type carries the information needed for arithmetic reasoning:
// a kind, and for integers a bit width and signedness.
type Type struct {
	Kind   Kind
	Bits   uint8
	Signed bool
}

var typeNames = map[string]Type{
	"u8":    {KInt, 8, false},
	"u16":   {KInt, 16, false},
	"u32":   {KInt, 32, false},
	"u64":   {KInt, 64, false},
	"i8":    {KInt, 8, true},
	"i16":   {KInt, 16, true},
	"i32":   {KInt, 32, true},
	"i64":   {KInt, 64, true},
	"bool":  {Kind: KBool},
	"ref":   {Kind: KRef},
	"array": {Kind: KArray},
}

// ParseType resolves a type name from the interchange format.
func ParseType(name string) (Type, error) {
	if t, found := typeNames[name]; found {
		return t, nil
	}
	return Type{}, fmt.Errorf("unknown type %q", name)
}

func (t Type) String() string {
	switch t.Kind {
	case KBool:
		return "bool"
	case KRef:
		return "ref"
	case KArray:
		return "array"
	}
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}

// Bounds returns the representable range of an integer type.
// The upper bound of u64 saturates at the platform maximum; overflow
// checks against it degrade to no-ops rather than misfire.
func (t Type) Bounds() (lo, hi int) {
	if t.Kind != KInt {
		panic(fmt.Sprintf("no integer bounds for type %s", t))
	}
	if t.Signed {
		if t.Bits == 64 {
			return math.MinInt64, math.MaxInt64
		}
		return -(1 << (t.Bits - 1)), 1<<(t.Bits-1) - 1
	}
	if t.Bits == 64 {
		return 0, math.MaxInt64
	}
	return 0, 1<<t.Bits - 1
}

// Local is a named, typed variable slot (parameter, local or temporary).
type Local struct {
	Name string
	Type Type
}

// Function is one analyzed unit: parameters, locals and a block graph.
type Function struct {
	Name   string
	Params []Local
	Locals []Local
	Blocks []*Block
	Entry  int

	types map[string]Type
}

// Block is a basic block: an index, ordered statements and a terminator.
type Block struct {
	Index int
	Stmts []Statement
	Term  Terminator
}

// Program is an immutable set of functions in declaration order.
type Program struct {
	funcs map[string]*Function
	order []string
}

// NewProgram assembles a program from the given functions.
// Function names must be unique.
func NewProgram(fns ...*Function) (*Program, error) {
	p := &Program{funcs: map[string]*Function{}}
	for _, fn := range fns {
		if _, found := p.funcs[fn.Name]; found {
			return nil, fmt.Errorf("duplicate function %q", fn.Name)
		}
		fn.buildTypes()
		p.funcs[fn.Name] = fn
		p.order = append(p.order, fn.Name)
	}
	return p, nil
}

// Func looks up a function by name.
func (p *Program) Func(name string) *Function {
	return p.funcs[name]
}

// Funcs returns all functions in declaration order.
func (p *Program) Funcs() []*Function {
	fns := make([]*Function, 0, len(p.order))
	for _, name := range p.order {
		fns = append(fns, p.funcs[name])
	}
	return fns
}

// Callees returns the names of resolved call targets of the function,
// without duplicates, in first-occurrence order.
func (p *Program) Callees(fn *Function) (res []string) {
	seen := map[string]bool{}
	for _, b := range fn.Blocks {
		for _, stmt := range b.Stmts {
			if call, ok := stmt.(Call); ok && !call.Unresolved {
				if !seen[call.Callee] {
					seen[call.Callee] = true
					res = append(res, call.Callee)
				}
			}
		}
	}
	return
}

func (f *Function) buildTypes() {
	f.types = make(map[string]Type, len(f.Params)+len(f.Locals))
	for _, l := range f.Params {
		f.types[l.Name] = l.Type
	}
	for _, l := range f.Locals {
		f.types[l.Name] = l.Type
	}
}

// TypeOf resolves the type of a parameter or local.
func (f *Function) TypeOf(name string) (Type, bool) {
	if f.types == nil {
		f.buildTypes()
	}
	t, found := f.types[name]
	return t, found
}

// Block returns the block with the given index, or nil if out of range.
func (f *Function) Block(id int) *Block {
	if id < 0 || id >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Operand is either a variable use or an integer literal.
type Operand struct {
	Var string
	Lit int
}

// IsLit checks whether the operand is a literal.
func (o Operand) IsLit() bool {
	return o.Var == ""
}

// Lit constructs a literal operand.
func Lit(v int) Operand {
	return Operand{Lit: v}
}

// Use constructs a variable operand.
func Use(v string) Operand {
	return Operand{Var: v}
}

// BinOp enumerates rvalue operators.
type BinOp uint8

const (
	// OpCopy copies the first operand.
	OpCopy BinOp = iota
	// OpNeg negates the first operand.
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
)

// Rvalue is the right-hand side of an assignment: an operator applied to
// at most two operands. OpCopy and OpNeg ignore Y.
type Rvalue struct {
	Op   BinOp
	X, Y Operand
}

// Instruction is implemented by statements and terminators alike.
type Instruction interface {
	String() string
}

// Statement is an intra-block instruction.
type Statement interface {
	Instruction
	stmt()
}

// Terminator ends a basic block and names its successors.
type Terminator interface {
	Instruction
	Successors() []int
	term()
}

type (
	// Assign evaluates an rvalue into an integer local.
	Assign struct {
		Dst string
		Val Rvalue
	}

	// Alloc binds a fresh abstract memory object to a reference local.
	// The allocation site is the statement's program point.
	Alloc struct {
		Dst string
	}

	// Free releases the object(s) the reference may point to.
	Free struct {
		Ref string
	}

	// Load reads through a reference: Dst := *Ref.
	Load struct {
		Dst string
		Ref string
	}

	// Store writes through a reference: *Ref := Val.
	Store struct {
		Ref string
		Val Operand
	}

	// MakeArray binds a collection with the given abstract length.
	MakeArray struct {
		Dst string
		Len Operand
	}

	// IndexLoad reads an element: Dst := Arr[Idx].
	IndexLoad struct {
		Dst string
		Arr string
		Idx Operand
	}

	// IndexStore writes an element: Arr[Idx] := Val.
	IndexStore struct {
		Arr string
		Idx Operand
		Val Operand
	}

	// Call invokes a callee. An unresolved callee (indirect call with an
	// unknown target) is treated as opaque by the engine.
	Call struct {
		Dsts       []string
		Callee     string
		Args       []Operand
		Unresolved bool
	}
)

func (Assign) stmt()     {}
func (Alloc) stmt()      {}
func (Free) stmt()       {}
func (Load) stmt()       {}
func (Store) stmt()      {}
func (MakeArray) stmt()  {}
func (IndexLoad) stmt()  {}
func (IndexStore) stmt() {}
func (Call) stmt()       {}

// RelOp enumerates branch comparison operators.
type RelOp uint8

const (
	RelEq RelOp = iota
	RelNe
	RelLt
	RelLe
	RelGt
	RelGe
)

// Cond is a branch condition comparing two operands.
type Cond struct {
	Op   RelOp
	X, Y Operand
}

// Negate returns the complementary condition.
func (c Cond) Negate() Cond {
	neg := map[RelOp]RelOp{
		RelEq: RelNe, RelNe: RelEq,
		RelLt: RelGe, RelGe: RelLt,
		RelLe: RelGt, RelGt: RelLe,
	}
	return Cond{Op: neg[c.Op], X: c.X, Y: c.Y}
}

type (
	// Goto transfers control unconditionally.
	Goto struct {
		Target int
	}

	// Branch transfers control depending on a condition.
	Branch struct {
		Cond Cond
		Then int
		Else int
	}

	// Return exits the function with the given results.
	Return struct {
		Results []Operand
	}

	// Unreachable marks a block the front end asserts cannot be reached.
	Unreachable struct{}
)

func (Goto) term()        {}
func (Branch) term()      {}
func (Return) term()      {}
func (Unreachable) term() {}

func (t Goto) Successors() []int   { return []int{t.Target} }
func (t Branch) Successors() []int { return []int{t.Then, t.Else} }
func (Return) Successors() []int   { return nil }
func (Unreachable) Successors() []int {
	return nil
}
