package ir

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// The interchange format produced by the front end is a YAML document with
// a list of functions. Statements and terminators are tagged mappings, e.g.
//
//	functions:
//	  - name: clamp
//	    params: [{name: a, type: u8}]
//	    locals: [{name: x, type: u8}]
//	    entry: 0
//	    blocks:
//	      - stmts:
//	          - assign: {dst: x, op: add, x: a, y: 1}
//	        term:
//	          return: {results: [x]}

type rawProgram struct {
	Functions []rawFunction `yaml:"functions"`
}

type rawLocal struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type rawFunction struct {
	Name   string     `yaml:"name"`
	Params []rawLocal `yaml:"params"`
	Locals []rawLocal `yaml:"locals"`
	Entry  int        `yaml:"entry"`
	Blocks []rawBlock `yaml:"blocks"`
}

type rawBlock struct {
	Stmts []rawStmt `yaml:"stmts"`
	Term  *rawTerm  `yaml:"term"`
}

type rawStmt struct {
	Assign     *rawAssign     `yaml:"assign"`
	Alloc      *rawAlloc      `yaml:"alloc"`
	Free       *rawFree       `yaml:"free"`
	Load       *rawLoad       `yaml:"load"`
	Store      *rawStore      `yaml:"store"`
	MakeArray  *rawMakeArray  `yaml:"make-array"`
	IndexLoad  *rawIndexLoad  `yaml:"index-load"`
	IndexStore *rawIndexStore `yaml:"index-store"`
	Call       *rawCall       `yaml:"call"`
}

type (
	rawAssign struct {
		Dst string     `yaml:"dst"`
		Op  string     `yaml:"op"`
		X   rawOperand `yaml:"x"`
		Y   rawOperand `yaml:"y"`
	}
	rawAlloc struct {
		Dst string `yaml:"dst"`
	}
	rawFree struct {
		Ref string `yaml:"ref"`
	}
	rawLoad struct {
		Dst string `yaml:"dst"`
		Ref string `yaml:"ref"`
	}
	rawStore struct {
		Ref string     `yaml:"ref"`
		Val rawOperand `yaml:"val"`
	}
	rawMakeArray struct {
		Dst string     `yaml:"dst"`
		Len rawOperand `yaml:"len"`
	}
	rawIndexLoad struct {
		Dst string     `yaml:"dst"`
		Arr string     `yaml:"arr"`
		Idx rawOperand `yaml:"idx"`
	}
	rawIndexStore struct {
		Arr string     `yaml:"arr"`
		Idx rawOperand `yaml:"idx"`
		Val rawOperand `yaml:"val"`
	}
	rawCall struct {
		Dsts   []string     `yaml:"dsts"`
		Callee string       `yaml:"callee"`
		Args   []rawOperand `yaml:"args"`
	}
)

type rawTerm struct {
	Goto        *int       `yaml:"goto"`
	Branch      *rawBranch `yaml:"branch"`
	Return      *rawReturn `yaml:"return"`
	Unreachable bool       `yaml:"unreachable"`
}

type rawBranch struct {
	Op   string     `yaml:"op"`
	X    rawOperand `yaml:"x"`
	Y    rawOperand `yaml:"y"`
	Then int        `yaml:"then"`
	Else int        `yaml:"else"`
}

type rawReturn struct {
	Results []rawOperand `yaml:"results"`
}

// rawOperand captures an operand scalar as its raw text. Decoding through
// interface{} would apply YAML 1.1 resolution, which turns bare variable
// names like n, y, on or off into booleans.
type rawOperand struct {
	text string
	set  bool
}

func (o *rawOperand) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if err := unmarshal(&o.text); err != nil {
		return err
	}
	o.set = true
	return nil
}

// toOperand classifies an interchange scalar: integers are literals,
// anything else names a variable.
func toOperand(v rawOperand) (Operand, error) {
	if !v.set {
		return Operand{}, fmt.Errorf("missing operand")
	}
	s := strings.TrimSpace(v.text)
	if s == "" {
		return Operand{}, fmt.Errorf("empty operand")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Lit(n), nil
	}
	return Use(s), nil
}

var binOps = map[string]BinOp{
	"copy": OpCopy, "neg": OpNeg,
	"add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv, "rem": OpRem,
}

var relOps = map[string]RelOp{
	"eq": RelEq, "ne": RelNe,
	"lt": RelLt, "le": RelLe, "gt": RelGt, "ge": RelGe,
}

// Decode reads a program from its interchange format. Structural
// malformations local to one function are deferred to Validate so that the
// batch can proceed with the remaining functions.
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeFile reads a program from a file in the interchange format.
func DecodeFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// DecodeBytes decodes a program from in-memory interchange data.
func DecodeBytes(data []byte) (*Program, error) {
	var raw rawProgram
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed program document: %w", err)
	}
	if len(raw.Functions) == 0 {
		return nil, fmt.Errorf("program document contains no functions")
	}

	fns := make([]*Function, 0, len(raw.Functions))
	for _, rf := range raw.Functions {
		fn, err := decodeFunction(rf)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", rf.Name, err)
		}
		fns = append(fns, fn)
	}

	prog, err := NewProgram(fns...)
	if err != nil {
		return nil, err
	}
	prog.resolveCalls()
	return prog, nil
}

func decodeFunction(rf rawFunction) (*Function, error) {
	if rf.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	fn := &Function{Name: rf.Name, Entry: rf.Entry}

	locals := func(raws []rawLocal) ([]Local, error) {
		res := make([]Local, 0, len(raws))
		for _, rl := range raws {
			t, err := ParseType(rl.Type)
			if err != nil {
				return nil, fmt.Errorf("local %q: %w", rl.Name, err)
			}
			res = append(res, Local{Name: rl.Name, Type: t})
		}
		return res, nil
	}

	var err error
	if fn.Params, err = locals(rf.Params); err != nil {
		return nil, err
	}
	if fn.Locals, err = locals(rf.Locals); err != nil {
		return nil, err
	}

	for i, rb := range rf.Blocks {
		block := &Block{Index: i}
		for j, rs := range rb.Stmts {
			stmt, err := decodeStmt(rs)
			if err != nil {
				return nil, fmt.Errorf("block %d, statement %d: %w", i, j, err)
			}
			block.Stmts = append(block.Stmts, stmt)
		}
		if rb.Term != nil {
			term, err := decodeTerm(*rb.Term)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			block.Term = term
		}
		fn.Blocks = append(fn.Blocks, block)
	}

	return fn, nil
}

func decodeStmt(rs rawStmt) (Statement, error) {
	switch {
	case rs.Assign != nil:
		op, found := binOps[rs.Assign.Op]
		if rs.Assign.Op == "" {
			op = OpCopy
		} else if !found {
			return nil, fmt.Errorf("unknown operator %q", rs.Assign.Op)
		}
		x, err := toOperand(rs.Assign.X)
		if err != nil {
			return nil, err
		}
		val := Rvalue{Op: op, X: x}
		if op != OpCopy && op != OpNeg {
			if val.Y, err = toOperand(rs.Assign.Y); err != nil {
				return nil, err
			}
		}
		return Assign{Dst: rs.Assign.Dst, Val: val}, nil

	case rs.Alloc != nil:
		return Alloc{Dst: rs.Alloc.Dst}, nil

	case rs.Free != nil:
		return Free{Ref: rs.Free.Ref}, nil

	case rs.Load != nil:
		return Load{Dst: rs.Load.Dst, Ref: rs.Load.Ref}, nil

	case rs.Store != nil:
		val, err := toOperand(rs.Store.Val)
		if err != nil {
			return nil, err
		}
		return Store{Ref: rs.Store.Ref, Val: val}, nil

	case rs.MakeArray != nil:
		length, err := toOperand(rs.MakeArray.Len)
		if err != nil {
			return nil, err
		}
		return MakeArray{Dst: rs.MakeArray.Dst, Len: length}, nil

	case rs.IndexLoad != nil:
		idx, err := toOperand(rs.IndexLoad.Idx)
		if err != nil {
			return nil, err
		}
		return IndexLoad{Dst: rs.IndexLoad.Dst, Arr: rs.IndexLoad.Arr, Idx: idx}, nil

	case rs.IndexStore != nil:
		idx, err := toOperand(rs.IndexStore.Idx)
		if err != nil {
			return nil, err
		}
		val, err := toOperand(rs.IndexStore.Val)
		if err != nil {
			return nil, err
		}
		return IndexStore{Arr: rs.IndexStore.Arr, Idx: idx, Val: val}, nil

	case rs.Call != nil:
		args := make([]Operand, 0, len(rs.Call.Args))
		for _, ra := range rs.Call.Args {
			a, err := toOperand(ra)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return Call{Dsts: rs.Call.Dsts, Callee: rs.Call.Callee, Args: args}, nil
	}

	return nil, fmt.Errorf("statement with no recognized tag")
}

func decodeTerm(rt rawTerm) (Terminator, error) {
	switch {
	case rt.Goto != nil:
		return Goto{Target: *rt.Goto}, nil

	case rt.Branch != nil:
		op, found := relOps[rt.Branch.Op]
		if !found {
			return nil, fmt.Errorf("unknown comparison %q", rt.Branch.Op)
		}
		x, err := toOperand(rt.Branch.X)
		if err != nil {
			return nil, err
		}
		y, err := toOperand(rt.Branch.Y)
		if err != nil {
			return nil, err
		}
		return Branch{
			Cond: Cond{Op: op, X: x, Y: y},
			Then: rt.Branch.Then,
			Else: rt.Branch.Else,
		}, nil

	case rt.Return != nil:
		results := make([]Operand, 0, len(rt.Return.Results))
		for _, rr := range rt.Return.Results {
			r, err := toOperand(rr)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
		return Return{Results: results}, nil

	case rt.Unreachable:
		return Unreachable{}, nil
	}

	return nil, fmt.Errorf("terminator with no recognized tag")
}

// resolveCalls marks calls to functions absent from the program as
// unresolved. The engine treats those callees as opaque.
func (p *Program) resolveCalls() {
	for _, fn := range p.Funcs() {
		for _, b := range fn.Blocks {
			for i, stmt := range b.Stmts {
				if call, ok := stmt.(Call); ok {
					if p.Func(call.Callee) == nil {
						call.Unresolved = true
						b.Stmts[i] = call
					}
				}
			}
		}
	}
}
