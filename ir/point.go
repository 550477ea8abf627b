package ir

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/utils"
)

// Point identifies a program point: a statement (or, when Index equals the
// number of statements in the block, the terminator) of a basic block.
// Points are totally ordered within a function by (block, index) and
// across functions by name; the ordering is used for reproducible reports.
type Point struct {
	Func  string
	Block int
	Index int
}

func (p Point) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Func, p.Block, p.Index)
}

// Less gives the stable source ordering of program points.
func (p Point) Less(o Point) bool {
	if p.Func != o.Func {
		return p.Func < o.Func
	}
	if p.Block != o.Block {
		return p.Block < o.Block
	}
	return p.Index < o.Index
}

// Hash makes points usable as keys of immutable maps.
func (p Point) Hash() uint32 {
	return utils.HashCombine(
		utils.HashString(p.Func),
		uint32(p.Block),
		uint32(p.Index),
	)
}

// Equal checks point equality.
func (p Point) Equal(o Point) bool {
	return p == o
}

// At constructs the program point of the i'th statement of a block.
func At(fn *Function, block, index int) Point {
	return Point{Func: fn.Name, Block: block, Index: index}
}

// TermPoint constructs the program point of a block's terminator.
func TermPoint(fn *Function, block *Block) Point {
	return Point{Func: fn.Name, Block: block.Index, Index: len(block.Stmts)}
}
