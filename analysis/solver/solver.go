// Package solver computes fixpoints of the abstract semantics: an
// intraprocedural worklist solver with delayed widening and bounded
// narrowing, and an interprocedural layer of memoized call summaries
// scheduled over the call-graph condensation.
package solver

import (
	"time"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
)

// Config bundles the solver knobs. The zero value is not usable; construct
// through DefaultConfig or ConfigFromOpts.
type Config struct {
	Domain domain.Domain

	// WideningDelay is the number of plain joins a loop head absorbs
	// before widening kicks in. It also caps allocation iteration tags.
	WideningDelay int
	// NarrowingIter bounds the descending passes after stabilization.
	NarrowingIter int
	// IterationCap bounds solver visits per block; on overrun the block
	// is downgraded to ⊤ and the function is flagged, never looped on.
	IterationCap int
	// SummaryBound caps call-context summaries per callee before the
	// cache falls back to a single context-insensitive summary.
	SummaryBound int
	// Budget bounds the wall-clock time of one function's fixpoint.
	// Zero means no budget.
	Budget time.Duration
}

// DefaultConfig returns the solver configuration with standard knobs and
// the given numeric backend.
func DefaultConfig(d domain.Domain) Config {
	return Config{
		Domain:        d,
		WideningDelay: 5,
		NarrowingIter: 5,
		IterationCap:  1000,
		SummaryBound:  8,
	}
}

// ConfigFromOpts builds the configuration from the parsed command line
// options.
func ConfigFromOpts() (Config, error) {
	d, err := domain.New(utils.Opts().Domain())
	if err != nil {
		return Config{}, err
	}
	return Config{
		Domain:        d,
		WideningDelay: utils.Opts().WideningDelay(),
		NarrowingIter: utils.Opts().NarrowingIter(),
		IterationCap:  utils.Opts().IterationCap(),
		SummaryBound:  utils.Opts().SummaryBound(),
		Budget:        utils.Opts().Budget(),
	}, nil
}

// Status is the lifecycle of one function's fixpoint computation.
type Status uint8

const (
	// Pending means the function has not been scheduled yet.
	Pending Status = iota
	// InProgress means the fixpoint is being computed.
	InProgress
	// Stable means a (possibly degraded) fixpoint was reached.
	Stable
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case InProgress:
		return "InProgress"
	}
	return "Stable"
}

// FuncResult is the solved abstract semantics of one function: a state at
// every reachable block entry, the joined abstract results, and the flags
// a report consumer needs to judge the findings.
type FuncResult struct {
	Fn     *ir.Function
	Status Status

	// BudgetExceeded is set when the time budget ran out mid-fixpoint.
	BudgetExceeded bool
	// PrecisionLost is set when the iteration cap fired or an operation
	// lost precision beyond ordinary over-approximation.
	PrecisionLost bool
	// Malformed is set when the function failed validation and was not
	// analyzed at all; Err carries the validation error.
	Malformed bool
	Err       error

	// Entries maps each reachable block to its fixpoint entry state.
	Entries map[int]absstate.State
	// Returns holds the join of the abstract results over all return
	// sites, indexed by result position.
	Returns []lattice.Interval
	// TouchesMemory reports whether the function may free, invalidate or
	// write through references visible to its caller.
	TouchesMemory bool

	// Visits counts block transfers during the ascending iteration.
	Visits int
	// Duration is the wall-clock time of the fixpoint computation.
	Duration time.Duration

	ctx *analysisCtx
}

// EntryState returns the fixpoint state at a block entry. Unreachable
// blocks are bottom.
func (r *FuncResult) EntryState(block int) absstate.State {
	if s, found := r.Entries[block]; found {
		return s
	}
	return absstate.Bottom(r.ctx.cfg.Domain)
}

// Replay walks one block from its fixpoint entry state, invoking visit
// with the pre- and post-state of every statement and finally of the
// terminator. Checkers rely on this to classify statements without the
// solver having to store a state per program point.
func (r *FuncResult) Replay(block int, visit func(pt ir.Point, instr ir.Instruction, pre, post absstate.State)) {
	b := r.Fn.Block(block)
	if b == nil || r.ctx == nil {
		return
	}

	s := r.EntryState(block)
	iter := r.ctx.allocIter(block)
	for i, stmt := range b.Stmts {
		pt := ir.At(r.Fn, block, i)
		post := r.ctx.transferStmt(s, stmt, pt, iter)
		visit(pt, stmt, s, post)
		s = post
	}
	visit(ir.TermPoint(r.Fn, b), b.Term, s, s)
}

// LengthVar names the synthetic variable tracking a collection's abstract
// length.
func LengthVar(arr string) string {
	return "len$" + arr
}

// Malformed wraps a validation failure as a result so the batch can carry
// it uniformly.
func MalformedResult(fn *ir.Function, err error) *FuncResult {
	return &FuncResult{
		Fn:        fn,
		Status:    Stable,
		Malformed: true,
		Err:       err,
	}
}
