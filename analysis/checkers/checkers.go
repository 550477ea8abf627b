// Package checkers derives findings from the solved abstract semantics.
// Every checker is a pure function of one instruction and its surrounding
// abstract states; the solver's replay feeds them block by block.
package checkers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/domain"
	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
)

// Ctx is the view a checker gets of one instruction.
type Ctx struct {
	Fn     *ir.Function
	Result *solver.FuncResult
	Point  ir.Point
	Instr  ir.Instruction
	Pre    absstate.State
	Post   absstate.State

	// UnknownPolicy decides whether Unknown memory outcomes become
	// speculative findings: "always", or "threshold" to drop them when
	// the solver already lost precision.
	UnknownPolicy string
}

// Checker inspects one instruction.
type Checker interface {
	Name() string
	Check(ctx Ctx) []report.Finding
}

// All returns every checker in reporting order.
func All() []Checker {
	return []Checker{
		ArithChecker{},
		BoundsChecker{},
		MemoryChecker{},
		UnreachableChecker{},
	}
}

// FromOpts selects checkers according to the command line options.
func FromOpts() ([]Checker, error) {
	if utils.Opts().MemorySafetyOnly() {
		return []Checker{MemoryChecker{}}, nil
	}
	selection := utils.Opts().Checkers()
	if selection == "" {
		return All(), nil
	}

	byName := map[string]Checker{}
	for _, c := range All() {
		byName[c.Name()] = c
	}
	var res []Checker
	for _, name := range strings.Split(selection, ",") {
		c, found := byName[strings.TrimSpace(name)]
		if !found {
			return nil, fmt.Errorf("unknown checker %q", name)
		}
		res = append(res, c)
	}
	return res, nil
}

// Run replays every reachable block of a solved function through the
// given checkers.
func Run(fr *solver.FuncResult, checkers []Checker, unknownPolicy string) []report.Finding {
	if fr.Malformed {
		return nil
	}

	blocks := make([]int, 0, len(fr.Entries))
	for b := range fr.Entries {
		blocks = append(blocks, b)
	}
	sort.Ints(blocks)

	var findings []report.Finding
	for _, b := range blocks {
		fr.Replay(b, func(pt ir.Point, instr ir.Instruction, pre, post absstate.State) {
			if pre.IsBottom() {
				return
			}
			ctx := Ctx{
				Fn:            fr.Fn,
				Result:        fr,
				Point:         pt,
				Instr:         instr,
				Pre:           pre,
				Post:          post,
				UnknownPolicy: unknownPolicy,
			}
			for _, c := range checkers {
				findings = append(findings, c.Check(ctx)...)
			}
		})
	}
	return findings
}

// confidence degrades the base level when the surrounding states are
// already imprecise; a finding is only as strong as the states behind it.
func confidence(ctx Ctx, base report.Confidence) report.Confidence {
	if ctx.Pre.Env.Imprecise() || ctx.Result.PrecisionLost || ctx.Result.BudgetExceeded {
		return base.Degrade()
	}
	return base
}

// operandSnippet shows the abstract values of the variable operands.
func operandSnippet(env domain.Env, ops ...ir.Operand) string {
	var parts []string
	seen := map[string]bool{}
	for _, op := range ops {
		if op.IsLit() || seen[op.Var] {
			continue
		}
		seen[op.Var] = true
		parts = append(parts, fmt.Sprintf("%s ↦ %s", op.Var, env.Eval(op)))
	}
	return strings.Join(parts, ", ")
}
