package checkers

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/ir"
)

// UnreachableChecker flags branches whose condition is abstractly decided,
// and front-end unreachable markers the fixpoint can still reach.
type UnreachableChecker struct{}

func (UnreachableChecker) Name() string {
	return "unreachable"
}

func (UnreachableChecker) Check(ctx Ctx) []report.Finding {
	switch instr := ctx.Instr.(type) {
	case ir.Branch:
		thenDead := ctx.Pre.Env.Guard(instr.Cond).IsBottom()
		elseDead := ctx.Pre.Env.Guard(instr.Cond.Negate()).IsBottom()
		switch {
		case thenDead && !elseDead:
			return []report.Finding{{
				Point:      ctx.Point,
				Cause:      report.Unreachable,
				Confidence: confidence(ctx, report.Medium),
				Message: fmt.Sprintf("condition %s never holds; block %d is dead on this edge",
					instr.Cond, instr.Then),
				Snippet: operandSnippet(ctx.Pre.Env, instr.Cond.X, instr.Cond.Y),
			}}
		case elseDead && !thenDead:
			return []report.Finding{{
				Point:      ctx.Point,
				Cause:      report.Unreachable,
				Confidence: confidence(ctx, report.Medium),
				Message: fmt.Sprintf("condition %s always holds; block %d is dead on this edge",
					instr.Cond, instr.Else),
				Snippet: operandSnippet(ctx.Pre.Env, instr.Cond.X, instr.Cond.Y),
			}}
		}
	case ir.Unreachable:
		return []report.Finding{{
			Point:      ctx.Point,
			Cause:      report.Unreachable,
			Confidence: confidence(ctx, report.High),
			Message:    "code asserted unreachable may be reached",
		}}
	}
	return nil
}
