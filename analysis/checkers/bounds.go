package checkers

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
)

// BoundsChecker compares index intervals against the abstract length of
// the indexed collection.
type BoundsChecker struct{}

func (BoundsChecker) Name() string {
	return "bounds"
}

func (BoundsChecker) Check(ctx Ctx) []report.Finding {
	var arr string
	var idx ir.Operand
	switch instr := ctx.Instr.(type) {
	case ir.IndexLoad:
		arr, idx = instr.Arr, instr.Idx
	case ir.IndexStore:
		arr, idx = instr.Arr, instr.Idx
	default:
		return nil
	}

	env := ctx.Pre.Env
	idxVal := env.Eval(idx)
	if idxVal.IsBot() {
		return nil
	}

	var findings []report.Finding
	zero := lattice.FiniteBound(0)
	if idxVal.Low().Lt(zero) {
		base := report.Medium
		if idxVal.High().Lt(zero) {
			base = report.High
		}
		findings = append(findings, report.Finding{
			Point:      ctx.Point,
			Cause:      report.OutOfRange,
			Confidence: confidence(ctx, base),
			Message:    fmt.Sprintf("index into %s may be negative", arr),
			Snippet:    operandSnippet(env, idx),
		})
	}

	length := env.Lookup(solver.LengthVar(arr))
	if length.IsTop() || length.IsBot() {
		// Unknown length: only the sign of the index can be judged.
		return findings
	}
	if !idxVal.High().Lt(length.Low()) {
		base := report.Medium
		if idxVal.Low().Geq(length.High()) {
			base = report.High
		}
		findings = append(findings, report.Finding{
			Point:      ctx.Point,
			Cause:      report.OutOfRange,
			Confidence: confidence(ctx, base),
			Message: fmt.Sprintf("index %s may exceed the length %s of %s",
				idxVal, length, arr),
			Snippet: operandSnippet(env, idx),
		})
	}
	return findings
}
