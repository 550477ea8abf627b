package checkers

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/ir"
)

// ArithChecker flags integer arithmetic whose abstract result escapes the
// destination type, and divisions whose divisor may be zero. Reachability
// of the fault suffices; path feasibility beyond the abstract states is
// not reconsidered.
type ArithChecker struct{}

func (ArithChecker) Name() string {
	return "arith"
}

func (ArithChecker) Check(ctx Ctx) []report.Finding {
	assign, isAssign := ctx.Instr.(ir.Assign)
	if !isAssign {
		return nil
	}
	t, found := ctx.Fn.TypeOf(assign.Dst)
	if !found || t.Kind != ir.KInt {
		return nil
	}

	env := ctx.Pre.Env
	var findings []report.Finding

	if assign.Val.Op == ir.OpDiv || assign.Val.Op == ir.OpRem {
		divisor := env.Eval(assign.Val.Y)
		if !divisor.IsBot() && divisor.Contains(0) {
			base := report.Medium
			if divisor.IsConstant() {
				base = report.High
			}
			findings = append(findings, report.Finding{
				Point:      ctx.Point,
				Cause:      report.DivByZero,
				Confidence: confidence(ctx, base),
				Message:    fmt.Sprintf("divisor of %s may be zero", assign.Val),
				Snippet:    operandSnippet(env, assign.Val.X, assign.Val.Y),
			})
		}
	}

	switch assign.Val.Op {
	case ir.OpCopy:
		// Copies cannot overflow.
	case ir.OpNeg:
		findings = append(findings, checkNegation(ctx, assign, t)...)
	default:
		findings = append(findings, checkRange(ctx, assign, t)...)
	}
	return findings
}

// checkRange compares the abstract result of a binary operation against
// the representable range of the destination type.
func checkRange(ctx Ctx, assign ir.Assign, t ir.Type) []report.Finding {
	env := ctx.Pre.Env
	result := env.EvalRvalue(assign.Val)
	if result.IsBot() {
		return nil
	}

	lo, hi := t.Bounds()
	loB, hiB := lattice.FiniteBound(lo), lattice.FiniteBound(hi)
	if !result.Low().Lt(loB) && !result.High().Gt(hiB) {
		return nil
	}

	base := report.Medium
	if result.High().Lt(loB) || result.Low().Gt(hiB) {
		// The whole result lies outside the type.
		base = report.High
	}
	return []report.Finding{{
		Point:      ctx.Point,
		Cause:      report.Overflow,
		Confidence: confidence(ctx, base),
		Message: fmt.Sprintf("%s evaluates to %s, outside the range of %s",
			assign.Val, result, t),
		Snippet: operandSnippet(env, assign.Val.X, assign.Val.Y),
	}}
}

// checkNegation flags -x where the negation is unrepresentable: the
// minimum of a signed type, or any positive value of an unsigned one.
// Checked on the operand to keep the minimum of 64-bit types out of the
// interval arithmetic.
func checkNegation(ctx Ctx, assign ir.Assign, t ir.Type) []report.Finding {
	env := ctx.Pre.Env
	x := env.Eval(assign.Val.X)
	if x.IsBot() {
		return nil
	}

	lo, _ := t.Bounds()
	var base report.Confidence
	switch {
	case t.Signed && x.Contains(lo):
		base = report.Medium
		if x.IsConstant() {
			base = report.High
		}
	case !t.Signed && x.High().Gt(lattice.FiniteBound(0)):
		base = report.Medium
		if x.Low().Gt(lattice.FiniteBound(0)) {
			base = report.High
		}
	default:
		return nil
	}
	return []report.Finding{{
		Point:      ctx.Point,
		Cause:      report.Overflow,
		Confidence: confidence(ctx, base),
		Message: fmt.Sprintf("negation of %s is unrepresentable in %s",
			x, t),
		Snippet: operandSnippet(env, assign.Val.X),
	}}
}
