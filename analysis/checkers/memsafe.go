package checkers

import (
	"fmt"

	"github.com/kestrel-analysis/kestrel/analysis/memory"
	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/ir"
)

// MemoryChecker flags uses after free and double frees. Definite outcomes
// report at high confidence; Unknown outcomes become speculative findings
// subject to the unknown policy.
type MemoryChecker struct{}

func (MemoryChecker) Name() string {
	return "memory"
}

// speculate decides whether an Unknown outcome is worth a finding. Under
// the threshold policy, Unknown states that merely reflect solver
// degradation stay quiet; only merges of genuinely divergent paths report.
func speculate(ctx Ctx) bool {
	if ctx.UnknownPolicy == "threshold" {
		return !ctx.Result.PrecisionLost && !ctx.Pre.Env.Imprecise()
	}
	return true
}

func (MemoryChecker) Check(ctx Ctx) []report.Finding {
	switch instr := ctx.Instr.(type) {
	case ir.Load:
		return accessFindings(ctx, instr.Ref)
	case ir.Store:
		return accessFindings(ctx, instr.Ref)
	case ir.Free:
		return freeFindings(ctx, instr.Ref)
	}
	return nil
}

func accessFindings(ctx Ctx, ref string) []report.Finding {
	targets := ctx.Pre.Mem.PointsTo(ref)
	switch ctx.Pre.Mem.Access(targets) {
	case memory.AccessFreed:
		return []report.Finding{{
			Point:      ctx.Point,
			Cause:      report.UseAfterFree,
			Confidence: confidence(ctx, report.High),
			Message:    fmt.Sprintf("use of %s after its object was freed", ref),
			Snippet:    memSnippet(ctx, ref, targets),
		}}
	case memory.AccessUnknown:
		if !speculate(ctx) {
			return nil
		}
		return []report.Finding{{
			Point:      ctx.Point,
			Cause:      report.UseAfterFree,
			Confidence: confidence(ctx, report.Medium),
			Message:    fmt.Sprintf("%s may refer to a freed object", ref),
			Snippet:    memSnippet(ctx, ref, targets),
		}}
	}
	return nil
}

func freeFindings(ctx Ctx, ref string) []report.Finding {
	targets := ctx.Pre.Mem.PointsTo(ref)
	_, outcome := ctx.Pre.Mem.Free(targets)
	switch outcome {
	case memory.FreeAlreadyFreed:
		return []report.Finding{{
			Point:      ctx.Point,
			Cause:      report.DoubleFree,
			Confidence: confidence(ctx, report.High),
			Message:    fmt.Sprintf("double free through %s", ref),
			Snippet:    memSnippet(ctx, ref, targets),
		}}
	case memory.FreeUnknown:
		if !speculate(ctx) {
			return nil
		}
		return []report.Finding{{
			Point:      ctx.Point,
			Cause:      report.DoubleFree,
			Confidence: confidence(ctx, report.Medium),
			Message:    fmt.Sprintf("%s may already have been freed", ref),
			Snippet:    memSnippet(ctx, ref, targets),
		}}
	}
	return nil
}

func memSnippet(ctx Ctx, ref string, targets memory.HandleSet) string {
	return fmt.Sprintf("%s ↦ %s", ref, targets)
}
