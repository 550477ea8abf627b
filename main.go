package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/analysis/checkers"
	"github.com/kestrel-analysis/kestrel/analysis/report"
	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
	"github.com/kestrel-analysis/kestrel/vistool"
)

func main() {
	utils.ParseArgs()
	if err := utils.LoadConfigFile(); err != nil {
		fail(err)
	}

	path := flag.Arg(0)
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: kestrel [flags] <program.yaml>")
		os.Exit(2)
	}
	prog, err := ir.DecodeFile(path)
	if err != nil {
		fail(err)
	}

	switch task := utils.Opts().Task(); task {
	case "analyze":
		os.Exit(taskAnalyze(prog))
	case "cfg-to-dot":
		if err := taskCfgToDot(prog); err != nil {
			fail(err)
		}
	case "metrics":
		if err := taskMetrics(prog); err != nil {
			fail(err)
		}
	default:
		fail(fmt.Errorf("unknown task %q", task))
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "kestrel:", err)
	os.Exit(2)
}

func parseSuppressed() ([]report.Cause, error) {
	raw := utils.Opts().Suppress()
	if raw == "" {
		return nil, nil
	}
	var res []report.Cause
	for _, name := range strings.Split(raw, ",") {
		c, err := report.ParseCause(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func funcMeta(fr *solver.FuncResult) report.FuncMeta {
	meta := report.FuncMeta{
		Name:           fr.Fn.Name,
		Status:         fr.Status.String(),
		BudgetExceeded: fr.BudgetExceeded,
		PrecisionLost:  fr.PrecisionLost,
		Malformed:      fr.Malformed,
		Visits:         fr.Visits,
		Duration:       fr.Duration,
	}
	if fr.Err != nil {
		meta.Err = fr.Err.Error()
	}
	return meta
}

func taskAnalyze(prog *ir.Program) int {
	cfg, err := solver.ConfigFromOpts()
	if err != nil {
		fail(err)
	}
	enabled, err := checkers.FromOpts()
	if err != nil {
		fail(err)
	}
	suppressed, err := parseSuppressed()
	if err != nil {
		fail(err)
	}

	run := runPipeline(prog, cfg, utils.Opts().Workers())

	var findings []report.Finding
	var metas []report.FuncMeta
	for _, name := range run.order {
		if only := utils.Opts().Function(); only != "" && name != only {
			continue
		}
		fr := run.results[name]
		findings = append(findings,
			checkers.Run(fr, enabled, utils.Opts().UnknownPolicy())...)
		metas = append(metas, funcMeta(fr))
	}

	rep := &report.Report{
		Findings: report.Filter(
			report.Aggregate(findings),
			suppressed,
			utils.Opts().MemorySafetyOnly()),
		Funcs: metas,
	}

	out := os.Stdout
	if path := utils.Opts().OutputPath(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		out = f
	}
	if err := rep.Write(out, utils.Opts().OutputFormat()); err != nil {
		fail(err)
	}
	return rep.ExitCode(utils.Opts().DenyWarnings())
}

// cfgDot builds the dot graph of one named function, solving it first when
// a solver configuration is given. Malformed functions are rejected here;
// the renderer assumes a structurally valid graph.
func cfgDot(prog *ir.Program, name string, cfg *solver.Config) (*vistool.DotGraph, error) {
	fn := prog.Func(name)
	if fn == nil {
		return nil, fmt.Errorf("no function named %q", name)
	}
	if err := prog.Validate()[name]; err != nil {
		return nil, fmt.Errorf("function %q: %w", name, err)
	}

	var states map[int]absstate.State
	if cfg != nil {
		sums := solver.NewSummaries(prog, *cfg)
		states = solver.AnalyzeFunction(fn, *cfg, sums).Entries
	}
	return vistool.CFGToDot(fn, states), nil
}

func taskCfgToDot(prog *ir.Program) error {
	name := utils.Opts().Function()
	if name == "" {
		return fmt.Errorf("cfg-to-dot requires -function")
	}

	var cfg *solver.Config
	if utils.Opts().Visualize() {
		c, err := solver.ConfigFromOpts()
		if err != nil {
			return err
		}
		cfg = &c
	}

	g, err := cfgDot(prog, name, cfg)
	if err != nil {
		return err
	}
	if path := utils.Opts().OutputPath(); path != "" {
		return g.RenderFile(path)
	}
	return g.WriteDot(os.Stdout)
}
