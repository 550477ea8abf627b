package utils

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// options collects every command line switch understood by the driver.
// Access goes through the optInterface accessors to keep call sites
// independent of the concrete representation.
type options struct {
	task          string
	configPath    string
	domain        string
	function      string
	outputFormat  string
	outputPath    string
	checkers      string
	suppress      string
	unknownPolicy string
	wideningDelay uint
	narrowingIter uint
	iterationCap  uint
	summaryBound  uint
	workers       uint
	budget        time.Duration
	denyWarnings  bool
	memSafetyOnly bool
	noColorize    bool
	verbose       bool
	visualize     bool
}

var tasks = []struct{ flag, explanation string }{{
	"analyze",
	"Run the abstract interpretation engine and report findings",
}, {
	"cfg-to-dot",
	"Render the control-flow graph of the selected function as a dot graph",
}, {
	"metrics",
	"Solve all fixpoints and print per-function solver metrics without findings",
}}

var opts = &options{}

type optInterface struct{}

// Opts exposes read access to the parsed command line options.
func Opts() optInterface {
	return optInterface{}
}

func (optInterface) Task() string            { return opts.task }
func (optInterface) ConfigPath() string      { return opts.configPath }
func (optInterface) Domain() string          { return opts.domain }
func (optInterface) Function() string        { return opts.function }
func (optInterface) OutputFormat() string    { return opts.outputFormat }
func (optInterface) OutputPath() string      { return opts.outputPath }
func (optInterface) Checkers() string        { return opts.checkers }
func (optInterface) Suppress() string        { return opts.suppress }
func (optInterface) UnknownPolicy() string   { return opts.unknownPolicy }
func (optInterface) WideningDelay() int      { return int(opts.wideningDelay) }
func (optInterface) NarrowingIter() int      { return int(opts.narrowingIter) }
func (optInterface) IterationCap() int       { return int(opts.iterationCap) }
func (optInterface) SummaryBound() int       { return int(opts.summaryBound) }
func (optInterface) Workers() int            { return int(opts.workers) }
func (optInterface) Budget() time.Duration   { return opts.budget }
func (optInterface) DenyWarnings() bool      { return opts.denyWarnings }
func (optInterface) MemorySafetyOnly() bool  { return opts.memSafetyOnly }
func (optInterface) NoColorize() bool        { return opts.noColorize }
func (optInterface) IsVerbose() bool         { return opts.verbose }
func (optInterface) Visualize() bool         { return opts.visualize }

// OnVerbose runs the provided thunk if verbose output was requested.
func (optInterface) OnVerbose(do func()) {
	if opts.verbose {
		do()
	}
}

// CanColorize guards a color.SprintFunc behind the -no-colorize flag.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

func taskExplanations() string {
	strs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		strs = append(strs, "  "+t.flag+"\n    \t"+t.explanation)
	}
	return strings.Join(strs, "\n")
}

// ParseArgs registers and parses all command line flags.
func ParseArgs() {
	flag.StringVar(&opts.task, "task", "analyze",
		"Task to perform. One of:\n"+taskExplanations())
	flag.StringVar(&opts.configPath, "config", "",
		"Path to a TOML file with analysis options. Flags take precedence.")
	flag.StringVar(&opts.domain, "domain", "interval",
		"Numeric abstract domain backend.")
	flag.StringVar(&opts.function, "function", "",
		"Restrict the analysis (or visualization) to the named function.")
	flag.StringVar(&opts.outputFormat, "format", "text",
		"Report format: text or json.")
	flag.StringVar(&opts.outputPath, "output", "",
		"Write the report to the given file instead of standard output.")
	flag.StringVar(&opts.checkers, "checkers", "",
		"Comma-separated subset of checkers to enable (default: all).")
	flag.StringVar(&opts.suppress, "suppress", "",
		"Comma-separated fault causes to suppress in the report.")
	flag.StringVar(&opts.unknownPolicy, "unknown-policy", "always",
		"Policy for unknown-state memory findings: always or threshold.")
	flag.UintVar(&opts.wideningDelay, "widening-delay", 5,
		"Number of plain joins at a loop head before widening kicks in.")
	flag.UintVar(&opts.narrowingIter, "narrowing-iterations", 5,
		"Maximum number of narrowing passes after the widened fixpoint.")
	flag.UintVar(&opts.iterationCap, "iteration-cap", 1000,
		"Hard cap on solver visits per block before precision is abandoned.")
	flag.UintVar(&opts.summaryBound, "summary-bound", 8,
		"Maximum call-context summaries per callee before falling back to a context-insensitive one.")
	flag.UintVar(&opts.workers, "workers", 4,
		"Number of parallel function solvers.")
	flag.DurationVar(&opts.budget, "budget", 30*time.Second,
		"Per-function time budget for the fixpoint computation.")
	flag.BoolVar(&opts.denyWarnings, "deny-warnings", false,
		"Treat every finding as an error when deciding the exit code.")
	flag.BoolVar(&opts.memSafetyOnly, "memory-safety-only", false,
		"Report only use-after-free and double-free findings.")
	flag.BoolVar(&opts.noColorize, "no-colorize", false,
		"Disable colorization of output.")
	flag.BoolVar(&opts.verbose, "verbose", false,
		"Verbose output.")
	flag.BoolVar(&opts.visualize, "visualize", false,
		"Attach fixpoint states to blocks when rendering a CFG.")

	flag.Parse()
}
