package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kestrel-analysis/kestrel/analysis/solver"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
)

// taskMetrics solves all fixpoints and prints per-function solver metrics
// without running any checker.
func taskMetrics(prog *ir.Program) error {
	cfg, err := solver.ConfigFromOpts()
	if err != nil {
		return err
	}
	run := runPipeline(prog, cfg, utils.Opts().Workers())

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tSTATUS\tVISITS\tTIME\tFLAGS")
	for _, name := range run.order {
		fr := run.results[name]
		var flags []string
		if fr.Malformed {
			flags = append(flags, "malformed")
		}
		if fr.BudgetExceeded {
			flags = append(flags, "budget-exceeded")
		}
		if fr.PrecisionLost {
			flags = append(flags, "precision-lost")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			name, fr.Status, fr.Visits, fr.Duration.Round(time.Microsecond),
			strings.Join(flags, ","))
	}
	return w.Flush()
}
