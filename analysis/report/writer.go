package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/kestrel-analysis/kestrel/utils"
)

var colorize = struct {
	High   func(...interface{}) string
	Medium func(...interface{}) string
	Low    func(...interface{}) string
	Point  func(...interface{}) string
	Meta   func(...interface{}) string
}{
	High: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
	Medium: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Low: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Point: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite).SprintFunc())(is...)
	},
	Meta: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.Faint).SprintFunc())(is...)
	},
}

func label(c Confidence) string {
	switch c {
	case High:
		return colorize.High("error")
	case Medium:
		return colorize.Medium("warning")
	}
	return colorize.Low("note")
}

// WriteText renders the report for humans.
func (r *Report) WriteText(w io.Writer) error {
	for _, f := range r.Findings {
		if _, err := fmt.Fprintf(w, "%s: %s: %s (%s, %s confidence)\n",
			colorize.Point(f.Point), label(f.Confidence),
			f.Message, f.Cause, f.Confidence); err != nil {
			return err
		}
		if f.Snippet != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", colorize.Meta(f.Snippet)); err != nil {
				return err
			}
		}
	}

	for _, meta := range r.Funcs {
		switch {
		case meta.Malformed:
			if _, err := fmt.Fprintf(w, "%s: %s: %s\n",
				colorize.Point(meta.Name), colorize.High("malformed"), meta.Err); err != nil {
				return err
			}
		case meta.BudgetExceeded:
			if _, err := fmt.Fprintf(w, "%s: %s\n", colorize.Point(meta.Name),
				colorize.Medium("time budget exceeded, results degraded")); err != nil {
				return err
			}
		case meta.PrecisionLost:
			if _, err := fmt.Fprintf(w, "%s: %s\n", colorize.Point(meta.Name),
				colorize.Medium("precision lost, confidence degraded")); err != nil {
				return err
			}
		}
	}

	if len(r.Findings) == 0 {
		_, err := fmt.Fprintln(w, "no findings")
		return err
	}
	_, err := fmt.Fprintf(w, "%d finding(s)\n", len(r.Findings))
	return err
}

// jsonReport fixes the serialized shape independently of the in-memory one.
type jsonReport struct {
	Findings []Finding  `json:"findings"`
	Funcs    []FuncMeta `json:"functions"`
}

// WriteJSON renders the report for tools.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return enc.Encode(jsonReport{Findings: findings, Funcs: r.Funcs})
}

// Write dispatches on the requested format.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return r.WriteText(w)
	case "json":
		return r.WriteJSON(w)
	}
	return fmt.Errorf("unknown report format %q", format)
}
