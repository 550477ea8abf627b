// Package report collects, deduplicates and renders the findings of the
// checkers. The aggregator is pure; all I/O happens in the writers.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kestrel-analysis/kestrel/ir"
)

// Cause classifies a finding by the fault it witnesses.
type Cause uint8

const (
	Overflow Cause = iota
	DivByZero
	OutOfRange
	UseAfterFree
	DoubleFree
	Unreachable
)

var causeNames = map[Cause]string{
	Overflow:     "overflow",
	DivByZero:    "div-by-zero",
	OutOfRange:   "out-of-range",
	UseAfterFree: "use-after-free",
	DoubleFree:   "double-free",
	Unreachable:  "unreachable",
}

func (c Cause) String() string {
	return causeNames[c]
}

// MarshalJSON renders the cause by name.
func (c Cause) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ParseCause resolves a cause name as used by the -suppress flag.
func ParseCause(name string) (Cause, error) {
	for c, n := range causeNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown fault cause %q", name)
}

// MemorySafety checks whether the cause concerns memory safety.
func (c Cause) MemorySafety() bool {
	return c == UseAfterFree || c == DoubleFree
}

// Confidence grades how strongly the abstract states support a finding.
type Confidence uint8

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	}
	return "low"
}

// MarshalJSON renders the confidence by name.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Degrade lowers the confidence one level.
func (c Confidence) Degrade() Confidence {
	if c == Low {
		return Low
	}
	return c - 1
}

// Finding is one candidate fault at one program point.
type Finding struct {
	Point      ir.Point   `json:"point"`
	Cause      Cause      `json:"cause"`
	Confidence Confidence `json:"confidence"`
	Message    string     `json:"message"`
	// Snippet shows the abstract values the finding rests on.
	Snippet string `json:"snippet,omitempty"`
}

// FuncMeta carries the per-function solver outcome the report includes for
// exit-code decisions and solver diagnostics.
type FuncMeta struct {
	Name           string        `json:"name"`
	Status         string        `json:"status"`
	BudgetExceeded bool          `json:"budgetExceeded,omitempty"`
	PrecisionLost  bool          `json:"precisionLost,omitempty"`
	Malformed      bool          `json:"malformed,omitempty"`
	Err            string        `json:"error,omitempty"`
	Visits         int           `json:"visits,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// Report is the aggregated analysis outcome.
type Report struct {
	Findings []Finding
	Funcs    []FuncMeta
}

// Aggregate deduplicates findings by (point, cause), keeping the highest
// confidence, and orders them by the stable source ordering of points.
func Aggregate(findings []Finding) []Finding {
	type key struct {
		pt    ir.Point
		cause Cause
	}
	best := map[key]Finding{}
	for _, f := range findings {
		k := key{f.Point, f.Cause}
		if old, found := best[k]; !found || f.Confidence > old.Confidence {
			best[k] = f
		}
	}

	res := make([]Finding, 0, len(best))
	for _, f := range best {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Point != res[j].Point {
			return res[i].Point.Less(res[j].Point)
		}
		return res[i].Cause < res[j].Cause
	})
	return res
}

// Filter drops suppressed causes, and everything but memory safety when
// requested.
func Filter(findings []Finding, suppress []Cause, memorySafetyOnly bool) []Finding {
	suppressed := map[Cause]bool{}
	for _, c := range suppress {
		suppressed[c] = true
	}

	res := findings[:0:0]
	for _, f := range findings {
		if suppressed[f.Cause] {
			continue
		}
		if memorySafetyOnly && !f.Cause.MemorySafety() {
			continue
		}
		res = append(res, f)
	}
	return res
}

// ExitCode decides the process exit status: 2 when any function was
// malformed, 1 when the findings contain an error (every finding is one
// under denyWarnings; only high-confidence ones otherwise), 0 when clean.
func (r *Report) ExitCode(denyWarnings bool) int {
	for _, meta := range r.Funcs {
		if meta.Malformed {
			return 2
		}
	}
	for _, f := range r.Findings {
		if denyWarnings || f.Confidence == High {
			return 1
		}
	}
	return 0
}
