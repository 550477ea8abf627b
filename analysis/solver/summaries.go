package solver

import (
	"strconv"
	"strings"
	"sync"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
)

// Summary is the memoized abstract effect of a call: the result intervals,
// whether the callee may disturb memory visible to the caller, and whether
// the results are degraded.
type Summary struct {
	Results       []lattice.Interval
	TouchesMemory bool
	PrecisionLost bool
}

// topSummary is the summary of a callee nothing is known about.
func topSummary() Summary {
	return Summary{TouchesMemory: true, PrecisionLost: true}
}

// Result returns the interval of the i'th call result, ⊤ when the callee
// returns fewer values than the caller binds.
func (s Summary) Result(i int) lattice.Interval {
	if i < len(s.Results) {
		return s.Results[i]
	}
	return lattice.Create().Lattice().Interval().Top().Interval()
}

// Summaries is the interprocedural cache: per callee, a bounded map from
// abstracted argument shapes to summaries, with a context-insensitive
// fallback once the shape count explodes. The cache is append-only and
// safe for concurrent use; each missing summary is computed under a
// per-key exclusive slot so concurrent callers of the same context block
// instead of duplicating work.
type Summaries struct {
	cfg  Config
	prog *ir.Program

	mu          sync.Mutex
	cache       map[string]map[string]Summary
	fallback    map[string]Summary
	useFallback map[string]bool
	pending     map[string]chan struct{}
}

// NewSummaries creates an empty cache for the program.
func NewSummaries(prog *ir.Program, cfg Config) *Summaries {
	return &Summaries{
		cfg:         cfg,
		prog:        prog,
		cache:       map[string]map[string]Summary{},
		fallback:    map[string]Summary{},
		useFallback: map[string]bool{},
		pending:     map[string]chan struct{}{},
	}
}

func boundKey(b lattice.IntervalBound) string {
	switch b := b.(type) {
	case lattice.FiniteBound:
		return strconv.Itoa(int(b))
	case lattice.PlusInfinity:
		return "+inf"
	}
	return "-inf"
}

// shapeKey abstracts an argument vector to a cache key.
func shapeKey(args []lattice.Interval) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(';')
		}
		if a.IsBot() {
			sb.WriteString("bot")
			continue
		}
		sb.WriteString(boundKey(a.Low()))
		sb.WriteByte(',')
		sb.WriteString(boundKey(a.High()))
	}
	return sb.String()
}

// Resolve returns the summary of a resolved callee under the given
// abstract arguments, computing and memoizing it on demand.
func (S *Summaries) Resolve(callee string, args []lattice.Interval) Summary {
	return S.resolve(callee, args, nil)
}

func (S *Summaries) resolve(callee string, args []lattice.Interval, inflight map[string]bool) Summary {
	fn := S.prog.Func(callee)
	if fn == nil {
		return topSummary()
	}
	key := shapeKey(args)

	for {
		S.mu.Lock()
		if S.useFallback[callee] {
			s, found := S.fallback[callee]
			S.mu.Unlock()
			if found {
				return s
			}
			return topSummary()
		}
		if s, found := S.cache[callee][key]; found {
			S.mu.Unlock()
			return s
		}
		// A callee further up the current chain cannot be computed here;
		// waiting on its slot would deadlock on our own goroutine. Give
		// it ⊤ and let the outer rounds refine it.
		if inflight[callee] {
			S.mu.Unlock()
			return topSummary()
		}
		slot := callee + "\x00" + key
		if ch, busy := S.pending[slot]; busy {
			S.mu.Unlock()
			<-ch
			continue
		}
		ch := make(chan struct{})
		S.pending[slot] = ch
		S.mu.Unlock()

		s := S.compute(fn, args, inflight)

		S.mu.Lock()
		if S.cache[callee] == nil {
			S.cache[callee] = map[string]Summary{}
		}
		S.cache[callee][key] = s
		explode := len(S.cache[callee]) > S.cfg.SummaryBound && !S.useFallback[callee]
		delete(S.pending, slot)
		S.mu.Unlock()
		close(ch)

		if explode {
			// Shape explosion: collapse to one context-insensitive summary.
			// It must cover contexts never seen, so it is recomputed with
			// unconstrained arguments rather than joined from the cache.
			ci := S.compute(fn, nil, inflight)
			ci.PrecisionLost = true
			S.mu.Lock()
			if !S.useFallback[callee] {
				S.fallback[callee] = ci
				S.useFallback[callee] = true
			}
			S.mu.Unlock()
		}
		return s
	}
}

// Seed installs a context-insensitive summary for a callee and pins the
// cache to it. Used to break recursion: members of a call-graph cycle are
// seeded with ⊤ and refined by the outer fixpoint.
func (S *Summaries) Seed(callee string, s Summary) {
	S.mu.Lock()
	S.fallback[callee] = s
	S.useFallback[callee] = true
	S.mu.Unlock()
}

// Seeded returns the pinned summary of a callee, if any.
func (S *Summaries) Seeded(callee string) (Summary, bool) {
	S.mu.Lock()
	defer S.mu.Unlock()
	s, found := S.fallback[callee]
	return s, found && S.useFallback[callee]
}

// compute derives a summary by solving the callee with its integer
// parameters bound to the abstract arguments. Reference parameters stay
// unbound; their provenance belongs to the caller.
func (S *Summaries) compute(fn *ir.Function, args []lattice.Interval, inflight map[string]bool) Summary {
	chain := make(map[string]bool, len(inflight)+1)
	for name := range inflight {
		chain[name] = true
	}
	chain[fn.Name] = true
	entry := entryState(fn, S.cfg, args)
	res := analyze(fn, entry, S.cfg, S, chain)
	return Summary{
		Results:       res.Returns,
		TouchesMemory: res.TouchesMemory,
		PrecisionLost: res.PrecisionLost || res.BudgetExceeded,
	}
}
