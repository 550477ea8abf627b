package utils

import (
	"flag"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the command line options in a TOML file. Pointer
// fields distinguish "absent" from a zero value.
type fileConfig struct {
	Domain              *string `toml:"domain"`
	Function            *string `toml:"function"`
	Format              *string `toml:"format"`
	Output              *string `toml:"output"`
	Checkers            *string `toml:"checkers"`
	Suppress            *string `toml:"suppress"`
	UnknownPolicy       *string `toml:"unknown-policy"`
	WideningDelay       *uint   `toml:"widening-delay"`
	NarrowingIterations *uint   `toml:"narrowing-iterations"`
	IterationCap        *uint   `toml:"iteration-cap"`
	SummaryBound        *uint   `toml:"summary-bound"`
	Workers             *uint   `toml:"workers"`
	Budget              *string `toml:"budget"`
	DenyWarnings        *bool   `toml:"deny-warnings"`
	MemorySafetyOnly    *bool   `toml:"memory-safety-only"`
}

// LoadConfigFile merges the TOML file named by -config into the options.
// Explicitly passed flags take precedence over the file; call after
// ParseArgs.
func LoadConfigFile() error {
	if opts.configPath == "" {
		return nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(opts.configPath, &fc); err != nil {
		return fmt.Errorf("reading config %s: %w", opts.configPath, err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	apply := func(name string, do func()) {
		if !set[name] {
			do()
		}
	}
	applyStr := func(name string, dst *string, src *string) {
		if src != nil {
			apply(name, func() { *dst = *src })
		}
	}
	applyUint := func(name string, dst *uint, src *uint) {
		if src != nil {
			apply(name, func() { *dst = *src })
		}
	}
	applyBool := func(name string, dst *bool, src *bool) {
		if src != nil {
			apply(name, func() { *dst = *src })
		}
	}

	applyStr("domain", &opts.domain, fc.Domain)
	applyStr("function", &opts.function, fc.Function)
	applyStr("format", &opts.outputFormat, fc.Format)
	applyStr("output", &opts.outputPath, fc.Output)
	applyStr("checkers", &opts.checkers, fc.Checkers)
	applyStr("suppress", &opts.suppress, fc.Suppress)
	applyStr("unknown-policy", &opts.unknownPolicy, fc.UnknownPolicy)
	applyUint("widening-delay", &opts.wideningDelay, fc.WideningDelay)
	applyUint("narrowing-iterations", &opts.narrowingIter, fc.NarrowingIterations)
	applyUint("iteration-cap", &opts.iterationCap, fc.IterationCap)
	applyUint("summary-bound", &opts.summaryBound, fc.SummaryBound)
	applyUint("workers", &opts.workers, fc.Workers)
	applyBool("deny-warnings", &opts.denyWarnings, fc.DenyWarnings)
	applyBool("memory-safety-only", &opts.memSafetyOnly, fc.MemorySafetyOnly)

	if fc.Budget != nil && !set["budget"] {
		d, err := time.ParseDuration(*fc.Budget)
		if err != nil {
			return fmt.Errorf("config budget: %w", err)
		}
		opts.budget = d
	}
	return nil
}
