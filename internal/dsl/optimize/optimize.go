// Package optimize implements the tiered, re-runnable optimization pass
// pipeline over mid-IR. Every pass consumes a module, mutates it in place,
// and returns the count of transformations it applied; the pipeline
// aggregates these counts per pass name for the diagnostic reporter. Tier k
// runs every pass from tiers 1..k in declaration order, mirroring the
// ordered-pipeline-of-named-passes shape kanso-lang's ir-optimizations.go
// uses for its own gas-focused pipeline.
package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// Pass is a single optimization transformation. Apply must leave every
// function's SSA invariants satisfied on return.
type Pass interface {
	Name() string
	Apply(mod *ir.Module) int
}

// Stats holds the per-pass transformation counts from one pipeline run, plus
// the total and the ordered list of pass names so a reporter can print them
// in execution order.
type Stats struct {
	Order  []string
	Counts map[string]int
}

// Total sums every pass's count.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Order {
		total += s.Counts[n]
	}
	return total
}

func newStats() Stats {
	return Stats{Counts: make(map[string]int)}
}

func (s *Stats) record(name string, n int) {
	if _, seen := s.Counts[name]; !seen {
		s.Order = append(s.Order, name)
	}
	s.Counts[name] += n
}

// Options configures the pipeline's tier-dependent knobs: the loop unroll
// factor (Tier 2 pass 7) and an optional profile record (Tier 3 passes
// 12-14). A nil Profile disables every Tier 3 pass that depends on one,
// which then report a count of zero rather than erroring.
type Options struct {
	UnrollFactor int
	Profile      *Profile
}

// Pipeline is an ordered list of passes, built for a specific optimization
// level by NewPipeline.
type Pipeline struct {
	passes []Pass
}

// tierTable lists every pass in spec order, tagged with the tier that
// introduces it. NewPipeline includes every pass whose tier is <= level.
var tierTable = []struct {
	tier int
	pass func(Options) Pass
}{
	{1, func(Options) Pass { return ConstantFolding{} }},
	{1, func(Options) Pass { return DeadCodeElimination{} }},
	{1, func(Options) Pass { return Peephole{} }},
	{1, func(Options) Pass { return BoundsCheckElimination{} }},
	{1, func(Options) Pass { return BranchSimplification{} }},
	{1, func(Options) Pass { return FootprintCompression{} }},

	{2, func(o Options) Pass { return LoopUnrolling{Factor: o.UnrollFactor} }},
	{2, func(Options) Pass { return LoopFusion{} }},
	{2, func(Options) Pass { return Vectorization{} }},
	{2, func(Options) Pass { return InstructionReordering{} }},
	{2, func(Options) Pass { return TailCallConversion{} }},

	{3, func(o Options) Pass { return ProfileGuidedPlacement{Profile: o.Profile} }},
	{3, func(Options) Pass { return LinkTimeOptimization{} }},
	{3, func(o Options) Pass { return ProfileDirectedCounters{Profile: o.Profile} }},
	{3, func(Options) Pass { return AdaptiveTuning{Capabilities: DefaultHardwareCapabilities()} }},
	{3, func(Options) Pass { return SpecialtyPasses{} }},
}

// NewPipeline builds the pass list for level (0 disables optimization
// entirely: an empty pipeline), including every pass from tiers 1..level in
// the order tierTable gives them.
func NewPipeline(level int, opts Options) *Pipeline {
	p := &Pipeline{}
	for _, entry := range tierTable {
		if entry.tier <= level {
			p.passes = append(p.passes, entry.pass(opts))
		}
	}
	return p
}

// Run executes every pass in order over mod, returning per-pass counts.
// Passes run sequentially per §5's single-threaded pipeline contract.
func (p *Pipeline) Run(mod *ir.Module) Stats {
	stats := newStats()
	for _, pass := range p.passes {
		n := pass.Apply(mod)
		stats.record(pass.Name(), n)
	}
	return stats
}

// RunToFixpoint re-runs the full pass list until a pass over the whole list
// makes no change or max rounds is reached, for callers that want passes to
// interact (e.g. DCE exposing more constant-folding opportunities).
func (p *Pipeline) RunToFixpoint(mod *ir.Module, maxRounds int) Stats {
	total := newStats()
	for round := 0; round < maxRounds; round++ {
		roundStats := p.Run(mod)
		for _, name := range roundStats.Order {
			total.record(name, roundStats.Counts[name])
		}
		if roundStats.Total() == 0 {
			break
		}
	}
	return total
}
