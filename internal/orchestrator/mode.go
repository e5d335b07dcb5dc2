// Package orchestrator implements the generation orchestrator described
// in spec.md §4.G: mode selection, context assembly, the external
// generator call, scorer-backed refinement, and the fallback chain on
// generator failure.
package orchestrator

import "strings"

// Mode is one of the four execution modes spec.md §4.G names, ordered
// cheapest to most expensive.
type Mode int

const (
	ModeFast Mode = iota
	ModeBalanced
	ModeThorough
	ModeReasoning
)

func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "Fast"
	case ModeBalanced:
		return "Balanced"
	case ModeThorough:
		return "Thorough"
	case ModeReasoning:
		return "Reasoning"
	default:
		return "Unknown"
	}
}

// AnalyzeMode picks a default mode from input length alone: len > 500
// -> Thorough, > 100 -> Balanced, else Fast.
func AnalyzeMode(input string) Mode {
	n := len(strings.TrimSpace(input))
	switch {
	case n > 500:
		return ModeThorough
	case n > 100:
		return ModeBalanced
	default:
		return ModeFast
	}
}

// ResolveMode applies the analyzer's upgrade-only override: if the
// caller's requested mode is cheaper than what the analyzer recommends,
// the analyzer's recommendation wins; otherwise the caller's request
// stands.
func ResolveMode(requested Mode, input string) Mode {
	recommended := AnalyzeMode(input)
	if recommended > requested {
		return recommended
	}
	return requested
}

// fallback returns the next-cheapest mode in the
// Reasoning->Thorough->Balanced->Fast chain, and false once Fast itself
// has no cheaper fallback.
func fallback(m Mode) (Mode, bool) {
	switch m {
	case ModeReasoning:
		return ModeThorough, true
	case ModeThorough:
		return ModeBalanced, true
	case ModeBalanced:
		return ModeFast, true
	default:
		return ModeFast, false
	}
}
