package models

import (
	"fmt"
	"sort"
	"strings"
)

// Phase is a named, ordered stage of a project. Data holds arbitrary
// user-authored fields (timelines, descriptions). Phases are owned by
// the project and read-only to the engine.
type Phase struct {
	PhaseNumber int            `json:"phaseNumber" validate:"required,min=1"`
	PhaseName   string         `json:"phaseName" validate:"required"`
	Completed   bool           `json:"completed"`
	Data        map[string]any `json:"data,omitempty"`
}

// HasData reports whether the phase carries any non-empty user field.
func (p *Phase) HasData() bool {
	for _, v := range p.Data {
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return true
			}
		case nil:
			// skip
		default:
			return true
		}
	}
	return false
}

// SortPhases orders phases by phase number, ascending. Returns a new
// slice; the caller-owned input is never mutated.
func SortPhases(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases)
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out
}

// PhaseSignature produces a deterministic key for a phase list, used to
// memoize phase-derived computations. Ordered number:name pairs joined
// with '|'.
func PhaseSignature(phases []Phase) string {
	sorted := SortPhases(phases)
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, fmt.Sprintf("%d:%s", p.PhaseNumber, p.PhaseName))
	}
	return strings.Join(parts, "|")
}
