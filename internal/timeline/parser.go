// Package timeline extracts duration expressions from free-form project
// text and normalizes them to day counts.
package timeline

import (
	"fmt"
	"regexp"
	"strconv"
)

// Day multipliers for each supported unit.
const (
	daysPerMonth = 30
	daysPerYear  = 365
	daysPerWeek  = 7
)

// Overall duration patterns, checked in precedence order: an overall
// month figure wins over scattered week/day mentions in the same text.
var (
	monthRegex = regexp.MustCompile(`(?i)(\d+)\s*months?\b`)
	yearRegex  = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\b`)
	weekRegex  = regexp.MustCompile(`(?i)(\d+)\s*(?:weeks?|wks?)\b`)
	dayRegex   = regexp.MustCompile(`(?i)(\d+)\s*days?\b`)
)

// perPhasePattern matches "Phase N: <k> <unit>" mentions; the phase
// number group is interpolated per known phase.
const perPhasePattern = `(?i)phase\s*%d\s*[:\-]?\s*(\d+)\s*(day|week|month|year)s?\b`

// anyPhaseMentionRegex matches any phase-scoped duration mention. These
// are masked out before the overall scan so a phase-local figure is
// never mistaken for the whole timeline.
var anyPhaseMentionRegex = regexp.MustCompile(`(?i)phase\s*\d+\s*[:\-]?\s*\d+\s*(?:day|week|month|year)s?\b`)

// Parse extracts a duration in days from text. It first looks for an
// explicit overall duration (months, then years, weeks, days, ignoring
// phase-scoped mentions); if none matches it sums per-phase mentions
// keyed by the supplied phase numbers. The boolean is false when nothing
// matched; callers must treat that as "use policy default", never as
// zero. Pure function of its inputs.
func Parse(text string, phaseNumbers []int) (int, bool) {
	if text == "" {
		return 0, false
	}

	masked := anyPhaseMentionRegex.ReplaceAllString(text, "")

	type unitPattern struct {
		re      *regexp.Regexp
		perUnit int
	}
	for _, up := range []unitPattern{
		{monthRegex, daysPerMonth},
		{yearRegex, daysPerYear},
		{weekRegex, daysPerWeek},
		{dayRegex, 1},
	} {
		if m := up.re.FindStringSubmatch(masked); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n * up.perUnit, true
		}
	}

	return parsePerPhase(text, phaseNumbers)
}

// parsePerPhase scans for per-phase duration mentions and sums them.
func parsePerPhase(text string, phaseNumbers []int) (int, bool) {
	total := 0
	found := false
	for _, num := range phaseNumbers {
		re, err := regexp.Compile(fmt.Sprintf(perPhasePattern, num))
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2][0] | 0x20 { // lowercase first letter of unit
		case 'm':
			total += n * daysPerMonth
		case 'y':
			total += n * daysPerYear
		case 'w':
			total += n * daysPerWeek
		case 'd':
			total += n
		}
		found = true
	}
	return total, found
}
