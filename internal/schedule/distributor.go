// Package schedule turns parsed durations and phase state into concrete
// calendar windows, and owns the "due date always present, always
// plausible" invariant for generated tasks.
package schedule

import (
	"strings"
	"time"

	"github.com/taskforge/taskforge/models"
)

const (
	// BuildFloorDays is the minimum total for the build bucket whenever
	// it is non-empty and any evidence of build work exists. Models
	// realistic full-scale build effort; never skipped silently.
	BuildFloorDays = 90

	// DefaultPlanningDays applies when no planning duration is parsable.
	DefaultPlanningDays = 30

	// Plausibility bounds for dates proposed by generation. Anything
	// outside is recomputed from the phase/offset rule.
	maxPastDays   = 730
	maxFutureDays = 1095
)

// Priority-dependent lead times (days between start and due).
var leadTimes = map[models.TaskPriority]int{
	models.PriorityCritical: 2,
	models.PriorityHigh:     3,
	models.PriorityMedium:   4,
	models.PriorityLow:      5,
}

// buildMarkers flag a phase as belonging to the build bucket by name.
var buildMarkers = []string{"build", "develop", "implement", "code", "construction", "launch"}

// Evidence captures the signals that justify applying the build floor.
type Evidence struct {
	TasksInBuildPhases  bool
	BuildPhaseHasData   bool
	BuildTimelineParsed bool
}

// Any reports whether at least one build-work signal exists.
func (e Evidence) Any() bool {
	return e.TasksInBuildPhases || e.BuildPhaseHasData || e.BuildTimelineParsed
}

// window is one phase's slice of the calendar, as day offsets from today.
type window struct {
	startOffset int
	days        int
}

// Plan maps every phase to a calendar window anchored at Today.
type Plan struct {
	Today     time.Time
	TotalDays int
	windows   map[int]window
}

// BuildPlan distributes calendar time across phases. Phases are split
// into a planning bucket and a build bucket; each bucket's total days
// are divided evenly across its incomplete phases. planningDays and
// buildDays are the parsed durations (nil = nothing parsable, use
// policy default). The input slices are never mutated.
func BuildPlan(phases []models.Phase, existing []models.Task, planningDays, buildDays *int, today time.Time) Plan {
	plan := Plan{Today: today, windows: make(map[int]window)}
	sorted := models.SortPhases(phases)
	if len(sorted) == 0 {
		return plan
	}

	buildSet := buildBucket(sorted)

	ev := Evidence{BuildTimelineParsed: buildDays != nil}
	for _, p := range sorted {
		if buildSet[p.PhaseNumber] && p.HasData() {
			ev.BuildPhaseHasData = true
		}
	}
	for _, t := range existing {
		if buildSet[t.PhaseNumber] {
			ev.TasksInBuildPhases = true
			break
		}
	}

	planPhases, buildPhases := splitBuckets(sorted, buildSet)

	planTotal := 0
	if countOpen(planPhases) > 0 {
		if planningDays != nil {
			planTotal = *planningDays
		} else {
			planTotal = DefaultPlanningDays
		}
	}

	buildTotal := 0
	if countOpen(buildPhases) > 0 && ev.Any() {
		if buildDays != nil {
			buildTotal = *buildDays
		}
		if buildTotal < BuildFloorDays {
			buildTotal = BuildFloorDays
		}
	}

	assignWindows(plan.windows, planPhases, planTotal, 0)
	assignWindows(plan.windows, buildPhases, buildTotal, planTotal)
	plan.TotalDays = planTotal + buildTotal
	return plan
}

// Buckets splits phases into the planning and build buckets using the
// same classification BuildPlan applies. Callers use it to scope
// timeline text to the right bucket before parsing.
func Buckets(phases []models.Phase) (planning, build []models.Phase) {
	sorted := models.SortPhases(phases)
	return splitBuckets(sorted, buildBucket(sorted))
}

func splitBuckets(sorted []models.Phase, buildSet map[int]bool) (planning, build []models.Phase) {
	for _, p := range sorted {
		if buildSet[p.PhaseNumber] {
			build = append(build, p)
		} else {
			planning = append(planning, p)
		}
	}
	return planning, build
}

// countOpen returns the number of incomplete phases in a bucket.
func countOpen(bucket []models.Phase) int {
	n := 0
	for _, p := range bucket {
		if !p.Completed {
			n++
		}
	}
	return n
}

// buildBucket marks phases as build work: name contains a build marker,
// or the phase sits in the upper half of the ordered list.
func buildBucket(sorted []models.Phase) map[int]bool {
	set := make(map[int]bool, len(sorted))
	for i, p := range sorted {
		name := strings.ToLower(p.PhaseName)
		marked := false
		for _, m := range buildMarkers {
			if strings.Contains(name, m) {
				marked = true
				break
			}
		}
		if marked || (len(sorted) > 1 && i >= len(sorted)/2) {
			set[p.PhaseNumber] = true
		}
	}
	return set
}

// assignWindows divides bucketDays evenly across the bucket's incomplete
// phases, in order, starting at baseOffset. Completed phases collapse to
// zero-day windows so remaining work starts immediately. The integer
// remainder lands on the last phase.
func assignWindows(windows map[int]window, bucket []models.Phase, bucketDays, baseOffset int) {
	var open []models.Phase
	for _, p := range bucket {
		if p.Completed {
			windows[p.PhaseNumber] = window{startOffset: baseOffset, days: 0}
		} else {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return
	}
	per := bucketDays / len(open)
	offset := baseOffset
	for i, p := range open {
		days := per
		if i == len(open)-1 {
			days = bucketDays - per*(len(open)-1)
		}
		windows[p.PhaseNumber] = window{startOffset: offset, days: days}
		offset += days
	}
}

// Window reports the day range for a phase as offsets from Today.
func (p *Plan) Window(phaseNumber int) (startOffset, days int, ok bool) {
	w, ok := p.windows[phaseNumber]
	return w.startOffset, w.days, ok
}

// DueDate computes the due date for the index-th of count tasks in a
// phase: tasks spread evenly within the phase's day range, a lone task
// lands mid-phase.
func (p *Plan) DueDate(phaseNumber, index, count int) time.Time {
	w, ok := p.windows[phaseNumber]
	if !ok {
		// Unknown phase: fall back to the end of the planned range.
		return p.Today.AddDate(0, 0, p.TotalDays)
	}
	span := w.days - 1
	if span < 0 {
		span = 0
	}
	offset := span / 2
	if count > 1 {
		offset = index * span / (count - 1)
	}
	return p.Today.AddDate(0, 0, w.startOffset+offset)
}

// StartDate derives a start from a due date using the priority lead
// time, clamped so it is never before Today and never after due.
func (p *Plan) StartDate(due time.Time, priority models.TaskPriority) time.Time {
	lead, ok := leadTimes[priority]
	if !ok {
		lead = leadTimes[models.PriorityMedium]
	}
	start := due.AddDate(0, 0, -lead)
	if start.Before(p.Today) {
		start = p.Today
	}
	if start.After(due) {
		start = due
	}
	return start
}

// Plausible reports whether a proposed due date is within the accepted
// window around Today. Implausible dates are recomputed, not trusted.
func (p *Plan) Plausible(d time.Time) bool {
	if d.Before(p.Today.AddDate(0, 0, -maxPastDays)) {
		return false
	}
	if d.After(p.Today.AddDate(0, 0, maxFutureDays)) {
		return false
	}
	return true
}

// RepairDates enforces the date invariants on a candidate: a due date is
// always present and plausible, start is derived when missing, and
// start<=due always holds afterwards. index/count position the task
// within its phase for the offset rule. Returns true when anything was
// repaired.
func (p *Plan) RepairDates(c *models.CandidateTask, index, count int) bool {
	repaired := false

	if c.DueDate == nil || !p.Plausible(*c.DueDate) {
		due := p.DueDate(c.PhaseNumber, index, count)
		c.DueDate = &due
		repaired = true
	}
	if c.StartDate == nil || c.StartDate.After(*c.DueDate) || c.StartDate.Before(p.Today) {
		start := p.StartDate(*c.DueDate, c.Priority)
		c.StartDate = &start
		repaired = true
	}
	return repaired
}
