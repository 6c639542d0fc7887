// Package engine orchestrates generation: prompt assembly, the
// generative-service call with in-flight deduplication, response
// repair, date repair, assignee resolution, and usage accounting.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/taskforge/taskforge/internal/assign"
	"github.com/taskforge/taskforge/internal/reconcile"
	"github.com/taskforge/taskforge/internal/schedule"
	"github.com/taskforge/taskforge/internal/similarity"
	"github.com/taskforge/taskforge/internal/telemetry"
	"github.com/taskforge/taskforge/internal/timeline"
	"github.com/taskforge/taskforge/internal/utils"
	"github.com/taskforge/taskforge/llm"
	"github.com/taskforge/taskforge/models"
	"github.com/taskforge/taskforge/prompts"
	"github.com/taskforge/taskforge/types"
)

// Request is the immutable project snapshot a generation call works on.
// The engine never mutates it; results are always new descriptors for
// the caller to persist.
type Request struct {
	ProjectName   string
	Phases        []models.Phase
	ExistingTasks []models.Task
	Roster        []models.TeamMember
}

// UsageTotals aggregates token consumption and its dollar cost for one
// engine operation.
type UsageTotals struct {
	Usage types.Usage
	Model string
	Cost  float64
}

// AnalysisResult is the outcome of a full project analysis.
type AnalysisResult struct {
	Tasks     []models.CandidateTask
	Summary   string
	NextSteps []string
	Blockers  []string
	Estimates map[string]string
	Usage     UsageTotals
}

// GenerationResult is the outcome of free-text task generation.
type GenerationResult struct {
	Tasks   []models.CandidateTask
	Summary string
	Usage   UsageTotals
}

// Engine wires the generation pipeline together. Safe for concurrent
// use; identical in-flight requests share one service call.
type Engine struct {
	provider  llm.Provider
	sim       *similarity.Engine
	matcher   *assign.Matcher
	telemetry telemetry.Client
	opts      types.GenerateOptions
	now       func() time.Time
	flight    singleflight.Group
}

// Option customizes an Engine.
type Option func(*Engine)

// WithGenerateOptions sets the per-call service tuning.
func WithGenerateOptions(opts types.GenerateOptions) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithTelemetry attaches a telemetry client.
func WithTelemetry(c telemetry.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.telemetry = c
		}
	}
}

// WithClock overrides the time source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine around the given provider.
func New(provider llm.Provider, options ...Option) *Engine {
	e := &Engine{
		provider:  provider,
		telemetry: telemetry.NoopClient{},
		now:       time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	e.sim = similarity.NewEngine(provider, e.opts)
	e.matcher = assign.NewMatcher(assign.NewCache())
	return e
}

// AnalyzeProject turns the project's phase content into a structured
// task plan. A malformed service response surfaces as a ParseError and
// is never retried automatically.
func (e *Engine) AnalyzeProject(ctx context.Context, req Request) (*AnalysisResult, error) {
	if e.provider == nil {
		return nil, &types.ConfigurationError{Field: "provider", Message: "no generation provider configured"}
	}

	plan := e.buildPlan(req, nil)
	entries, aliases := rosterEntries(req.Roster)
	prompt := prompts.Analysis(prompts.Input{
		ProjectName:    req.ProjectName,
		Phases:         req.Phases,
		ExistingTitles: openTitles(req.ExistingTasks),
		Roster:         entries,
		TimelineRules:  timelineRules(&plan, req.Phases),
	})

	res, err := e.generate(ctx, prompt, req.ProjectName)
	if err != nil {
		e.telemetry.Track(telemetry.EventGenerationFailed, telemetry.Properties{"operation": "analyze"})
		return nil, err
	}
	env, err := utils.ExtractAndParseJSON[types.GenerationEnvelope](res.Text)
	if err != nil {
		e.telemetry.Track(telemetry.EventGenerationFailed, telemetry.Properties{"operation": "analyze", "parse": true})
		return nil, types.NewParseError(res.Text, err)
	}

	tasks := e.toCandidates(env.Tasks, req, &plan, aliases)
	usage := e.usageTotals(res)
	e.trackGenerated("analyze", len(tasks), usage)

	return &AnalysisResult{
		Tasks:     tasks,
		Summary:   env.Summary,
		NextSteps: env.NextSteps,
		Blockers:  env.Blockers,
		Estimates: env.Estimates,
		Usage:     usage,
	}, nil
}

// GenerateTasksFromPrompt extracts tasks from free text. Timeline
// extraction from the text and the generation call are independent
// reads and run concurrently.
func (e *Engine) GenerateTasksFromPrompt(ctx context.Context, freeText string, req Request) (*GenerationResult, error) {
	if e.provider == nil {
		return nil, &types.ConfigurationError{Field: "provider", Message: "no generation provider configured"}
	}

	basePlan := e.buildPlan(req, nil)
	entries, aliases := rosterEntries(req.Roster)
	prompt := prompts.FreeText(freeText, prompts.Input{
		ProjectName:    req.ProjectName,
		Phases:         req.Phases,
		ExistingTitles: openTitles(req.ExistingTasks),
		Roster:         entries,
		TimelineRules:  timelineRules(&basePlan, req.Phases),
	})

	var (
		freeDays *int
		res      *types.GenerateResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if d, ok := timeline.Parse(freeText, phaseNumbers(req.Phases)); ok {
			freeDays = &d
		}
		return nil
	})
	g.Go(func() error {
		r, err := e.generate(gctx, prompt, req.ProjectName)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err := g.Wait(); err != nil {
		e.telemetry.Track(telemetry.EventGenerationFailed, telemetry.Properties{"operation": "generate"})
		return nil, err
	}

	env, err := utils.ExtractAndParseJSON[types.GenerationEnvelope](res.Text)
	if err != nil {
		e.telemetry.Track(telemetry.EventGenerationFailed, telemetry.Properties{"operation": "generate", "parse": true})
		return nil, types.NewParseError(res.Text, err)
	}

	// The duration mentioned in the user's text refines the plan used
	// for date repair, not the prompt already sent.
	plan := e.buildPlan(req, freeDays)
	tasks := e.toCandidates(env.Tasks, req, &plan, aliases)
	usage := e.usageTotals(res)
	e.trackGenerated("generate", len(tasks), usage)

	return &GenerationResult{Tasks: tasks, Summary: env.Summary, Usage: usage}, nil
}

// DetectDuplicates classifies candidates against the existing task set
// using the two-stage similarity pipeline.
func (e *Engine) DetectDuplicates(ctx context.Context, candidates []models.CandidateTask, existing []models.Task) ([]models.CandidateTask, error) {
	out := e.sim.DetectDuplicates(ctx, candidates, existing)
	dupes := 0
	for _, c := range out {
		if c.DuplicateStatus != models.DuplicateUnique {
			dupes++
		}
	}
	e.telemetry.Track(telemetry.EventDuplicatesDetected, telemetry.Properties{
		"candidates": len(out),
		"duplicates": dupes,
	})
	return out, nil
}

// MergeTasks reconciles a generated batch into the existing task set.
func (e *Engine) MergeTasks(existing []models.Task, generated []models.CandidateTask) reconcile.Plan {
	plan := reconcile.Merge(existing, generated, e.now())
	e.telemetry.Track(telemetry.EventTasksMerged, telemetry.Properties{
		"updates":  len(plan.ToUpdate),
		"inserts":  len(plan.ToInsert),
		"archives": len(plan.ToArchive),
	})
	return plan
}

// generate performs one service call with at-most-one-concurrent-call
// deduplication per content fingerprint. A second identical call while
// the first is in flight joins it instead of hitting the service again.
func (e *Engine) generate(ctx context.Context, prompt, project string) (*types.GenerateResult, error) {
	opts := e.opts
	opts.JSONOnly = true
	key := fingerprint(prompt, opts, project)
	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		return e.provider.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.GenerateResult), nil
}

// fingerprint keys a request by prompt text, options and project name.
func fingerprint(prompt string, opts types.GenerateOptions, project string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%g|%t|%s", prompt, opts.Model, opts.MaxTokens, opts.Temperature, opts.JSONOnly, project)
	return hex.EncodeToString(h.Sum(nil))
}

// buildPlan parses each bucket's phase text for durations and builds
// the calendar plan. freeTextDays, when present, stands in for an
// unparsable planning duration.
func (e *Engine) buildPlan(req Request, freeTextDays *int) schedule.Plan {
	planning, build := schedule.Buckets(req.Phases)

	var planningDays, buildDays *int
	if d, ok := timeline.Parse(bucketText(planning), phaseNumbers(planning)); ok {
		planningDays = &d
	}
	if d, ok := timeline.Parse(bucketText(build), phaseNumbers(build)); ok {
		buildDays = &d
	}
	if planningDays == nil && freeTextDays != nil {
		planningDays = freeTextDays
	}

	return schedule.BuildPlan(req.Phases, req.ExistingTasks, planningDays, buildDays, e.today())
}

// today returns the current date at UTC midnight; all plan offsets are
// whole days.
func (e *Engine) today() time.Time {
	now := e.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// toCandidates converts the wire tasks into repaired candidates:
// priority normalization, date parsing and repair, alias expansion and
// assignee matching.
func (e *Engine) toCandidates(gen []types.GeneratedTask, req Request, plan *schedule.Plan, aliases map[string]string) []models.CandidateTask {
	counts := make(map[int]int, len(gen))
	for _, g := range gen {
		counts[g.PhaseNumber]++
	}

	rosterIDs := make(map[string]bool, len(req.Roster))
	for _, m := range req.Roster {
		rosterIDs[m.UserID] = true
	}

	indexInPhase := make(map[int]int, len(counts))
	out := make([]models.CandidateTask, 0, len(gen))
	for _, g := range gen {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			continue
		}
		c := models.CandidateTask{
			Title:       title,
			Description: strings.TrimSpace(g.Description),
			PhaseNumber: g.PhaseNumber,
			Priority:    parsePriority(g.Priority),
			Tags:        g.Tags,
			StartDate:   parseDate(g.StartDate),
			DueDate:     parseDate(g.DueDate),
		}
		if g.EstimatedHours > 0 {
			hours := g.EstimatedHours
			c.EstimatedHours = &hours
		}

		switch {
		case aliases[g.AssigneeID] != "":
			id := aliases[g.AssigneeID]
			c.AssigneeID = &id
		case rosterIDs[g.AssigneeID]:
			id := g.AssigneeID
			c.AssigneeID = &id
		}
		if c.AssigneeID == nil {
			c.AssigneeID = e.matcher.BestAssignee(c.Title, c.Description, c.PhaseNumber, req.Phases, req.Roster)
		}

		idx := indexInPhase[g.PhaseNumber]
		indexInPhase[g.PhaseNumber]++
		plan.RepairDates(&c, idx, counts[g.PhaseNumber])

		out = append(out, c)
	}
	return out
}

func (e *Engine) usageTotals(res *types.GenerateResult) UsageTotals {
	totals := UsageTotals{Model: res.Model}
	if totals.Model == "" {
		totals.Model = e.opts.Model
	}
	if res.Usage != nil {
		totals.Usage = *res.Usage
		totals.Cost = llm.CalculateCost(totals.Model, totals.Usage.InputTokens, totals.Usage.OutputTokens)
	}
	return totals
}

func (e *Engine) trackGenerated(operation string, taskCount int, usage UsageTotals) {
	e.telemetry.Track(telemetry.EventTasksGenerated, telemetry.Properties{
		"operation":     operation,
		"task_count":    taskCount,
		"model":         usage.Model,
		"input_tokens":  usage.Usage.InputTokens,
		"output_tokens": usage.Usage.OutputTokens,
		"cost_usd":      usage.Cost,
	})
}

// rosterEntries abbreviates members to m1, m2, ... aliases for the
// prompt and returns the alias → user id expansion map.
func rosterEntries(roster []models.TeamMember) ([]prompts.RosterEntry, map[string]string) {
	entries := make([]prompts.RosterEntry, 0, len(roster))
	aliases := make(map[string]string, len(roster))
	for i, m := range roster {
		alias := fmt.Sprintf("m%d", i+1)
		aliases[alias] = m.UserID
		entries = append(entries, prompts.RosterEntry{
			Alias:        alias,
			Name:         m.Name,
			RoleName:     m.RoleName,
			TaskCount:    m.CurrentTaskCount,
			IsOverworked: m.IsOverworked,
		})
	}
	return entries, aliases
}

// openTitles lists the titles of unarchived existing tasks.
func openTitles(tasks []models.Task) []string {
	var titles []string
	for _, t := range tasks {
		if t.Status == models.StatusArchived {
			continue
		}
		titles = append(titles, t.Title)
	}
	return titles
}

// phaseNumbers extracts the phase numbers in order.
func phaseNumbers(phases []models.Phase) []int {
	nums := make([]int, 0, len(phases))
	for _, p := range models.SortPhases(phases) {
		nums = append(nums, p.PhaseNumber)
	}
	return nums
}

// bucketText concatenates a bucket's names and string field values into
// one searchable blob for the timeline parser.
func bucketText(phases []models.Phase) string {
	var b strings.Builder
	for _, p := range phases {
		b.WriteString(p.PhaseName)
		b.WriteString("\n")
		keys := make([]string, 0, len(p.Data))
		for k := range p.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := p.Data[k].(string); ok {
				b.WriteString(s)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// timelineRules renders the computed plan as prose date constraints for
// the prompt.
func timelineRules(plan *schedule.Plan, phases []models.Phase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s.\n", plan.Today.Format("2006-01-02"))
	for _, p := range models.SortPhases(phases) {
		start, days, ok := plan.Window(p.PhaseNumber)
		if !ok {
			continue
		}
		if p.Completed {
			fmt.Fprintf(&b, "Phase %d (%s) is complete; do not schedule work in it.\n", p.PhaseNumber, p.PhaseName)
			continue
		}
		if days == 0 {
			fmt.Fprintf(&b, "Phase %d (%s) has no scheduled duration; omit dates for its tasks.\n", p.PhaseNumber, p.PhaseName)
			continue
		}
		from := plan.Today.AddDate(0, 0, start)
		to := plan.Today.AddDate(0, 0, start+days-1)
		fmt.Fprintf(&b, "Phase %d (%s) runs %s to %s.\n",
			p.PhaseNumber, p.PhaseName, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	b.WriteString("Every startDate and dueDate must fall inside its phase's range.")
	return b.String()
}

// parsePriority normalizes a wire priority; anything unrecognized
// defaults to medium.
func parsePriority(s string) models.TaskPriority {
	switch models.TaskPriority(strings.ToLower(strings.TrimSpace(s))) {
	case models.PriorityLow:
		return models.PriorityLow
	case models.PriorityHigh:
		return models.PriorityHigh
	case models.PriorityCritical:
		return models.PriorityCritical
	default:
		return models.PriorityMedium
	}
}

// parseDate parses a YYYY-MM-DD wire date, nil when absent or invalid.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
