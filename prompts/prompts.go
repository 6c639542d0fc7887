// Package prompts holds the templates and builders for every
// generative-text call the engine makes.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taskforge/taskforge/models"
)

// MaxExistingTitles caps how many existing task titles are included in a
// generation prompt to discourage near-duplicates without blowing up
// token volume.
const MaxExistingTitles = 12

// RosterEntry is one abbreviated team member line for the prompt. Alias
// is a short id (m1, m2, ...) expanded back to the real user id after
// parsing.
type RosterEntry struct {
	Alias        string
	Name         string
	RoleName     string
	TaskCount    int
	IsOverworked bool
}

// Input carries everything a generation prompt needs.
type Input struct {
	ProjectName    string
	Phases         []models.Phase
	ExistingTitles []string
	Roster         []RosterEntry
	TimelineRules  string
}

// analysisSystemPrompt frames the project-analysis generation call.
const analysisSystemPrompt = `<instructions>
You are an expert project manager AI. Your job is to turn a project's phase
content into a structured, actionable task plan.
</instructions>

<rules>
- Every task must name the phase it belongs to via "phaseNumber".
- Use priorities "low", "medium", "high" or "critical"; default to "medium" when ambiguous.
- Dates are "YYYY-MM-DD" strings. Follow the timeline rules given below; omit a date rather than guessing wildly.
- Do NOT recreate tasks that already exist (a list of existing titles follows).
- Assign tasks with the "assigneeId" field using ONLY the roster aliases given below, or omit it.
- Your entire response MUST be a single valid JSON object. No prose, no markdown fences.
</rules>

<output_format>
{
  "tasks": [
    {
      "title": "Example task",
      "description": "What needs to be done and why.",
      "phaseNumber": 1,
      "priority": "high",
      "assigneeId": "m1",
      "startDate": "2026-09-01",
      "dueDate": "2026-09-05",
      "estimatedHours": 8,
      "tags": ["backend"]
    }
  ],
  "summary": "One-paragraph plan summary.",
  "nextSteps": ["First concrete step."],
  "blockers": ["Anything blocking progress."],
  "estimates": {"Phase 1": "2 weeks"}
}
</output_format>`

// freeTextSystemPrompt frames the free-text generation call.
const freeTextSystemPrompt = `<instructions>
You are an expert project manager AI. The user will describe work in free
text; extract concrete, actionable tasks scoped to the project's phases.
</instructions>

<rules>
- Only create tasks the user's text actually asks for; do not pad the list.
- Use priorities "low", "medium", "high" or "critical".
- Dates are "YYYY-MM-DD" strings; omit rather than invent.
- Do NOT recreate tasks that already exist (a list of existing titles follows).
- Your entire response MUST be a single valid JSON object with keys "tasks" and "summary". No prose, no markdown fences.
</rules>`

// Analysis builds the full project-analysis prompt.
func Analysis(in Input) string {
	var b strings.Builder
	b.WriteString(analysisSystemPrompt)
	b.WriteString("\n\n")
	writeContext(&b, in)
	return b.String()
}

// FreeText builds the prompt for generation from user-supplied text.
func FreeText(freeText string, in Input) string {
	var b strings.Builder
	b.WriteString(freeTextSystemPrompt)
	b.WriteString("\n\n<user_request>\n")
	b.WriteString(freeText)
	b.WriteString("\n</user_request>\n\n")
	writeContext(&b, in)
	return b.String()
}

// writeContext renders the shared project context: phase inventory,
// existing titles, roster, timeline rules.
func writeContext(b *strings.Builder, in Input) {
	fmt.Fprintf(b, "<project>\nName: %s\n</project>\n\n", in.ProjectName)

	b.WriteString("<phases>\n")
	for _, p := range models.SortPhases(in.Phases) {
		status := "open"
		if p.Completed {
			status = "completed"
		}
		fmt.Fprintf(b, "Phase %d: %s (%s)", p.PhaseNumber, p.PhaseName, status)
		if keys := fieldInventory(p); keys != "" {
			fmt.Fprintf(b, " — fields: %s", keys)
		}
		b.WriteString("\n")
	}
	b.WriteString("</phases>\n\n")

	if len(in.ExistingTitles) > 0 {
		b.WriteString("<existing_tasks>\nDo not duplicate these:\n")
		titles := in.ExistingTitles
		if len(titles) > MaxExistingTitles {
			titles = titles[:MaxExistingTitles]
		}
		for _, t := range titles {
			fmt.Fprintf(b, "- %s\n", t)
		}
		b.WriteString("</existing_tasks>\n\n")
	}

	if len(in.Roster) > 0 {
		b.WriteString("<team>\nAliases for assigneeId:\n")
		for _, m := range in.Roster {
			load := fmt.Sprintf("%d open tasks", m.TaskCount)
			if m.IsOverworked {
				load += ", overworked"
			}
			fmt.Fprintf(b, "- %s: %s, %s (%s)\n", m.Alias, m.Name, m.RoleName, load)
		}
		b.WriteString("</team>\n\n")
	}

	if in.TimelineRules != "" {
		fmt.Fprintf(b, "<timeline>\n%s\n</timeline>\n", in.TimelineRules)
	}
}

// fieldInventory lists a phase's field keys (not values) to keep the
// prompt compact.
func fieldInventory(p models.Phase) string {
	if len(p.Data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p.Data))
	for k := range p.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// SemanticSimilarity builds the duplicate-judgment prompt for two tasks,
// with an explicit scoring rubric. The response must be a bare float.
func SemanticSimilarity(titleA, descA, titleB, descB string) string {
	return fmt.Sprintf(`<instructions>
You judge whether two project tasks describe the same piece of work.
</instructions>

<task_a>
Title: %s
Description: %s
</task_a>

<task_b>
Title: %s
Description: %s
</task_b>

<rubric>
Respond with a single number between 0.0 and 1.0:
- 1.0: the tasks are duplicates of each other
- 0.9-0.99: almost certainly the same work, phrased differently
- 0.7-0.89: closely related, likely overlapping work
- 0.5-0.69: some relation but distinct deliverables
- below 0.5: different work
</rubric>

Respond with the number only. No explanation.`, titleA, descA, titleB, descB)
}
