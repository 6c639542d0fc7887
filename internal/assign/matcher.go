// Package assign proposes assignees for tasks by matching team-member
// roles against phase categories and task keywords, with workload-aware
// tie-breaking.
package assign

import (
	"strings"
	"sync"

	"github.com/taskforge/taskforge/models"
)

// Category groups roles and phases into broad functional areas.
type Category string

const (
	CategoryEngineering Category = "engineering"
	CategoryDesign      Category = "design"
	CategoryQA          Category = "qa"
	CategoryProduct     Category = "product"
	CategoryBusiness    Category = "business"
)

// roleKeywords maps each category to the words that identify a role as
// belonging to it. Matched against role name and description.
var roleKeywords = map[Category][]string{
	CategoryEngineering: {"engineer", "developer", "programmer", "devops", "backend", "frontend", "fullstack", "sre", "architect"},
	CategoryDesign:      {"design", "ux", "ui", "creative", "visual"},
	CategoryQA:          {"qa", "quality", "test", "sdet"},
	CategoryProduct:     {"product", "pm", "owner", "manager"},
	CategoryBusiness:    {"marketing", "sales", "business", "growth", "finance", "legal"},
}

// taskKeywords maps each category to words that mark a task as that
// category's kind of work. Matched against task title and description.
var taskKeywords = map[Category][]string{
	CategoryEngineering: {"implement", "build", "code", "deploy", "api", "database", "migrate", "refactor", "integrate", "pipeline", "infrastructure", "fix", "debug"},
	CategoryDesign:      {"design", "mockup", "wireframe", "prototype", "logo", "branding", "layout", "style"},
	CategoryQA:          {"test", "verify", "validate", "qa", "regression", "coverage"},
	CategoryProduct:     {"research", "roadmap", "prioritize", "requirements", "spec", "user story", "backlog", "interview"},
	CategoryBusiness:    {"launch", "campaign", "pricing", "outreach", "contract", "pitch", "announce"},
}

// phaseMarkers maps each category to words that identify a phase as
// primarily that category's territory.
var phaseMarkers = map[Category][]string{
	CategoryEngineering: {"build", "develop", "implement", "construction", "engineering", "code"},
	CategoryDesign:      {"design", "prototype", "wireframe", "branding"},
	CategoryQA:          {"test", "qa", "quality", "verification"},
	CategoryProduct:     {"plan", "discovery", "research", "ideation", "definition"},
	CategoryBusiness:    {"launch", "marketing", "growth", "sales"},
}

// categoryOrder fixes iteration order so classification is deterministic
// when a name matches markers from more than one category.
var categoryOrder = []Category{
	CategoryEngineering,
	CategoryDesign,
	CategoryQA,
	CategoryProduct,
	CategoryBusiness,
}

// Cache memoizes the phase-number → category mapping per distinct phase
// list. The mapping is deterministic given phase numbers and names, so
// results are keyed by the ordered phase signature. Construct one per
// engine; tests get a fresh instance per case.
type Cache struct {
	mu sync.Mutex
	m  map[string]map[int]Category
}

// NewCache returns an empty memoization cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]map[int]Category)}
}

// phaseCategories returns the category for each phase number, computing
// and memoizing on first sight of a phase list.
func (c *Cache) phaseCategories(phases []models.Phase) map[int]Category {
	key := models.PhaseSignature(phases)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cats, ok := c.m[key]; ok {
		return cats
	}
	cats := make(map[int]Category, len(phases))
	for _, p := range phases {
		if cat, ok := classifyName(p.PhaseName, phaseMarkers); ok {
			cats[p.PhaseNumber] = cat
		}
	}
	c.m[key] = cats
	return cats
}

// classifyName finds the first category whose markers appear in name.
func classifyName(name string, markers map[Category][]string) (Category, bool) {
	lower := strings.ToLower(name)
	for _, cat := range categoryOrder {
		for _, marker := range markers[cat] {
			if strings.Contains(lower, marker) {
				return cat, true
			}
		}
	}
	return "", false
}

// Matcher scores team members against tasks. Safe for concurrent use.
type Matcher struct {
	cache *Cache
}

// NewMatcher creates a matcher around the given cache. A nil cache gets
// a private one.
func NewMatcher(cache *Cache) *Matcher {
	if cache == nil {
		cache = NewCache()
	}
	return &Matcher{cache: cache}
}

const (
	phaseCategoryBonus = 3.0
	keywordBonus       = 2.0
	loadPenaltyPerTask = 0.1
	overworkedPenalty  = 2.0
)

// BestAssignee returns the user id of the highest-scoring member for
// the task, or nil if nobody scores above zero. Scoring: +3 when the
// member's role category matches the task's phase category, +2 when the
// role's task keywords appear in the title or description, −0.1 per
// open task, −2 when flagged overworked.
func (m *Matcher) BestAssignee(title, description string, phaseNumber int, phases []models.Phase, members []models.TeamMember) *string {
	if len(members) == 0 {
		return nil
	}
	phaseCats := m.cache.phaseCategories(phases)
	phaseCat, phaseKnown := phaseCats[phaseNumber]
	taskText := strings.ToLower(title + " " + description)

	best := 0.0
	var bestID string
	for _, member := range members {
		roleCat, roleKnown := classifyName(member.RoleName+" "+member.RoleDescription, roleKeywords)

		score := 0.0
		if roleKnown && phaseKnown && roleCat == phaseCat {
			score += phaseCategoryBonus
		}
		if roleKnown && textHasKeyword(taskText, taskKeywords[roleCat]) {
			score += keywordBonus
		}
		score -= loadPenaltyPerTask * float64(member.CurrentTaskCount)
		if member.IsOverworked {
			score -= overworkedPenalty
		}

		if score > best {
			best = score
			bestID = member.UserID
		}
	}
	if best <= 0 {
		return nil
	}
	id := bestID
	return &id
}

func textHasKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
