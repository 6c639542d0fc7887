package assign

import (
	"testing"

	"github.com/taskforge/taskforge/models"
)

func phases() []models.Phase {
	return []models.Phase{
		{PhaseNumber: 1, PhaseName: "Planning & Research"},
		{PhaseNumber: 2, PhaseName: "Design"},
		{PhaseNumber: 3, PhaseName: "Build"},
		{PhaseNumber: 4, PhaseName: "Testing"},
	}
}

func TestBestAssignee_PhaseCategoryWins(t *testing.T) {
	m := NewMatcher(NewCache())
	members := []models.TeamMember{
		{UserID: "u-eng", Name: "Ada", RoleName: "Backend Engineer"},
		{UserID: "u-pm", Name: "Sam", RoleName: "Product Manager"},
	}

	got := m.BestAssignee("Ship the release", "", 3, phases(), members)
	if got == nil || *got != "u-eng" {
		t.Fatalf("BestAssignee = %v, want u-eng for the build phase", deref(got))
	}
}

func TestBestAssignee_KeywordsInTitle(t *testing.T) {
	m := NewMatcher(NewCache())
	members := []models.TeamMember{
		{UserID: "u-qa", Name: "Kim", RoleName: "QA Analyst"},
		{UserID: "u-biz", Name: "Lee", RoleName: "Sales Lead"},
	}

	// Phase 1 is a product-category phase; neither member matches it, so
	// the keyword bonus decides.
	got := m.BestAssignee("Write regression test suite", "", 1, phases(), members)
	if got == nil || *got != "u-qa" {
		t.Fatalf("BestAssignee = %v, want u-qa for test keywords", deref(got))
	}
}

func TestBestAssignee_LoadBreaksTies(t *testing.T) {
	m := NewMatcher(NewCache())
	members := []models.TeamMember{
		{UserID: "u-busy", Name: "Ada", RoleName: "Engineer", CurrentTaskCount: 9},
		{UserID: "u-free", Name: "Grace", RoleName: "Engineer", CurrentTaskCount: 1},
	}

	got := m.BestAssignee("Implement API endpoint", "", 3, phases(), members)
	if got == nil || *got != "u-free" {
		t.Fatalf("BestAssignee = %v, want the less loaded engineer", deref(got))
	}
}

func TestBestAssignee_OverworkedPenalized(t *testing.T) {
	m := NewMatcher(NewCache())
	members := []models.TeamMember{
		{UserID: "u-over", Name: "Ada", RoleName: "Engineer", IsOverworked: true},
		{UserID: "u-ok", Name: "Grace", RoleName: "Engineer"},
	}

	got := m.BestAssignee("Implement API endpoint", "", 3, phases(), members)
	if got == nil || *got != "u-ok" {
		t.Fatalf("BestAssignee = %v, want the member who is not overworked", deref(got))
	}
}

func TestBestAssignee_NoPositiveScoreReturnsNil(t *testing.T) {
	m := NewMatcher(NewCache())
	members := []models.TeamMember{
		{UserID: "u-1", Name: "Lee", RoleName: "Sales Lead", CurrentTaskCount: 12},
	}

	if got := m.BestAssignee("Refactor the parser", "", 3, phases(), members); got != nil {
		t.Errorf("BestAssignee = %v, want nil when nobody scores above zero", *got)
	}
}

func TestBestAssignee_EmptyRoster(t *testing.T) {
	m := NewMatcher(NewCache())
	if got := m.BestAssignee("Anything", "", 1, phases(), nil); got != nil {
		t.Errorf("BestAssignee = %v, want nil for empty roster", *got)
	}
}

func TestCache_MemoizesPerSignature(t *testing.T) {
	c := NewCache()
	ps := phases()
	c.phaseCategories(ps)
	c.phaseCategories(ps)
	if len(c.m) != 1 {
		t.Errorf("cache entries = %d, want 1 for repeated identical phase lists", len(c.m))
	}

	c.phaseCategories([]models.Phase{{PhaseNumber: 1, PhaseName: "Launch"}})
	if len(c.m) != 2 {
		t.Errorf("cache entries = %d, want 2 after a distinct phase list", len(c.m))
	}
}

func TestClassifyName(t *testing.T) {
	tests := []struct {
		name string
		want Category
		ok   bool
	}{
		{"Senior Backend Engineer", CategoryEngineering, true},
		{"UX Designer", CategoryDesign, true},
		{"QA Analyst", CategoryQA, true},
		{"Product Owner", CategoryProduct, true},
		{"Growth Marketer", CategoryBusiness, true},
		{"Astronaut", "", false},
	}
	for _, tc := range tests {
		got, ok := classifyName(tc.name, roleKeywords)
		if ok != tc.ok || got != tc.want {
			t.Errorf("classifyName(%q) = %q/%v, want %q/%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
