package timeline

import "testing"

func TestParse_OverallDurations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"months", "the project should take 3 months overall", 90},
		{"single month", "1 month", 30},
		{"years", "a 2 year engagement", 730},
		{"weeks", "plan for 2 weeks", 14},
		{"days", "done in 10 days", 10},
		{"month beats weeks", "6 months total, with 2 weeks of setup", 180},
		{"month beats days", "wrap in 45 days, ideally 2 months", 60},
		{"year beats weeks", "1 year with 3 week sprints", 365},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.text, nil)
			if !ok {
				t.Fatalf("Parse(%q) found nothing", tc.text)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestParse_PerPhase(t *testing.T) {
	text := "Phase 1: 2 weeks, Phase 2: 1 month, Phase 3: 10 days"
	got, ok := Parse(text, []int{1, 2, 3})
	if !ok {
		t.Fatal("expected per-phase match")
	}
	want := 14 + 30 + 10
	if got != want {
		t.Errorf("Parse = %d, want %d", got, want)
	}
}

func TestParse_PerPhaseOnlyKnownPhases(t *testing.T) {
	text := "Phase 1: 2 weeks, Phase 9: 4 weeks"
	got, ok := Parse(text, []int{1, 2})
	if !ok {
		t.Fatal("expected match for phase 1")
	}
	if got != 14 {
		t.Errorf("Parse = %d, want 14 (phase 9 is unknown)", got)
	}
}

func TestParse_NoMatch(t *testing.T) {
	for _, text := range []string{"", "kick off as soon as possible", "TBD"} {
		if got, ok := Parse(text, []int{1, 2}); ok {
			t.Errorf("Parse(%q) = %d, expected no match", text, got)
		}
	}
}

func TestParse_OverallWinsOverPerPhase(t *testing.T) {
	// The overall figure takes precedence over per-phase micro-durations.
	text := "3 months total. Phase 1: 1 week."
	got, ok := Parse(text, []int{1})
	if !ok || got != 90 {
		t.Errorf("Parse = %d/%v, want 90/true", got, ok)
	}
}
