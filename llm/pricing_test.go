package llm

import (
	"math"
	"testing"
)

func TestCalculateCost(t *testing.T) {
	// gpt-4o-mini: $0.15/1M input, $0.60/1M output.
	got := CalculateCost("gpt-4o-mini", 1_000_000, 500_000)
	want := 0.15 + 0.30
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CalculateCost = %v, want %v", got, want)
	}
}

func TestCalculateCost_UnknownModel(t *testing.T) {
	if got := CalculateCost("totally-unknown", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %v, want 0", got)
	}
}

func TestGetPricing(t *testing.T) {
	if GetPricing("claude-haiku-4.5") == nil {
		t.Error("expected pricing for claude-haiku-4.5")
	}
	if GetPricing("nope") != nil {
		t.Error("expected nil for unknown model")
	}
}
