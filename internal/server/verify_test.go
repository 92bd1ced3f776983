package server

import "testing"

func TestDecideThresholds(t *testing.T) {
	tests := []struct {
		improvement float64
		verified    bool
		reason      string
	}{
		{0.25, true, ""},
		{0.20, true, ""},
		{0.1999, false, reasonLowConfidence},
		{0.15, false, reasonLowConfidence},
		{0.10, false, reasonLowConfidence},
		{0.0999, false, reasonNoImprovement},
		{0.05, false, reasonNoImprovement},
		{0.0, false, reasonNoImprovement},
		{-0.40, false, reasonNoImprovement},
	}

	for _, tt := range tests {
		verified, reason := decide(tt.improvement)
		if verified != tt.verified || reason != tt.reason {
			t.Errorf("decide(%v) = (%v, %q), want (%v, %q)",
				tt.improvement, verified, reason, tt.verified, tt.reason)
		}
	}
}
