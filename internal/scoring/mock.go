package scoring

import (
	"context"
	"log/slog"
)

// MockScorer rates photos by their comparison phase instead of their
// content: before photos score dirty, after photos score clean, so every
// well-formed completion verifies. Stateless, so completions that
// interleave their calls cannot cross-pair. Used when no model sidecar
// is deployed.
type MockScorer struct{}

// NewMockScorer logs loudly that scoring is synthetic so operators are
// not misled about verification rigor.
func NewMockScorer(logger *slog.Logger) *MockScorer {
	logger.Warn("cleanliness scorer running in MOCK mode; verification outcomes are synthetic")
	return &MockScorer{}
}

// Score returns 0.85 for before photos and 0.10 for after photos, read
// from the phase tag on ctx. Each completion therefore sees an
// improvement of 0.75 and verifies.
func (m *MockScorer) Score(ctx context.Context, _ []byte) (float64, error) {
	if PhaseFrom(ctx) == PhaseAfter {
		return 0.10, nil
	}
	return 0.85, nil
}
