// Package scoring estimates how cluttered a site photo looks. The
// verification pipeline compares the score of a "before" photo with the
// score of an "after" photo; the drop between the two is the signal that
// a cleanup actually happened.
package scoring

import "context"

// Scorer rates a single image's trashiness in [0, 1]; higher means more
// cluttered. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, image []byte) (float64, error)
}

// Phase is the side of the before/after comparison an image belongs to.
// The pipeline tags every Score call with it, so scorers that synthesize
// results can pair the two sides correctly even when concurrent
// completions interleave their calls.
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseAfter
)

type phaseKey struct{}

// WithPhase marks ctx with the comparison side of the image being scored.
func WithPhase(ctx context.Context, p Phase) context.Context {
	return context.WithValue(ctx, phaseKey{}, p)
}

// PhaseFrom reports the phase tagged on ctx. Untagged contexts count as
// PhaseBefore.
func PhaseFrom(ctx context.Context) Phase {
	if p, ok := ctx.Value(phaseKey{}).(Phase); ok {
		return p
	}
	return PhaseBefore
}
