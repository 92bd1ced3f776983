package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vaaya/cleanquest/internal/geo"
	"github.com/vaaya/cleanquest/internal/media"
	"github.com/vaaya/cleanquest/internal/scoring"
)

// Decision thresholds over improvement = beforeScore - afterScore.
const (
	verifyThreshold = 0.20
	reviewThreshold = 0.10
)

// Reasons reported to travelers for failed verifications.
const (
	reasonLowConfidence = "needs manual review (low confidence)"
	reasonNoImprovement = "no visible improvement"
)

var (
	ErrQuestNotFound      = errors.New("quest not found")
	ErrQuestInactive      = errors.New("quest is not active")
	ErrNoActiveSubmission = errors.New("no active submission")
)

// OutOfRangeError reports a GPS fix outside the quest geofence. For
// start it means no submission was created; for complete the submission
// stays open so the traveler can retry from a better position.
type OutOfRangeError struct {
	DistanceM float64
	RadiusM   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("out of range: %.1fm from quest (radius %.0fm)", e.DistanceM, e.RadiusM)
}

// StartResult is returned by a successful start.
type StartResult struct {
	SubmissionID string  `json:"submission_id"`
	DistanceM    float64 `json:"distance_m"`
}

// VerificationResult is returned by a completed verification, verified
// or not. Confidence equals the raw improvement and may be negative when
// the after photo scores worse than the before photo; that is diagnostic
// signal and is deliberately not clamped.
type VerificationResult struct {
	Verified       bool    `json:"verified"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason,omitempty"`
	RewardCredited int     `json:"reward_credited"`
}

// Verifier runs the two-phase quest verification protocol: proximity
// gate, photo intake, cleanliness scoring, threshold decision, and
// exactly-once reward issuance.
type Verifier struct {
	store   Store
	media   media.Store
	scorer  scoring.Scorer
	broker  *Broker
	metrics *Metrics
	logger  *slog.Logger
}

func NewVerifier(store Store, m media.Store, scorer scoring.Scorer, broker *Broker, metrics *Metrics, logger *slog.Logger) *Verifier {
	return &Verifier{
		store:   store,
		media:   m,
		scorer:  scorer,
		broker:  broker,
		metrics: metrics,
		logger:  logger,
	}
}

// Start opens a submission for (questID, userID): proximity gate first,
// then a single atomic insert. On any failure no submission exists
// afterwards.
func (v *Verifier) Start(ctx context.Context, questID, userID string, lat, lon float64, beforeImage []byte) (StartResult, error) {
	quest, err := v.store.GetQuest(ctx, questID)
	if errors.Is(err, ErrNotFound) {
		return StartResult{}, ErrQuestNotFound
	}
	if err != nil {
		return StartResult{}, err
	}
	if !quest.Active {
		return StartResult{}, ErrQuestInactive
	}

	distance := geo.DistanceM(lat, lon, quest.Latitude, quest.Longitude)
	if distance > quest.RadiusM {
		return StartResult{}, &OutOfRangeError{DistanceM: distance, RadiusM: quest.RadiusM}
	}

	ref, err := v.media.Save(ctx, beforeImage)
	if err != nil {
		return StartResult{}, fmt.Errorf("saving before image: %w", err)
	}

	sub, err := v.store.StartSubmission(ctx, Submission{
		QuestID:        questID,
		UserID:         userID,
		BeforeImageRef: ref,
		StartLat:       lat,
		StartLon:       lon,
	})
	if err != nil {
		// The insert lost, so the image has no owner.
		if delErr := v.media.Delete(ctx, ref); delErr != nil {
			v.logger.Warn("orphaned before image", "ref", ref, "error", delErr)
		}
		return StartResult{}, err
	}

	v.logger.Info("submission started",
		"submission_id", sub.ID, "quest_id", questID, "user_id", userID,
		"distance_m", distance)
	v.broker.Publish(quest.GuideID, VerificationEvent{
		Type:         "submission_started",
		SubmissionID: sub.ID,
		QuestID:      questID,
	})

	return StartResult{SubmissionID: sub.ID, DistanceM: distance}, nil
}

// Complete closes the open submission for (questID, userID). Proximity
// and scorer failures leave the submission open and retryable; only a
// scored decision moves it to a terminal state, and the reward is
// credited in the same transaction as that transition.
func (v *Verifier) Complete(ctx context.Context, questID, userID string, lat, lon float64, afterImage []byte) (VerificationResult, error) {
	sub, err := v.store.LatestSubmission(ctx, questID, userID)
	if errors.Is(err, ErrNotFound) {
		return VerificationResult{}, ErrNoActiveSubmission
	}
	if err != nil {
		return VerificationResult{}, err
	}
	if sub.State != StateInProgress {
		// Terminal submissions are never re-scored.
		return VerificationResult{}, ErrAlreadyFinished
	}

	quest, err := v.store.GetQuest(ctx, questID)
	if errors.Is(err, ErrNotFound) {
		return VerificationResult{}, ErrQuestNotFound
	}
	if err != nil {
		return VerificationResult{}, err
	}

	// The quest's current radius governs, even if it changed since start.
	distance := geo.DistanceM(lat, lon, quest.Latitude, quest.Longitude)
	if distance > quest.RadiusM {
		return VerificationResult{}, &OutOfRangeError{DistanceM: distance, RadiusM: quest.RadiusM}
	}

	beforeImage, err := v.media.Load(ctx, sub.BeforeImageRef)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("loading before image: %w", err)
	}

	beforeScore, err := v.scorer.Score(scoring.WithPhase(ctx, scoring.PhaseBefore), beforeImage)
	if err != nil {
		v.metrics.ScorerFailures.Inc()
		return VerificationResult{}, err
	}
	afterScore, err := v.scorer.Score(scoring.WithPhase(ctx, scoring.PhaseAfter), afterImage)
	if err != nil {
		v.metrics.ScorerFailures.Inc()
		return VerificationResult{}, err
	}

	improvement := beforeScore - afterScore
	verified, reason := decide(improvement)

	state := StateFailed
	reward := 0
	if verified {
		state = StateVerified
		reward = quest.Reward
	}

	afterRef, err := v.media.Save(ctx, afterImage)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("saving after image: %w", err)
	}

	err = v.store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
		State:         state,
		Confidence:    improvement,
		Reason:        reason,
		AfterImageRef: afterRef,
		CompleteLat:   lat,
		CompleteLon:   lon,
		Reward:        reward,
	})
	if err != nil {
		if delErr := v.media.Delete(ctx, afterRef); delErr != nil {
			v.logger.Warn("orphaned after image", "ref", afterRef, "error", delErr)
		}
		return VerificationResult{}, err
	}

	v.logger.Info("submission finished",
		"submission_id", sub.ID, "quest_id", questID, "user_id", userID,
		"state", state, "confidence", improvement,
		"before_score", beforeScore, "after_score", afterScore)
	v.metrics.Verifications.WithLabelValues(state).Inc()

	eventType := "submission_failed"
	if verified {
		eventType = "submission_verified"
		v.metrics.RewardPoints.Add(float64(reward))
	}
	v.broker.Publish(quest.GuideID, VerificationEvent{
		Type:         eventType,
		SubmissionID: sub.ID,
		QuestID:      questID,
		Confidence:   improvement,
	})

	return VerificationResult{
		Verified:       verified,
		Confidence:     improvement,
		Reason:         reason,
		RewardCredited: reward,
	}, nil
}

// decide applies the confidence-threshold policy to an improvement
// score.
func decide(improvement float64) (verified bool, reason string) {
	switch {
	case improvement >= verifyThreshold:
		return true, ""
	case improvement >= reviewThreshold:
		return false, reasonLowConfidence
	default:
		return false, reasonNoImprovement
	}
}
