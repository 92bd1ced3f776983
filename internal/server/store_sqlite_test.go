package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vaaya/cleanquest/internal/database"
	"github.com/vaaya/cleanquest/internal/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

func seedQuestAndTraveler(t *testing.T, store *SQLiteStore) (Quest, string) {
	t.Helper()
	ctx := context.Background()

	guideID, err := store.CreateGuide(ctx, "Guide", t.Name()+"@test.local", "x")
	if err != nil {
		t.Fatalf("create guide: %v", err)
	}
	quest, err := store.CreateQuest(ctx, Quest{
		GuideID:   guideID,
		Title:     "Cleanup",
		Latitude:  questLat,
		Longitude: questLon,
		RadiusM:   100,
		Reward:    100,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create quest: %v", err)
	}
	userID, _, err := store.RegisterTraveler(ctx, "Traveler")
	if err != nil {
		t.Fatalf("register traveler: %v", err)
	}
	return quest, userID
}

func openSubmission(t *testing.T, store *SQLiteStore, questID, userID string) Submission {
	t.Helper()
	sub, err := store.StartSubmission(context.Background(), Submission{
		QuestID:        questID,
		UserID:         userID,
		BeforeImageRef: "before-ref",
		StartLat:       questLat,
		StartLon:       questLon,
	})
	if err != nil {
		t.Fatalf("start submission: %v", err)
	}
	return sub
}

func TestConcurrentStartsOneWins(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)

	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = store.StartSubmission(ctx, Submission{
				QuestID:        quest.ID,
				UserID:         userID,
				BeforeImageRef: "before-ref",
				StartLat:       questLat,
				StartLon:       questLon,
			})
		}()
	}
	wg.Wait()

	var wins, duplicates int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrDuplicateSubmission):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winning start, got %d", wins)
	}
	if duplicates != racers-1 {
		t.Errorf("expected %d duplicate rejections, got %d", racers-1, duplicates)
	}
}

func TestConcurrentFinishesCreditOnce(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	sub := openSubmission(t, store, quest.ID, userID)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)

	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
				State:         StateVerified,
				Confidence:    0.25,
				AfterImageRef: "after-ref",
				CompleteLat:   questLat,
				CompleteLon:   questLon,
				Reward:        quest.Reward,
			})
		}()
	}
	wg.Wait()

	var wins, finished int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyFinished):
			finished++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winning finish, got %d", wins)
	}

	profile, err := store.TravelerProfile(ctx, userID)
	if err != nil {
		t.Fatalf("traveler profile: %v", err)
	}
	if profile.Points != quest.Reward {
		t.Errorf("expected %d points credited exactly once, got %d", quest.Reward, profile.Points)
	}
	if profile.CompletedQuests != 1 {
		t.Errorf("expected 1 completed quest, got %d", profile.CompletedQuests)
	}

	updated, err := store.GetQuest(ctx, quest.ID)
	if err != nil {
		t.Fatalf("get quest: %v", err)
	}
	if updated.Completions != 1 {
		t.Errorf("expected quest completions 1, got %d", updated.Completions)
	}
}

func TestFinishFailedCreditsNothing(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	sub := openSubmission(t, store, quest.ID, userID)
	ctx := context.Background()

	err := store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
		State:         StateFailed,
		Confidence:    0.05,
		Reason:        reasonNoImprovement,
		AfterImageRef: "after-ref",
		CompleteLat:   questLat,
		CompleteLon:   questLon,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	profile, err := store.TravelerProfile(ctx, userID)
	if err != nil {
		t.Fatalf("traveler profile: %v", err)
	}
	if profile.Points != 0 || profile.CompletedQuests != 0 {
		t.Errorf("expected no credit for failed submission, got %d points, %d completions",
			profile.Points, profile.CompletedQuests)
	}
}

func TestFinishPersistsNegativeConfidence(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	sub := openSubmission(t, store, quest.ID, userID)
	ctx := context.Background()

	err := store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
		State:         StateFailed,
		Confidence:    -0.4,
		Reason:        reasonNoImprovement,
		AfterImageRef: "after-ref",
		CompleteLat:   questLat,
		CompleteLon:   questLon,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := store.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if got.Confidence == nil || *got.Confidence != -0.4 {
		t.Errorf("expected confidence -0.4 preserved, got %v", got.Confidence)
	}
}

func TestFinishUnknownSubmission(t *testing.T) {
	store := newTestStore(t)

	err := store.FinishSubmission(context.Background(), "no-such-id", SubmissionOutcome{
		State: StateFailed,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStartAfterTerminalAllowed(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	sub := openSubmission(t, store, quest.ID, userID)
	ctx := context.Background()

	err := store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
		State:         StateFailed,
		Reason:        reasonNoImprovement,
		AfterImageRef: "after-ref",
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	// The partial unique index only covers open submissions, so a fresh
	// attempt at the same quest is allowed.
	again := openSubmission(t, store, quest.ID, userID)
	if again.ID == sub.ID {
		t.Error("expected a new submission id")
	}

	latest, err := store.LatestSubmission(ctx, quest.ID, userID)
	if err != nil {
		t.Fatalf("latest submission: %v", err)
	}
	if latest.ID != again.ID {
		t.Errorf("expected latest to be the new attempt, got %s", latest.ID)
	}
}

func TestDeleteQuestWithSubmissionsBlocked(t *testing.T) {
	store := newTestStore(t)
	quest, userID := seedQuestAndTraveler(t, store)
	openSubmission(t, store, quest.ID, userID)
	ctx := context.Background()

	err := store.DeleteQuest(ctx, quest.ID, quest.GuideID)
	if !errors.Is(err, ErrQuestReferenced) {
		t.Fatalf("expected ErrQuestReferenced, got %v", err)
	}

	// Deactivation remains available.
	if err := store.SetQuestActive(ctx, quest.ID, quest.GuideID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
}

func TestTopTravelersOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	guideID, err := store.CreateGuide(ctx, "Guide", "board@test.local", "x")
	if err != nil {
		t.Fatalf("create guide: %v", err)
	}

	points := map[string]int{"Low": 50, "High": 300, "Mid": 150, "Zero": 0}
	for name, pts := range points {
		userID, _, err := store.RegisterTraveler(ctx, name)
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		if pts == 0 {
			continue
		}
		quest, err := store.CreateQuest(ctx, Quest{
			GuideID: guideID, Title: "Q " + name, Latitude: questLat,
			Longitude: questLon, RadiusM: 100, Reward: pts, Active: true,
		})
		if err != nil {
			t.Fatalf("create quest: %v", err)
		}
		sub := openSubmission(t, store, quest.ID, userID)
		err = store.FinishSubmission(ctx, sub.ID, SubmissionOutcome{
			State: StateVerified, Confidence: 0.3, AfterImageRef: "ref",
			Reward: pts,
		})
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
	}

	entries, err := store.TopTravelers(ctx, 10)
	if err != nil {
		t.Fatalf("top travelers: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ranked travelers (zero-point hidden), got %d", len(entries))
	}
	if entries[0].Name != "High" || entries[1].Name != "Mid" || entries[2].Name != "Low" {
		t.Errorf("unexpected order: %s, %s, %s",
			entries[0].Name, entries[1].Name, entries[2].Name)
	}
}
