package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedDemo creates a demo guide with a handful of quests around Delhi.
// Idempotent: does nothing if any guide exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *SQLiteStore) error {
	n, err := store.CountGuides(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("guide-demo"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	guideID, err := store.CreateGuide(ctx, "Demo Guide", "guide@demo.local", string(hash))
	if err != nil {
		return err
	}

	quests := []Quest{
		{
			GuideID:     guideID,
			Title:       "India Gate lawns cleanup",
			Description: "Collect litter from the lawns near the east entrance.",
			Latitude:    28.612894,
			Longitude:   77.229446,
			RadiusM:     150,
			Reward:      100,
			Category:    "park",
			Difficulty:  "easy",
			Active:      true,
		},
		{
			GuideID:     guideID,
			Title:       "Lodhi Garden pond edge",
			Description: "Clear plastic waste along the pond walkway.",
			Latitude:    28.591448,
			Longitude:   77.219450,
			RadiusM:     100,
			Reward:      150,
			Category:    "park",
			Difficulty:  "medium",
			Active:      true,
		},
		{
			GuideID:     guideID,
			Title:       "Yamuna ghat bank sweep",
			Description: "Heavy debris along the river bank. Bring gloves.",
			Latitude:    28.656473,
			Longitude:   77.250770,
			RadiusM:     200,
			Reward:      300,
			Category:    "river",
			Difficulty:  "hard",
			Active:      true,
		},
	}
	for _, q := range quests {
		if _, err := store.CreateQuest(ctx, q); err != nil {
			return err
		}
	}

	logger.Info("demo guide and quests seeded", "guide_id", guideID, "quests", len(quests))
	return nil
}
