package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/vaaya/cleanquest/internal/media"
	"github.com/vaaya/cleanquest/internal/scoring"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store Store,
	mediaStore media.Store, scorer scoring.Scorer, rdb *redis.Client, metrics *Metrics) {

	broker := NewBroker()
	verifier := NewVerifier(store, mediaStore, scorer, broker, metrics, logger)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("CleanQuest API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))
	r.Method("GET", "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Traveler routes — Bearer token auth.
	r.Post("/api/register", handleRegister(store))
	r.Get("/api/me", handleMe(store))
	r.Get("/api/quests", handleListQuests(store))
	r.Get("/api/quests/{id}", handleGetQuest(store))
	r.Post("/api/quests/{id}/start", handleQuestStart(verifier, store))
	r.Post("/api/quests/{id}/complete", handleQuestComplete(verifier, store))
	r.Get("/api/submissions", handleListMySubmissions(store))
	r.Get("/api/leaderboard", handleLeaderboard(store, rdb, logger))

	// Guide routes — guide_session cookie auth.
	r.Post("/api/guide/login", handleGuideLogin(store))
	r.Post("/api/guide/logout", handleGuideLogout(store))
	r.Get("/api/guide/me", handleGuideMe(store))
	r.Get("/api/guide/quests", handleGuideListQuests(store))
	r.Post("/api/guide/quests", handleGuideCreateQuest(store))
	r.Put("/api/guide/quests/{id}", handleGuideUpdateQuest(store))
	r.Post("/api/guide/quests/{id}/active", handleGuideSetQuestActive(store))
	r.Delete("/api/guide/quests/{id}", handleGuideDeleteQuest(store))
	r.Get("/api/guide/submissions", handleGuideListSubmissions(store))
	r.Get("/api/guide/media/{ref}", handleGuideMedia(store, mediaStore))
	r.Get("/api/guide/events", handleEvents(store, broker))
}
