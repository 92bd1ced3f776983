package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaderboardTTL = 30 * time.Second

// LeaderboardResponse ranks travelers by accumulated points.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// handleLeaderboard serves the points ranking. When a redis client is
// configured the ranking is cached briefly; rdb may be nil.
func handleLeaderboard(store Store, rdb *redis.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			limit = n
		}

		cacheKey := fmt.Sprintf("leaderboard:%d", limit)
		if rdb != nil {
			cached, err := rdb.Get(r.Context(), cacheKey).Bytes()
			if err == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write(cached)
				return
			}
			if err != redis.Nil {
				logger.Warn("leaderboard cache read failed", "error", err)
			}
		}

		entries, err := store.TopTravelers(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}

		resp := LeaderboardResponse{Entries: entries}
		if rdb != nil {
			if body, err := json.Marshal(resp); err == nil {
				if err := rdb.Set(r.Context(), cacheKey, body, leaderboardTTL).Err(); err != nil {
					logger.Warn("leaderboard cache write failed", "error", err)
				}
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
