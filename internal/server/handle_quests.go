package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vaaya/cleanquest/internal/geo"
)

// QuestWithDistance decorates a quest with the caller's distance when a
// GPS fix was supplied.
type QuestWithDistance struct {
	Quest
	DistanceM *float64 `json:"distance_m,omitempty"`
}

// QuestListResponse is the response for GET /api/quests.
type QuestListResponse struct {
	Quests []QuestWithDistance `json:"quests"`
	Count  int                 `json:"count"`
}

func handleListQuests(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quests, err := store.ListActiveQuests(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]QuestWithDistance, 0, len(quests))
		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
		haveFix := latErr == nil && lonErr == nil

		for _, q := range quests {
			item := QuestWithDistance{Quest: q}
			if haveFix {
				d := geo.DistanceM(lat, lon, q.Latitude, q.Longitude)
				item.DistanceM = &d
			}
			out = append(out, item)
		}

		if haveFix {
			sort.Slice(out, func(i, j int) bool {
				return *out[i].DistanceM < *out[j].DistanceM
			})
		}

		writeJSON(w, http.StatusOK, QuestListResponse{Quests: out, Count: len(out)})
	}
}

func handleGetQuest(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quest, err := store.GetQuest(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, quest)
	}
}

// SubmissionListResponse is the response for submission listings.
type SubmissionListResponse struct {
	Submissions []Submission `json:"submissions"`
	Count       int          `json:"count"`
}

func handleListMySubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := travelerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		subs, err := store.ListSubmissionsByUser(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if subs == nil {
			subs = []Submission{}
		}
		writeJSON(w, http.StatusOK, SubmissionListResponse{Submissions: subs, Count: len(subs)})
	}
}
