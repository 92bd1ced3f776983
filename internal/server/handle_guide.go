package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vaaya/cleanquest/internal/media"
)

// QuestRequest is the guide-side create/update payload.
type QuestRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusM     float64 `json:"radius_m"`
	Reward      int     `json:"reward"`
	Category    string  `json:"category"`
	Difficulty  string  `json:"difficulty"`
}

func (req *QuestRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return "coordinates out of bounds"
	}
	if req.RadiusM == 0 {
		req.RadiusM = 100
	}
	if req.RadiusM < 0 {
		return "radius_m must be positive"
	}
	if req.Reward < 10 || req.Reward > 1000 {
		return "reward must be between 10 and 1000"
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	return ""
}

func handleGuideCreateQuest(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		var req QuestRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		quest, err := store.CreateQuest(r.Context(), Quest{
			GuideID:     sess.GuideID,
			Title:       req.Title,
			Description: req.Description,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			RadiusM:     req.RadiusM,
			Reward:      req.Reward,
			Category:    req.Category,
			Difficulty:  req.Difficulty,
			Active:      true,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, quest)
	}
}

func handleGuideListQuests(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		quests, err := store.ListQuestsByGuide(r.Context(), sess.GuideID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if quests == nil {
			quests = []Quest{}
		}
		writeJSON(w, http.StatusOK, quests)
	}
}

func handleGuideUpdateQuest(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		var req QuestRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		quest, err := store.UpdateQuest(r.Context(), chi.URLParam(r, "id"), sess.GuideID, QuestUpdate{
			Title:       req.Title,
			Description: req.Description,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			RadiusM:     req.RadiusM,
			Reward:      req.Reward,
			Category:    req.Category,
			Difficulty:  req.Difficulty,
		})
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

// QuestActiveRequest toggles whether a quest accepts new submissions.
type QuestActiveRequest struct {
	Active bool `json:"active"`
}

func handleGuideSetQuestActive(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		var req QuestActiveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err = store.SetQuestActive(r.Context(), chi.URLParam(r, "id"), sess.GuideID, req.Active)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGuideDeleteQuest(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		err = store.DeleteQuest(r.Context(), chi.URLParam(r, "id"), sess.GuideID)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "quest not found")
		case errors.Is(err, ErrQuestReferenced):
			writeError(w, http.StatusConflict, "quest has submissions; deactivate it instead")
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func handleGuideListSubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guideFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		state := r.URL.Query().Get("state")
		switch state {
		case "", StateInProgress, StateVerified, StateFailed:
		default:
			writeError(w, http.StatusBadRequest, "invalid state filter")
			return
		}

		subs, err := store.ListSubmissionsByGuide(r.Context(), sess.GuideID, state)
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

// handleGuideMedia serves stored evidence photos for review. Refs are
// opaque uuids; only guides can fetch them.
func handleGuideMedia(store Store, mediaStore media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := guideFromRequest(r, store); err != nil {
			writeError(w, http.StatusUnauthorized, "guide login required")
			return
		}

		data, err := mediaStore.Load(r.Context(), chi.URLParam(r, "ref"))
		if errors.Is(err, media.ErrNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
