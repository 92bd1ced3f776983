package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaaya/cleanquest/internal/scoring"
)

func handleQuestComplete(verifier *Verifier, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := travelerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		form, err := readProofForm(r, "after_image")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		questID := chi.URLParam(r, "id")
		result, err := verifier.Complete(r.Context(), questID, sess.UserID, form.Lat, form.Lon, form.Image)
		if err != nil {
			writeCompleteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeCompleteError(w http.ResponseWriter, err error) {
	var oor *OutOfRangeError
	switch {
	case errors.Is(err, ErrQuestNotFound):
		writeError(w, http.StatusNotFound, "quest not found")
	case errors.Is(err, ErrNoActiveSubmission):
		writeError(w, http.StatusNotFound, "no active submission for this quest")
	case errors.Is(err, ErrAlreadyFinished):
		writeError(w, http.StatusConflict, "submission already completed")
	case errors.As(err, &oor):
		// Recoverable: the submission stays open so the traveler can
		// retry from inside the geofence.
		writeJSON(w, http.StatusUnprocessableEntity, OutOfRangeResponse{
			Error:     oor.Error(),
			DistanceM: oor.DistanceM,
			RadiusM:   oor.RadiusM,
		})
	case errors.Is(err, scoring.ErrUnavailable):
		// Recoverable: the submission stays open; retry once the scorer
		// is healthy.
		writeError(w, http.StatusServiceUnavailable, "verification service unavailable, try again later")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
