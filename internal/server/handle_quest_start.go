package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// OutOfRangeResponse includes the computed distance so the client can
// tell the traveler how far off they are.
type OutOfRangeResponse struct {
	Error     string  `json:"error"`
	DistanceM float64 `json:"distance_m"`
	RadiusM   float64 `json:"radius_m"`
}

func handleQuestStart(verifier *Verifier, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := travelerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		form, err := readProofForm(r, "before_image")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		questID := chi.URLParam(r, "id")
		result, err := verifier.Start(r.Context(), questID, sess.UserID, form.Lat, form.Lon, form.Image)
		if err != nil {
			writeStartError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func writeStartError(w http.ResponseWriter, err error) {
	var oor *OutOfRangeError
	switch {
	case errors.Is(err, ErrQuestNotFound):
		writeError(w, http.StatusNotFound, "quest not found")
	case errors.Is(err, ErrQuestInactive):
		writeError(w, http.StatusConflict, "quest is not active")
	case errors.As(err, &oor):
		writeJSON(w, http.StatusUnprocessableEntity, OutOfRangeResponse{
			Error:     oor.Error(),
			DistanceM: oor.DistanceM,
			RadiusM:   oor.RadiusM,
		})
	case errors.Is(err, ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "an open submission already exists for this quest")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
