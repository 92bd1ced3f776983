package server

import (
	"errors"
	"net/http"
	"strings"
)

type travelerSession struct {
	UserID string
	Name   string
}

type guideSession struct {
	GuideID string
	Email   string
	Name    string
}

var (
	errNoSession      = errors.New("no valid session")
	errNoGuideSession = errors.New("no valid guide session")
)

const guideCookieName = "guide_session"

func travelerFromRequest(r *http.Request, store Store) (travelerSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return travelerSession{}, errNoSession
	}
	return store.TravelerFromToken(r.Context(), token)
}

// guideFromRequest reads the guide_session cookie and looks up the
// session.
func guideFromRequest(r *http.Request, store Store) (guideSession, error) {
	cookie, err := r.Cookie(guideCookieName)
	if err != nil || cookie.Value == "" {
		return guideSession{}, errNoGuideSession
	}
	return store.GuideFromSession(r.Context(), cookie.Value)
}
