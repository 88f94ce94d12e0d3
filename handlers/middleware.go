package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lessonchat/services"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// UserIDHeader is set by the authenticating proxy in front of the service.
const UserIDHeader = "X-User-ID"

type contextKey int

const (
	sessionKey contextKey = iota
	userKey
)

// SessionMiddleware makes sure every request carries a session cookie and
// exposes its id to handlers.
func SessionMiddleware(cookieName string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(cookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = cookie.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debugf("Started session %s", sessionID)
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sessionID)))
		})
	}
}

// UserMiddleware rejects requests without a user id header unless a default
// user is configured.
func UserMiddleware(defaultUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				userID = defaultUserID
			}
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
		})
	}
}

func visitorFrom(r *http.Request) services.Visitor {
	sessionID, _ := r.Context().Value(sessionKey).(string)
	userID, _ := r.Context().Value(userKey).(string)
	return services.Visitor{SessionID: sessionID, UserID: userID}
}
