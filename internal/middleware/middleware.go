package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlviRownok/NAPOLI-GIS/internal/utils"
)

const (
	SessionCookie  = "napoli_session"
	DevTokenHeader = "X-Dev-Token"
)

// SessionMiddleware makes sure every request carries a session cookie and puts
// its ID in the request context. Unknown or malformed IDs are replaced.
func SessionMiddleware(ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			// Refresh on every request so the cookie outlives activity, not creation.
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(utils.WithSessionID(r.Context(), id)))
		})
	}
}

// CORSMiddleware echoes the Origin header back only when it is in allowed.
func CORSMiddleware(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := set[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+DevTokenHeader)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DevMiddleware hides developer routes unless devMode is on. The caller must
// send the token matching the bcrypt tokenHash, either in the X-Dev-Token
// header or as the "token" form field. Without a hash every request is refused.
func DevMiddleware(devMode bool, tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !devMode {
				http.NotFound(w, r)
				return
			}
			if tokenHash == "" {
				http.Error(w, "Forbidden: dev token not configured", http.StatusForbidden)
				return
			}
			token := r.Header.Get(DevTokenHeader)
			if token == "" {
				token = r.FormValue("token")
			}
			if token == "" {
				http.Error(w, "Unauthorized: missing dev token", http.StatusUnauthorized)
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				http.Error(w, "Forbidden: wrong dev token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
