package web

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const authUser = "jobsync"

// authMiddleware checks basic auth against the bcrypt password hash
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && username == authUser {
			if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="jobsync"`)
		s.writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	})
}
