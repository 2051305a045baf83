package web

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuthMiddleware requires HTTP basic credentials when user is set.
func BasicAuthMiddleware(next http.HandlerFunc, user, password string) http.HandlerFunc {
	if user == "" {
		log.Warn("Admin dashboard is not protected by credentials")
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="ecocarbon admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
