// Package middleware contains HTTP middleware for the REST facade.
package middleware

import (
	"crypto/subtle"
	"net/http"
)

// adminUser is the single username every non-public REST endpoint accepts
// over HTTP Basic auth. The password is the coordinator's process-wide
// admin secret.
const adminUser = "falconeri"

// RequireBasicAuth builds middleware that rejects any request not
// carrying HTTP Basic auth for user "falconeri" with the given password.
// Both halves are compared in constant time to avoid leaking a partial
// match through response timing.
func RequireBasicAuth(adminPassword string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="falconeri"`)
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(adminPassword)) == 1
			if !userMatch || !passMatch {
				w.Header().Set("WWW-Authenticate", `Basic realm="falconeri"`)
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
