package httpx

import "net/http"

// Authorizer answers whether a request carries admin credentials. Token
// issuance and user auth live outside this service; this is only the gate.
type Authorizer interface {
	IsAdmin(r *http.Request) bool
}

// TokenAuthorizer compares a shared secret header. An empty token denies
// everything rather than waving everyone through.
type TokenAuthorizer struct{ Token string }

func (a TokenAuthorizer) IsAdmin(r *http.Request) bool {
	return a.Token != "" && r.Header.Get("X-Admin-Token") == a.Token
}

func RequireAdmin(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.IsAdmin(r) {
				writeJSON(w, http.StatusForbidden, map[string]string{"message": "admin access required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
