package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Skipper exempts requests (health probes, metrics scrapes) from bearer
// validation.
type Skipper func(r *http.Request) bool

// Middleware validates bearer tokens in front of the engine's API and
// stores the resulting claims on the request context.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap wraps an http.Handler with authentication. Failures are reported in
// the same JSON error shape the snapshot handlers use.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			writeDenied(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	return Parse(strings.TrimSpace(header[len("Bearer "):]), m.Config)
}

// RequireScope guards a handler func: the request must carry claims
// (injected by Wrap) holding at least one of the listed scopes.
func RequireScope(next http.HandlerFunc, scopes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			writeDenied(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		for _, scope := range scopes {
			if claims.HasScope(scope) {
				next(w, r)
				return
			}
		}
		writeDenied(w, http.StatusForbidden, "forbidden", "scope "+strings.Join(scopes, " or ")+" required")
	}
}

func writeDenied(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
