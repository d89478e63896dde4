package httpadapter

import (
	"context"
	"net/http"
	"strings"

	"certflow/internal/apperr"
)

type contextKey int

const principalIDKey contextKey = iota

// authenticate extracts the bearer token, resolves it to a principal id and
// stores the id on the request context. Authorization decisions stay in the
// services; this layer only establishes who is calling.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, apperr.Unauthenticated("missing bearer token"))
			return
		}
		principalID, err := s.auth.ParseToken(token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalIDKey, principalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(principalIDKey).(string)
	return id
}
