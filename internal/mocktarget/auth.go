package mocktarget

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyUser contextKey = "user"

// bearerUser resolves the Bearer token to a user, or nil.
func (h *Handler) bearerUser(r *http.Request) *User {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return nil
	}
	email, ok := h.opts.Tokens[token]
	if !ok {
		return nil
	}
	return h.ensureUser(email, "", "")
}

// requireSession validates the Bearer token and injects the user into context.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.bearerUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next(w, r.WithContext(ctx))
	}
}

// sessionUser extracts the authenticated user from the request context.
func sessionUser(r *http.Request) *User {
	u, _ := r.Context().Value(contextKeyUser).(*User)
	return u
}

// requireMaster validates the session and additionally requires the master role.
func (h *Handler) requireMaster(next http.HandlerFunc) http.HandlerFunc {
	return h.requireSession(func(w http.ResponseWriter, r *http.Request) {
		if sessionUser(r).Role != "master" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}
