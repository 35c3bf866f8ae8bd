// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/campus-mess/auth"
	"github.com/danielhkuo/campus-mess/session"
)

type ctxKey int

const (
	adminClaimsKey ctxKey = iota
	sessionKey
)

// RequireOwner checks X-Owner-Key against the {uid} route parameter.
func RequireOwner(salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderOwnerKey)
			if key == "" {
				ErrorResponse(w, http.StatusUnauthorized, HeaderOwnerKey+" header required")
				return
			}
			if err := auth.ValidateOwnerKey(chi.URLParam(r, "uid"), key, salt); err != nil {
				ErrorResponse(w, http.StatusForbidden, "invalid owner key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin validates the bearer token and stores its claims.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				ErrorResponse(w, http.StatusUnauthorized, "Authorization header required (Bearer <token>)")
				return
			}
			claims, err := auth.ParseAdminToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				ErrorResponse(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminClaimsKey, claims)))
		})
	}
}

// AdminClaims returns the claims stored by RequireAdmin.
func AdminClaims(ctx context.Context) (*auth.AdminClaims, bool) {
	c, ok := ctx.Value(adminClaimsKey).(*auth.AdminClaims)
	return c, ok
}

// RequireSession resolves the caller's session from X-Session-ID and
// X-Device-UUID, starting one when needed. The session id in use is
// echoed back in X-Session-ID.
func RequireSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, _, err := m.Get(r.Context(), r.Header.Get(HeaderSessionID), r.Header.Get(HeaderDeviceUUID))
			switch {
			case errors.Is(err, session.ErrInvalidDevice):
				ErrorResponse(w, http.StatusBadRequest, HeaderDeviceUUID+" header must be a UUID")
				return
			case errors.Is(err, session.ErrDeviceMismatch):
				ErrorResponse(w, http.StatusForbidden, "session belongs to another device")
				return
			case err != nil:
				ErrorResponse(w, http.StatusInternalServerError, "failed to start session")
				return
			}
			w.Header().Set(HeaderSessionID, st.ID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, st)))
		})
	}
}

// OptionalSession behaves like RequireSession for callers that send
// X-Device-UUID and lets everyone else through without a session.
func OptionalSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withSession := RequireSession(m)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderDeviceUUID) == "" {
				next.ServeHTTP(w, r)
				return
			}
			withSession.ServeHTTP(w, r)
		})
	}
}

// Session returns the session stored by RequireSession.
func Session(ctx context.Context) (*session.State, bool) {
	st, ok := ctx.Value(sessionKey).(*session.State)
	return st, ok
}
