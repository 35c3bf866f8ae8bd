// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap the router with request logging:

	r.Use(middleware.WithLogging)

Logs one line per request with method, path, status, duration_ms, the
client IP and the chi request id. The wrapped writer still supports
flushing, so event streams work behind it.

# CORS Middleware

	r.Use(middleware.CORS())

Allows any origin with the X-Owner-Key, X-Device-UUID and X-Session-ID
headers and exposes X-Session-ID to scripts.

# Identity

	r.With(middleware.RequireOwner(salt))      // X-Owner-Key for {uid}
	r.With(middleware.RequireAdmin(secret))    // Authorization: Bearer <jwt>
	r.With(middleware.RequireSession(manager)) // X-Device-UUID + X-Session-ID
	r.With(middleware.OptionalSession(manager)) // session only when a device is sent

Handlers read the results with AdminClaims and Session.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.RegisterOwnerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)
*/
package middleware
