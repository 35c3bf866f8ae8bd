// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the campus mess API.

# Handler Types

Each handler is a struct holding the stores and config it needs:

  - OwnerHandler: signup, profile, open/closed status, weekly menu, edit mode
  - ListingHandler: public list and detail views
  - VoteHandler: per-item like toggles through the session's vote engine
  - WatchHandler: server-sent event streams of stored values
  - AdminHandler: login, owner management, master toggles, scheduler
  - SuggestionHandler: food name suggestions
  - DeviceHandler: what a device has done so far

The router builds them once:

	ownerHandler := handlers.NewOwnerHandler(store, cfg)

# Owners

	POST  /v1/owners                 → Register (returns owner_key)
	GET   /v1/owners/{uid}           → Get
	PATCH /v1/owners/{uid}/profile   → UpdateProfile
	PUT   /v1/owners/{uid}/status    → SetStatus
	GET   /v1/owners/{uid}/menu      → GetMenu
	PUT   /v1/owners/{uid}/edit-mode → SetEditMode
	PUT   /v1/owners/{uid}/menu      → PutMenu (edit mode only)

Owner operations require the X-Owner-Key header. Edit mode lives in the
caller's session, so a new session starts read-only.

# Validation

Request types carry validate tags checked with go-playground/validator
after trimming; the 400 message names the first bad field by its JSON
name, e.g. "email must be a valid email".

# Votes

	GET  /v1/votes/{serviceId}/{day}/{meal}/{item} → Get
	POST /v1/votes/{serviceId}/{day}/{meal}/{item} → Like (toggle)

Vote operations require the X-Device-UUID header. A committed toggle
answers 200, a toggle that lost every retry 202, a store failure 502.

# Admin

	POST /v1/admin/login → Login (returns a bearer token)

Everything else under /v1/admin needs "Authorization: Bearer <token>".
*/
package handlers
