// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the campus-mess API.

# Route Registration

NewRouter builds a chi router with request ids, real IPs, request
logging, panic recovery and CORS applied to every route:

	h := router.NewRouter(db, cfg, store, sessions, sched)

# Endpoints

Health:

	GET /health

Owners (require X-Owner-Key):

	POST  /v1/owners                - Sign up (no key yet)
	GET   /v1/owners/{uid}          - Profile and menu
	PATCH /v1/owners/{uid}/profile  - Rename, change phone
	PUT   /v1/owners/{uid}/status   - Open or close
	GET   /v1/owners/{uid}/menu     - Weekly menu
	PUT   /v1/owners/{uid}/menu     - Replace weekly menu (edit mode only)
	PUT   /v1/owners/{uid}/edit-mode

Public:

	GET /v1/listings?type=mess|canteen
	GET /v1/listings/{uid}
	GET /v1/suggestions
	GET /v1/watch?path=...          - Server-sent events

Per device (require X-Device-UUID, echo X-Session-ID):

	GET  /v1/votes/{serviceId}/{day}/{meal}/{item}
	POST /v1/votes/{serviceId}/{day}/{meal}/{item} - Toggle like
	GET  /v1/devices/me

Admin (Bearer token from /v1/admin/login):

	GET    /v1/admin/owners
	DELETE /v1/admin/owners/{uid}
	PUT    /v1/admin/status/{type}           - Master toggle
	GET    /v1/admin/scheduler
	PUT    /v1/admin/scheduler/settings
	PUT    /v1/admin/scheduler/enabled
	POST   /v1/admin/scheduler/resume
	GET    /v1/admin/suggestions
	POST   /v1/admin/suggestions
	DELETE /v1/admin/suggestions/{id}

Every route except the watch stream runs under a request timeout.
*/
package router
