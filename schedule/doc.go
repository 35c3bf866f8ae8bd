// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package schedule opens and closes services automatically.
//
// Operating windows are half-open [start, end) intervals in decimal hours
// within one day. Admins enter them as "HH:mm" strings stored under
// admin/schedulerSettings; invalid windows are rejected when saved.
//
// The Evaluator keeps a per-session run state (ON, OFF or
// MANUAL_OVERRIDE) for each service type and writes every owner's status
// in one combined update only when the desired state changes. A manual
// master toggle puts the type under override until the admin re-enables
// automation.
//
// The Scheduler drives the Evaluator on a ticker no slower than once a
// minute, once on start, and after every settings change.
package schedule
