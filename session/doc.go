// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package session tracks visitor sessions.
//
// A session is bound to one device UUID. It carries an ephemeral
// preference store (edit mode and similar per-visit flags), the device's
// durable preferences and a vote engine. Sessions end after an idle
// timeout, which drops the ephemeral store and every vote subscription;
// durable preferences stay with the device.
package session
