// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package prefs holds small per-client preferences.

Two tiers share the Store interface:

  - Durable: rows in the preference table keyed by device UUID; survives
    restarts. Used for a diner's own votes and the admin's scheduler switch.
  - Ephemeral: an in-memory map owned by one session and cleared when the
    session ends. Used for the scheduler run state.

GetItem reports absence with ok=false rather than an error.
*/
package prefs
