// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the campus-mess API server.

campus-mess lists the messes and canteens of a campus with their weekly
menus, lets students like menu items with live counters, and opens and
closes every outlet automatically from admin-defined operating windows.

# Starting the Server

Configuration comes from CLI flags, the environment or a .env file:

	DATABASE_URL=campus.db OWNER_KEY_SALT=... ADMIN_PASSWORD=... SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --seed seed.yaml

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file or postgres connection string
  - OWNER_KEY_SALT (--owner-salt): Secret for owner key HMAC
  - ADMIN_PASSWORD (--admin-password): Admin login password
  - SESSION_SECRET (--session-secret): Signing secret for admin tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SCHEDULER_INTERVAL (--scheduler-interval): Evaluation period, at most 1m
  - TIMEZONE (--timezone): Zone the operating windows are read in
  - SEED_FILE (--seed): YAML owners, windows and suggestions applied at startup
  - LOG_LEVEL (--log-level): debug, info, warn or error

# Architecture

The HTTP server, the auto scheduler, the session sweeper and (on postgres)
the change listener run together under one errgroup and stop on SIGINT or
SIGTERM.

  - handlers: HTTP request handlers (owners, listings, votes, watch, admin)
  - router: chi routes and middleware stack
  - middleware: CORS, logging, owner/admin/session guards, JSON helpers
  - remote: hierarchical JSON store with transactions and subscriptions
  - voting: optimistic like toggling reconciled through transactions
  - schedule: operating windows, evaluator and auto scheduler
  - session: per-device sessions holding ephemeral state
  - prefs: durable and ephemeral key-value preferences
  - seed: YAML bootstrap data
  - models: Stored documents and request/response types
  - auth: Owner keys and admin tokens
  - db: Connection and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
