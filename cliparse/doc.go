// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: sqlite DSN or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - OwnerKeySalt: Secret for owner key HMAC (required)
  - AdminPassword: Password for admin login (required)
  - SessionSecret: Signing secret for admin session tokens (required)
  - SchedulerInterval: Auto scheduler tick, at most one minute (default: 1m)
  - Timezone: Zone used to read operating windows (default: Local)
  - SeedFile: Optional YAML seed applied at startup
  - LogLevel: debug, info, warn or error (default: info)

# CLI Flags

	-p, --port              Server port
	-d, --database-url      Database URL
	-t, --database-type     sqlite or postgres
	--owner-salt            Owner key salt
	--admin-password        Admin password
	--session-secret        Session signing secret
	--scheduler-interval    Scheduler tick (e.g. 30s)
	--timezone              IANA zone name
	--seed                  Seed file
	--log-level             Log level
	--env-file              Dotenv file (default: .env)

# Environment Variables

Flags fall back to environment variables of the same name in upper snake
case (PORT, DATABASE_URL, OWNER_KEY_SALT, ...). A dotenv file, when
present, is loaded first and never overrides variables that are already
set. CLI flags take precedence over both.
*/
package cliparse
