// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides owner keys, admin tokens and id generation.

# Owner Keys

Owner keys use HMAC-SHA256 to create deterministic, verifiable keys:

	ownerKey := auth.GenerateOwnerKey(uid, salt)
	err := auth.ValidateOwnerKey(uid, ownerKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same uid and salt always produce the same key, so nothing is stored.
Owners send it in the X-Owner-Key header.

# Admin Tokens

The admin logs in with the configured password and receives an HS256 JWT:

	token, expires, err := auth.IssueAdminToken(secret, time.Now())
	claims, err := auth.ParseAdminToken(secret, token)

Tokens last AdminTokenTTL and are sent as "Authorization: Bearer <token>".

# ID Generation

Owner ids are UUIDs from NewOwnerUID. Random hex ids for menu items and
suggestions:

	id, err := auth.GenerateID(8)  // 16 hex characters
*/
package auth
