// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package remote implements the shared document store used by every client.

The store is a tree addressed by slash-separated paths, for example

	messOwners/<uid>/profile/messStatus
	votes/<serviceId>/<day>/<meal>/<itemId>

# Operations

	snap, err := store.Read(ctx, path)           // point-in-time value
	err := store.Write(ctx, path, value)         // replace a subtree (nil deletes)
	err := store.Update(ctx, map[string]any{...}) // atomic multi-path write
	res, err := store.Transaction(ctx, path, fn) // read-modify-write with retry
	cancel, err := store.Subscribe(path, cb)     // initial value + every change

# Storage

SQLStore keeps one row per leaf value in the node table, JSON encoded.
Objects are split into leaves; arrays are stored whole. Every write bumps
a counter in the revision table for the written path, its ancestors and
its descendants.

# Transactions

Transaction reads the value and revision of a path, calls fn, and commits
only if the revision is unchanged. A lost race re-runs fn against the new
value, up to MaxTransactionAttempts times, after which the result has
Committed=false. fn returning ErrAbort also yields Committed=false.
Within one SQLStore, transactions on the same path are serialized.

# Subscriptions

Callbacks run on the goroutine that committed the write, after the
commit, and never concurrently for the same subscription. With postgres,
Listen relays commits from other processes via LISTEN/NOTIFY.
*/
package remote
