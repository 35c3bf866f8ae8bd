// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting lets a diner like menu items.

Each Engine belongs to one client session. For every item it watches it
keeps an ItemState: the device's committed vote, whether the like button
is highlighted, the shared counts, and a Phase.

# Casting

	res, err := engine.CastVote(ctx, key, voting.Like)

CastVote toggles the device's vote, highlights or clears the button at
once and moves the item to Reconciling. The shared counter at
votes/<service>/<day>/<meal>/<item> is changed with a remote transaction
(ApplyVote), so concurrent voters never overwrite each other. When the
transaction commits the vote is saved in the device's preferences and
the item returns to Idle.

# Notifications

The engine subscribes to each counter. Notifications always update the
counts; they only reset the button from the stored vote while the item
is Idle.

# Failures

  - Failed: the store rejected the transaction. Logged; the button keeps
    its optimistic state and the item returns to Idle.
  - NotCommitted: every attempt lost a race. Logged; the item stays
    Reconciling.

Only "like" can be cast. The counter's dislikes field is kept for shape
but nothing writes it.
*/
package voting
