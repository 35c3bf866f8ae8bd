// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
)

// Phase is the reconciliation state of one item.
type Phase int

const (
	// Idle: remote notifications may update both count and button.
	Idle Phase = iota
	// Reconciling: a transaction is in flight or did not commit;
	// notifications update the count only.
	Reconciling
)

func (p Phase) String() string {
	if p == Reconciling {
		return "reconciling"
	}
	return "idle"
}

// ItemState is what a client shows for one item.
type ItemState struct {
	Key      ItemKey
	Vote     Vote // last committed vote of this device
	Active   bool // like button highlighted
	Likes    int
	Dislikes int
	Phase    Phase
}

// Outcome of CastVote.
type Outcome int

const (
	Committed    Outcome = iota
	NotCommitted         // lost every race; item stays Reconciling
	Failed               // store rejected the transaction; item stays Reconciling
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case NotCommitted:
		return "not_committed"
	default:
		return "failed"
	}
}

type Result struct {
	Outcome Outcome
	Vote    Vote // the vote the tap asked for
	State   ItemState
}

type item struct {
	state  ItemState
	cancel func()
	// cast serializes taps on the item so each reads the vote the
	// previous one committed.
	cast sync.Mutex
}

// Engine tracks the items one client is looking at.
type Engine struct {
	store remote.Store
	local prefs.Store

	// shared, when set, serializes casts with other engines of the same
	// device.
	shared *CastLocks
	device string

	mu    sync.Mutex
	items map[ItemKey]*item
}

func NewEngine(store remote.Store, local prefs.Store) *Engine {
	return &Engine{
		store: store,
		local: local,
		items: make(map[ItemKey]*item),
	}
}

// NewDeviceEngine returns an engine whose casts are serialized through
// locks with every other engine of device. local must be that device's
// vote store.
func NewDeviceEngine(store remote.Store, local prefs.Store, locks *CastLocks, device string) *Engine {
	e := NewEngine(store, local)
	e.shared = locks
	e.device = device
	return e
}

func (e *Engine) lockCast(key ItemKey, it *item) func() {
	if e.shared != nil {
		return e.shared.lock(e.device + "/" + key.prefKey())
	}
	it.cast.Lock()
	return it.cast.Unlock
}

// Watch subscribes to an item's counter and loads this device's vote.
// Watching an item twice is a no-op.
func (e *Engine) Watch(ctx context.Context, key ItemKey) (ItemState, error) {
	if err := key.Validate(); err != nil {
		return ItemState{}, err
	}

	e.mu.Lock()
	if it, ok := e.items[key]; ok {
		st := it.state
		e.mu.Unlock()
		return st, nil
	}
	e.mu.Unlock()

	vote, err := e.storedVote(ctx, key)
	if err != nil {
		return ItemState{}, err
	}

	e.mu.Lock()
	if it, ok := e.items[key]; ok {
		st := it.state
		e.mu.Unlock()
		return st, nil
	}
	it := &item{state: ItemState{Key: key, Vote: vote, Active: vote == Like}}
	e.items[key] = it
	e.mu.Unlock()

	cancel, err := e.store.Subscribe(key.Path(), func(snap remote.Snapshot) {
		e.onCounter(key, snap)
	})
	if err != nil {
		e.mu.Lock()
		delete(e.items, key)
		e.mu.Unlock()
		return ItemState{}, err
	}

	e.mu.Lock()
	it.cancel = cancel
	st := it.state
	e.mu.Unlock()
	return st, nil
}

// State returns the current view of a watched item.
func (e *Engine) State(key ItemKey) (ItemState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[key]
	if !ok {
		return ItemState{}, false
	}
	return it.state, true
}

// CastVote toggles voteType on an item. The button flips immediately,
// the shared counter is changed through a remote transaction and the
// device's vote is stored once that commits. Store failures are logged
// and reported through the Outcome, not as an error.
func (e *Engine) CastVote(ctx context.Context, key ItemKey, voteType Vote) (Result, error) {
	if voteType != Like {
		return Result{}, ErrUnsupportedVote
	}
	if _, err := e.Watch(ctx, key); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	it := e.items[key]
	e.mu.Unlock()

	unlock := e.lockCast(key, it)
	defer unlock()

	current, err := e.storedVote(ctx, key)
	if err != nil {
		return Result{}, err
	}
	next := Toggle(current, voteType)

	e.mu.Lock()
	it.state.Active = next == Like
	it.state.Phase = Reconciling
	e.mu.Unlock()

	res, err := e.store.Transaction(ctx, key.Path(), func(snap remote.Snapshot) (any, error) {
		var rec models.VoteRecord
		if err := snap.Decode(&rec); err != nil {
			return nil, err
		}
		return ApplyVote(rec, current, next), nil
	})

	switch {
	case err != nil:
		slog.Error("vote transaction failed", "path", key.Path(), "vote", string(next), "error", err)
		e.mu.Lock()
		st := it.state
		e.mu.Unlock()
		return Result{Outcome: Failed, Vote: next, State: st}, nil

	case !res.Committed:
		slog.Warn("vote transaction not committed", "path", key.Path(), "vote", string(next))
		e.mu.Lock()
		st := it.state
		e.mu.Unlock()
		return Result{Outcome: NotCommitted, Vote: next, State: st}, nil
	}

	if err := e.storeVote(ctx, key, next); err != nil {
		slog.Error("failed to remember vote", "key", key.prefKey(), "error", err)
	}

	var rec models.VoteRecord
	if err := res.Snapshot.Decode(&rec); err != nil {
		slog.Warn("failed to decode committed counter", "path", key.Path(), "error", err)
	}

	e.mu.Lock()
	it.state.Vote = next
	it.state.Active = next == Like
	it.state.Likes = rec.Likes
	it.state.Dislikes = rec.Dislikes
	it.state.Phase = Idle
	st := it.state
	e.mu.Unlock()

	slog.Debug("vote committed", "path", key.Path(), "vote", string(next), "likes", rec.Likes)
	return Result{Outcome: Committed, Vote: next, State: st}, nil
}

// onCounter handles every counter notification, including the one this
// engine's own commit produces while the item is still Reconciling.
func (e *Engine) onCounter(key ItemKey, snap remote.Snapshot) {
	var rec models.VoteRecord
	if err := snap.Decode(&rec); err != nil {
		slog.Error("bad vote counter", "path", snap.Path, "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[key]
	if !ok {
		return
	}
	it.state.Likes = rec.Likes
	it.state.Dislikes = rec.Dislikes
	if it.state.Phase == Idle {
		it.state.Active = it.state.Vote == Like
	}
}

func (e *Engine) storedVote(ctx context.Context, key ItemKey) (Vote, error) {
	v, ok, err := e.local.GetItem(ctx, key.prefKey())
	if err != nil {
		return None, err
	}
	if !ok {
		return None, nil
	}
	return Vote(v), nil
}

func (e *Engine) storeVote(ctx context.Context, key ItemKey, v Vote) error {
	if v == None {
		return e.local.RemoveItem(ctx, key.prefKey())
	}
	return e.local.SetItem(ctx, key.prefKey(), string(v))
}

// Close drops every subscription.
func (e *Engine) Close() {
	e.mu.Lock()
	items := e.items
	e.items = make(map[ItemKey]*item)
	e.mu.Unlock()

	for _, it := range items {
		if it.cancel != nil {
			it.cancel()
		}
	}
}
