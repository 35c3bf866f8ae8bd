// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/testutil"
)

var lunchItem = ItemKey{ServiceID: "mess1", Day: "Mo", Meal: "lunch", ItemID: "item-1"}

// hookedStore lets a test run code inside the reconciliation window or
// force transaction outcomes.
type hookedStore struct {
	*remote.SQLStore
	before       func()
	fail         error
	notCommitted bool
}

func (h *hookedStore) Transaction(ctx context.Context, path string, fn remote.TransactionFunc) (remote.TxResult, error) {
	if h.before != nil {
		h.before()
	}
	if h.fail != nil {
		return remote.TxResult{}, h.fail
	}
	if h.notCommitted {
		return remote.TxResult{Committed: false}, nil
	}
	return h.SQLStore.Transaction(ctx, path, fn)
}

func newEngine(t *testing.T) (*Engine, *remote.SQLStore, prefs.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := remote.NewSQLStore(db, "sqlite")
	local, err := prefs.NewDurable(db, "device-1")
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(store, local)
	t.Cleanup(e.Close)
	return e, store, local
}

func readCounter(t *testing.T, store remote.Store, key ItemKey) models.VoteRecord {
	t.Helper()
	snap, err := store.Read(context.Background(), key.Path())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var rec models.VoteRecord
	if err := snap.Decode(&rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestToggle(t *testing.T) {
	tests := []struct {
		current, tap, want Vote
	}{
		{None, Like, Like},
		{Like, Like, None},
		{Dislike, Like, Like},
	}
	for _, tt := range tests {
		if got := Toggle(tt.current, tt.tap); got != tt.want {
			t.Errorf("Toggle(%q, %q) = %q, want %q", tt.current, tt.tap, got, tt.want)
		}
	}
}

func TestApplyVote(t *testing.T) {
	tests := []struct {
		name       string
		rec        models.VoteRecord
		prev, next Vote
		want       models.VoteRecord
	}{
		{"first like", models.VoteRecord{}, None, Like, models.VoteRecord{Likes: 1}},
		{"like on existing", models.VoteRecord{Likes: 4}, None, Like, models.VoteRecord{Likes: 5}},
		{"unlike", models.VoteRecord{Likes: 4}, Like, None, models.VoteRecord{Likes: 3}},
		{"switch dislike to like", models.VoteRecord{Likes: 1, Dislikes: 2}, Dislike, Like, models.VoteRecord{Likes: 2, Dislikes: 1}},
		{"unlike never goes negative", models.VoteRecord{}, Like, None, models.VoteRecord{}},
		{"no change", models.VoteRecord{Likes: 2}, Like, Like, models.VoteRecord{Likes: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyVote(tt.rec, tt.prev, tt.next); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestItemKeyValidate(t *testing.T) {
	bad := []ItemKey{
		{ServiceID: "", Day: "Mo", Meal: "lunch", ItemID: "i"},
		{ServiceID: "m", Day: "Monday", Meal: "lunch", ItemID: "i"},
		{ServiceID: "m", Day: "Mo", Meal: "brunch", ItemID: "i"},
		{ServiceID: "m", Day: "Mo", Meal: "lunch", ItemID: "a.b"},
	}
	for _, k := range bad {
		if err := k.Validate(); !errors.Is(err, ErrInvalidItem) {
			t.Errorf("%+v: expected ErrInvalidItem, got %v", k, err)
		}
	}
	if err := lunchItem.Validate(); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
}

func TestCastVote_LikeThenUnlike(t *testing.T) {
	e, store, local := newEngine(t)
	ctx := context.Background()

	// Someone else already liked the item
	if err := store.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 3}); err != nil {
		t.Fatal(err)
	}

	res, err := e.CastVote(ctx, lunchItem, Like)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if res.Outcome != Committed || res.Vote != Like {
		t.Fatalf("expected committed like, got %v %q", res.Outcome, res.Vote)
	}
	if res.State.Likes != 4 || !res.State.Active || res.State.Phase != Idle {
		t.Errorf("unexpected state after like: %+v", res.State)
	}
	if v, ok, _ := local.GetItem(ctx, "vote_mess1_item-1"); !ok || v != "like" {
		t.Errorf("expected stored like, got %q ok=%v", v, ok)
	}

	res, err = e.CastVote(ctx, lunchItem, Like)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if res.Vote != None || res.State.Active {
		t.Errorf("expected unlike, got %+v", res)
	}
	if rec := readCounter(t, store, lunchItem); rec.Likes != 3 {
		t.Errorf("expected counter back at 3, got %d", rec.Likes)
	}
	if _, ok, _ := local.GetItem(ctx, "vote_mess1_item-1"); ok {
		t.Error("expected stored vote to be cleared")
	}
}

func TestCastVote_TapParity(t *testing.T) {
	for taps := 1; taps <= 6; taps++ {
		t.Run(fmt.Sprintf("%d taps", taps), func(t *testing.T) {
			e, store, local := newEngine(t)
			ctx := context.Background()

			for i := 0; i < taps; i++ {
				if _, err := e.CastVote(ctx, lunchItem, Like); err != nil {
					t.Fatalf("tap %d failed: %v", i, err)
				}
			}

			_, ok, _ := local.GetItem(ctx, "vote_mess1_item-1")
			wantLiked := taps%2 == 1
			if ok != wantLiked {
				t.Errorf("stored vote present=%v, want %v", ok, wantLiked)
			}
			wantLikes := 0
			if wantLiked {
				wantLikes = 1
			}
			if rec := readCounter(t, store, lunchItem); rec.Likes != wantLikes {
				t.Errorf("expected %d likes, got %d", wantLikes, rec.Likes)
			}
		})
	}
}

func TestCastVote_ConcurrentDevices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := remote.NewSQLStore(db, "sqlite")
	ctx := context.Background()

	const devices = 12
	var wg sync.WaitGroup
	for i := 0; i < devices; i++ {
		local, _ := prefs.NewDurable(db, fmt.Sprintf("device-%d", i))
		e := NewEngine(store, local)
		defer e.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.CastVote(ctx, lunchItem, Like)
			if err != nil || res.Outcome != Committed {
				t.Errorf("CastVote: outcome=%v err=%v", res.Outcome, err)
			}
		}()
	}
	wg.Wait()

	if rec := readCounter(t, store, lunchItem); rec.Likes != devices {
		t.Errorf("expected %d likes, got %d", devices, rec.Likes)
	}
}

func TestCastVote_ConcurrentTapsSameDevice(t *testing.T) {
	e, store, _ := newEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.CastVote(ctx, lunchItem, Like)
		}()
	}
	wg.Wait()

	// Four taps cancel out
	if rec := readCounter(t, store, lunchItem); rec.Likes != 0 {
		t.Errorf("expected 0 likes after an even number of taps, got %d", rec.Likes)
	}
}

func TestCastVote_SharedLocksAcrossEngines(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := remote.NewSQLStore(db, "sqlite")
	ctx := context.Background()
	var locks CastLocks

	const engines = 6
	var wg sync.WaitGroup
	for i := 0; i < engines; i++ {
		local, err := prefs.NewDurable(db, "device-1")
		if err != nil {
			t.Fatal(err)
		}
		e := NewDeviceEngine(store, local, &locks, "device-1")
		defer e.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := e.CastVote(ctx, lunchItem, Like); err != nil || res.Outcome != Committed {
				t.Errorf("CastVote: outcome=%v err=%v", res.Outcome, err)
			}
		}()
	}
	wg.Wait()

	// Each engine reads the vote the previous one stored, so the taps cancel out
	if rec := readCounter(t, store, lunchItem); rec.Likes != 0 {
		t.Errorf("expected 0 likes after an even number of taps, got %d", rec.Likes)
	}
	local, _ := prefs.NewDurable(db, "device-1")
	if _, ok, _ := local.GetItem(ctx, "vote_mess1_item-1"); ok {
		t.Error("stored vote should be cleared")
	}
	if n := locks.len(); n != 0 {
		t.Errorf("%d cast locks left behind", n)
	}
}

func TestCastVote_NotificationDuringReconcileKeepsButton(t *testing.T) {
	db := testutil.SetupTestDB(t)
	inner := remote.NewSQLStore(db, "sqlite")
	local, _ := prefs.NewDurable(db, "device-1")
	hs := &hookedStore{SQLStore: inner}
	e := NewEngine(hs, local)
	defer e.Close()
	ctx := context.Background()

	hs.before = func() {
		st, _ := e.State(lunchItem)
		if st.Phase != Reconciling || !st.Active {
			t.Errorf("expected optimistic active button while reconciling, got %+v", st)
		}

		// Another diner's vote lands while ours is in flight
		if err := inner.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 10}); err != nil {
			t.Fatal(err)
		}

		st, _ = e.State(lunchItem)
		if st.Likes != 10 {
			t.Errorf("expected count to follow the notification, got %d", st.Likes)
		}
		if !st.Active {
			t.Error("notification during reconciliation must not reset the button")
		}
	}

	res, err := e.CastVote(ctx, lunchItem, Like)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Committed || res.State.Likes != 11 || res.State.Phase != Idle {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCastVote_Failure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	inner := remote.NewSQLStore(db, "sqlite")
	local, _ := prefs.NewDurable(db, "device-1")
	hs := &hookedStore{SQLStore: inner, fail: errors.New("permission denied")}
	e := NewEngine(hs, local)
	defer e.Close()
	ctx := context.Background()

	res, err := e.CastVote(ctx, lunchItem, Like)
	if err != nil {
		t.Fatalf("store failures must not surface as errors: %v", err)
	}
	if res.Outcome != Failed {
		t.Fatalf("expected Failed, got %v", res.Outcome)
	}
	// Optimistic button is not reverted
	if !res.State.Active || res.State.Phase != Reconciling {
		t.Errorf("unexpected state %+v", res.State)
	}
	if _, ok, _ := local.GetItem(ctx, "vote_mess1_item-1"); ok {
		t.Error("failed vote must not be stored")
	}

	// Another device's vote moves the count but leaves the button alone
	inner.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 3})
	st, _ := e.State(lunchItem)
	if st.Likes != 3 || !st.Active || st.Phase != Reconciling {
		t.Errorf("unexpected state after notification %+v", st)
	}
}

func TestCastVote_NotCommittedStaysReconciling(t *testing.T) {
	db := testutil.SetupTestDB(t)
	inner := remote.NewSQLStore(db, "sqlite")
	local, _ := prefs.NewDurable(db, "device-1")
	hs := &hookedStore{SQLStore: inner, notCommitted: true}
	e := NewEngine(hs, local)
	defer e.Close()
	ctx := context.Background()

	res, err := e.CastVote(ctx, lunchItem, Like)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != NotCommitted || res.State.Phase != Reconciling {
		t.Fatalf("expected not committed and reconciling, got %v %v", res.Outcome, res.State.Phase)
	}
	if _, ok, _ := local.GetItem(ctx, "vote_mess1_item-1"); ok {
		t.Error("uncommitted vote must not be stored")
	}

	// Later notifications still update the count but not the button
	inner.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 2})
	st, _ := e.State(lunchItem)
	if st.Likes != 2 || !st.Active {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestCastVote_RejectsDislike(t *testing.T) {
	e, _, _ := newEngine(t)
	if _, err := e.CastVote(context.Background(), lunchItem, Dislike); !errors.Is(err, ErrUnsupportedVote) {
		t.Errorf("expected ErrUnsupportedVote, got %v", err)
	}
}

func TestWatch_LoadsStoredVoteAndFollowsCounter(t *testing.T) {
	e, store, local := newEngine(t)
	ctx := context.Background()

	local.SetItem(ctx, "vote_mess1_item-1", "like")
	store.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 7})

	st, err := e.Watch(ctx, lunchItem)
	if err != nil {
		t.Fatal(err)
	}
	if st.Vote != Like || !st.Active || st.Likes != 7 {
		t.Errorf("unexpected initial state %+v", st)
	}

	store.Write(ctx, lunchItem.Path(), models.VoteRecord{Likes: 8})
	st, _ = e.State(lunchItem)
	if st.Likes != 8 {
		t.Errorf("expected 8 likes after notification, got %d", st.Likes)
	}
}
